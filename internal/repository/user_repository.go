package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/messagely/internal/model"
	"github.com/iliyamo/messagely/internal/utils"
)

// NewUser carries the registration fields.  Password is plain text and is
// hashed by Create.
type NewUser struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "username,password_hash,first_name,last_name,phone,join_at,last_login_at"

// Create hashes the password and inserts the user.  A taken username yields
// ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int, joinAt time.Time) (model.User, error) {
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		JoinAt:       joinAt,
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, first_name, last_name, phone, join_at) VALUES (?,?,?,?,?,?)",
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.JoinAt)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrUsernameExists
		}
		return model.User{}, err
	}
	return u, nil
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1",
		username).Scan(&u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.JoinAt, &lastLogin)
	if err != nil {
		return model.User{}, notFound(err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

// UpdateLoginTimestamp records a successful authentication.
func (r *UserRepo) UpdateLoginTimestamp(ctx context.Context, username string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at=? WHERE username=?",
		at, username)
	return err
}
