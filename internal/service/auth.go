package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/messagely/internal/model"
	"github.com/iliyamo/messagely/internal/repository"
	"github.com/iliyamo/messagely/internal/utils"
)

// UserStore is the persistence the credential store needs.
type UserStore interface {
	Create(ctx context.Context, in repository.NewUser, cost int, joinAt time.Time) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	UpdateLoginTimestamp(ctx context.Context, username string, at time.Time) error
}

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(username string) (utils.AccessToken, error)
}

// RegisterInput holds the registration fields.  Every field is required.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Validate trims the text fields and reports the missing ones.
func (in *RegisterInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)

	var missing []string
	for _, f := range []struct{ name, val string }{
		{"username", in.Username},
		{"password", in.Password},
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
		{"phone", in.Phone},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// AuthService is the credential store: registration, password checks and
// login bookkeeping, plus token issuance for the login flows.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	cost   int
	now    func() time.Time
	log    *slog.Logger
}

// NewAuthService wires the credential store.  cost is the bcrypt cost.
func NewAuthService(users UserStore, tokens TokenIssuer, cost int, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, cost: cost, now: utcNow, log: log}
}

// Authenticate returns the user when password matches.  Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password)
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Register validates in and creates the user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	if err := in.Validate(); err != nil {
		return model.User{}, err
	}
	u, err := s.users.Create(ctx, repository.NewUser{
		Username:  in.Username,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
	}, s.cost, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return model.User{}, ErrDuplicateUsername
		}
		return model.User{}, err
	}
	return u, nil
}

// UpdateLoginTimestamp records a successful authentication for username.
func (s *AuthService) UpdateLoginTimestamp(ctx context.Context, username string) error {
	return s.users.UpdateLoginTimestamp(ctx, username, s.now())
}

// Login checks the credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (utils.AccessToken, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return utils.AccessToken{}, fmt.Errorf("%w: username and password required", ErrValidation)
	}
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return utils.AccessToken{}, err
	}
	return s.issue(ctx, u.Username)
}

// RegisterAndLogin registers a new user and logs them in.
func (s *AuthService) RegisterAndLogin(ctx context.Context, in RegisterInput) (utils.AccessToken, error) {
	u, err := s.Register(ctx, in)
	if err != nil {
		return utils.AccessToken{}, err
	}
	s.log.InfoContext(ctx, "user registered", "username", u.Username)
	tok, err := s.issue(ctx, u.Username)
	if err != nil {
		// The user row exists; the client can still log in with /login.
		s.log.ErrorContext(ctx, "user registered but token not issued", "username", u.Username, "err", err)
		return utils.AccessToken{}, err
	}
	return tok, nil
}

// Profile returns the public profile of username.
func (s *AuthService) Profile(ctx context.Context, username string) (model.UserRef, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UserRef{}, ErrNotFound
		}
		return model.UserRef{}, err
	}
	return u.Ref(), nil
}

// issue signs a token for username and records the login.  The timestamp
// is bookkeeping only: a failed update is logged and the token still
// returned.
func (s *AuthService) issue(ctx context.Context, username string) (utils.AccessToken, error) {
	tok, err := s.tokens.Issue(username)
	if err != nil {
		return utils.AccessToken{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.UpdateLoginTimestamp(ctx, username); err != nil {
		s.log.WarnContext(ctx, "update last login failed", "username", username, "err", err)
	}
	return tok, nil
}

// utcNow is the services' clock.  Microsecond precision matches DATETIME(6).
func utcNow() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
