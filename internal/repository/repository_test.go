package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/messagely/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, "sqlite"))
	return db
}

func seedUser(t *testing.T, repo *UserRepo, username string) {
	t.Helper()
	_, err := repo.Create(context.Background(), NewUser{
		Username: username, Password: "pw-" + username, FirstName: "F", LastName: "L", Phone: "555",
	}, bcrypt.MinCost, time.Now().UTC())
	require.NoError(t, err)
}

func TestUserRepo_CreateAndGet(t *testing.T) {
	repo := NewUserRepo(openTestDB(t))
	ctx := context.Background()
	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	u, err := repo.Create(ctx, NewUser{
		Username: "alice", Password: "pw1", FirstName: "Alice", LastName: "A", Phone: "111",
	}, bcrypt.MinCost, joined)
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw1")))

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FirstName)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.True(t, joined.Equal(got.JoinAt))
	assert.Nil(t, got.LastLoginAt)
}

func TestUserRepo_DuplicateUsername(t *testing.T) {
	repo := NewUserRepo(openTestDB(t))
	seedUser(t, repo, "alice")

	_, err := repo.Create(context.Background(), NewUser{
		Username: "alice", Password: "x", FirstName: "x", LastName: "x", Phone: "x",
	}, bcrypt.MinCost, time.Now().UTC())
	require.ErrorIs(t, err, ErrUsernameExists)
}

func TestUserRepo_GetMissing(t *testing.T) {
	repo := NewUserRepo(openTestDB(t))
	_, err := repo.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_UpdateLoginTimestamp(t *testing.T) {
	repo := NewUserRepo(openTestDB(t))
	seedUser(t, repo, "bob")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.UpdateLoginTimestamp(context.Background(), "bob", at))

	got, err := repo.GetByUsername(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))
}

func TestMessageRepo_CreateGetMarkRead(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	seedUser(t, users, "alice")
	seedUser(t, users, "bob")
	repo := NewMessageRepo(db)
	ctx := context.Background()
	sent := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	m, err := repo.Create(ctx, "alice", "bob", "hi", sent)
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.Nil(t, m.ReadAt)

	d, err := repo.GetDetail(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, d.ID)
	assert.Equal(t, "hi", d.Body)
	assert.Equal(t, "alice", d.FromUser.Username)
	assert.Equal(t, "bob", d.ToUser.Username)
	assert.Equal(t, "555", d.ToUser.Phone)
	assert.True(t, sent.Equal(d.SentAt))
	assert.Nil(t, d.ReadAt)

	first := sent.Add(time.Minute)
	rc, err := repo.MarkRead(ctx, m.ID, first)
	require.NoError(t, err)
	require.NotNil(t, rc.ReadAt)
	assert.True(t, first.Equal(*rc.ReadAt))

	// second call keeps the original timestamp
	rc2, err := repo.MarkRead(ctx, m.ID, first.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, rc2.ReadAt)
	assert.True(t, first.Equal(*rc2.ReadAt))
}

func TestMessageRepo_Missing(t *testing.T) {
	repo := NewMessageRepo(openTestDB(t))
	ctx := context.Background()

	_, err := repo.GetDetail(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.MarkRead(ctx, 999, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_MySQLDuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", sqlmock.AnyArg(), "A", "B", "1", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'PRIMARY'"})

	_, err = NewUserRepo(db).Create(context.Background(), NewUser{
		Username: "alice", Password: "pw", FirstName: "A", LastName: "B", Phone: "1",
	}, bcrypt.MinCost, time.Now())
	require.ErrorIs(t, err, ErrUsernameExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_MySQLOtherErrorPassesThrough(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	boom := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(boom)

	_, err = NewUserRepo(db).Create(context.Background(), NewUser{Username: "a", Password: "p"}, bcrypt.MinCost, time.Now())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUsernameExists))
}

func TestMessageRepo_MarkReadIsConditional(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)^UPDATE\s+messages\s+SET\s+read_at\s*=\s*\?\s+WHERE\s+id\s*=\s*\?\s+AND\s+read_at\s+IS\s+NULL$`).
		WithArgs(at, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*read_at\s+FROM\s+messages`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "read_at"}).AddRow(uint64(7), at.Add(-time.Hour)))

	rc, err := NewMessageRepo(db).MarkRead(context.Background(), 7, at)
	require.NoError(t, err)
	require.NotNil(t, rc.ReadAt)
	assert.True(t, at.Add(-time.Hour).Equal(*rc.ReadAt))
	require.NoError(t, mock.ExpectationsWereMet())
}
