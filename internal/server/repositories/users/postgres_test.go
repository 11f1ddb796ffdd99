package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avolkov/accountd/internal/common"
	"github.com/avolkov/accountd/internal/server/models"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestPostgresCreate_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "Bob", "bob@example.com", "hash", false, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	r := NewPostgresRepository(db)
	created, err := r.Create(context.Background(), &models.User{
		Name:         "Bob",
		Email:        "bob@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_DuplicateEmail(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	r := NewPostgresRepository(db)
	_, err := r.Create(context.Background(), &models.User{
		Name:         "Bob",
		Email:        "bob@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("expected common.ErrorConflict, got %v", err)
	}
}

func TestPostgresFindByEmail_NotFound(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	r := NewPostgresRepository(db)
	_, err := r.FindByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestPostgresRotateRefreshToken_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET refresh_token .+ WHERE id .+ AND refresh_token`).
		WithArgs("u1", "old-token", "new-token", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostgresRepository(db)
	if err := r.RotateRefreshToken(context.Background(), "u1", "old-token", "new-token"); err != nil {
		t.Fatalf("RotateRefreshToken error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRotateRefreshToken_StaleToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	// the stored token has already moved on; the conditional update matches nothing
	mock.ExpectExec(`UPDATE users SET refresh_token`).
		WithArgs("u1", "stale-token", "new-token", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewPostgresRepository(db)
	err := r.RotateRefreshToken(context.Background(), "u1", "stale-token", "new-token")
	if !errors.Is(err, common.ErrRefreshTokenReused) {
		t.Fatalf("expected common.ErrRefreshTokenReused, got %v", err)
	}
}

func TestPostgresSetRefreshToken_Clear(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET refresh_token`).
		WithArgs("u1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostgresRepository(db)
	if err := r.SetRefreshToken(context.Background(), "u1", nil); err != nil {
		t.Fatalf("SetRefreshToken error: %v", err)
	}
}

func TestPostgresUpdatePassword_MissingUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("missing", "new-hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewPostgresRepository(db)
	err := r.UpdatePassword(context.Background(), "missing", "new-hash")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}
