package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"marketplace/internal/models"
)

func TestUserStoreCreate(t *testing.T) {
	ctx := context.Background()
	tgID := int64(42)
	tx := stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO users") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 11 || args[0] != "user-1" || args[1] != "a@b.c" || args[5] != models.RoleBuyer {
				t.Fatalf("unexpected args: %#v", args)
			}
			if args[8].(*int64) != &tgID {
				t.Fatalf("unexpected telegram id arg: %#v", args[8])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewUserStore(stubDB{})
	err := store.Create(ctx, tx, NewUser{
		ID: "user-1", Email: "a@b.c", PasswordHash: "hash", Username: "a",
		Role: models.RoleBuyer, ReferralCode: "ABCDEFGH", TelegramID: &tgID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserStoreGetByEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE lower(email) = lower($1)") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "A@B.C" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.User) = models.User{ID: "user-1"}
			return nil
		},
	})
	user, err := store.GetByEmail(ctx, "A@B.C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("unexpected user: %#v", user)
	}
}

func TestUserStoreGetByTelegramIDNoRows(t *testing.T) {
	store := NewUserStore(stubDB{
		getFn: func(_ context.Context, _ any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE telegram_id = $1") || args[0] != int64(7) {
				t.Fatalf("unexpected query: %s %#v", query, args)
			}
			return sql.ErrNoRows
		},
	})
	if _, err := store.GetByTelegramID(context.Background(), 7); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestUserStoreRecordFailedLogin(t *testing.T) {
	store := NewUserStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "failed_login_attempts = failed_login_attempts + 1") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 1}, nil
		},
	})
	if err := store.RecordFailedLogin(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserStoreResetFailedLoginsReportsRows(t *testing.T) {
	tx := stubDB{
		execFn: func(_ context.Context, query string, _ ...any) (sql.Result, error) {
			if !strings.Contains(query, "failed_login_attempts = 0") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 0}, nil
		},
	}
	rows, err := NewUserStore(stubDB{}).ResetFailedLogins(context.Background(), tx, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows, got %d", rows)
	}
}

func TestUserStoreUpdateProfileDropsUnknownColumns(t *testing.T) {
	store := NewUserStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			want := "UPDATE users SET bio = $1, name = $2, updated_at = NOW() WHERE id = $3"
			if query != want {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[0] != "hi" || args[1] != "Ann" || args[2] != "user-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	})
	rows, err := store.UpdateProfile(context.Background(), "user-1", map[string]any{
		"name": "Ann", "bio": "hi", "role": "admin", "password_hash": "x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row, got %d", rows)
	}
}

func TestUserStoreUpdateProfileRejectsEmptyPatch(t *testing.T) {
	store := NewUserStore(stubDB{
		execFn: func(context.Context, string, ...any) (sql.Result, error) {
			t.Fatalf("unexpected exec")
			return nil, nil
		},
	})
	_, err := store.UpdateProfile(context.Background(), "user-1", map[string]any{"role": "admin"})
	if !errors.Is(err, ErrNoProfileFields) {
		t.Fatalf("expected ErrNoProfileFields, got %v", err)
	}
}

func TestUserStoreUpdatePasswordClearsLockout(t *testing.T) {
	tx := stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "password_hash = $1, failed_login_attempts = 0") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != "hash" || args[1] != "user-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	if err := NewUserStore(stubDB{}).UpdatePassword(context.Background(), tx, "user-1", "hash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
