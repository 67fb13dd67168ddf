package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// fakeState counts transaction outcomes; the first failCommits commits fail
// with failCode.
type fakeState struct {
	commits     int64
	rollbacks   int64
	failCommits int64
	failCode    string
}

type fakeDriver struct {
	state *fakeState
}

func (d *fakeDriver) Open(string) (driver.Conn, error) {
	return &fakeConn{state: d.state}, nil
}

type fakeConn struct {
	state *fakeState
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return fakeStmt{}, nil
}

func (c *fakeConn) Close() error {
	return nil
}

func (c *fakeConn) Begin() (driver.Tx, error) {
	return &fakeTx{state: c.state}, nil
}

func (c *fakeConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return &fakeTx{state: c.state}, nil
}

type fakeTx struct {
	state *fakeState
}

func (t *fakeTx) Commit() error {
	call := atomic.AddInt64(&t.state.commits, 1)
	if call <= t.state.failCommits {
		code := t.state.failCode
		if code == "" {
			code = "40001"
		}
		return &pq.Error{Code: pq.ErrorCode(code)}
	}
	return nil
}

func (t *fakeTx) Rollback() error {
	atomic.AddInt64(&t.state.rollbacks, 1)
	return nil
}

type fakeStmt struct{}

func (fakeStmt) Close() error                               { return nil }
func (fakeStmt) NumInput() int                              { return -1 }
func (fakeStmt) Exec([]driver.Value) (driver.Result, error) { return nil, nil }
func (fakeStmt) Query([]driver.Value) (driver.Rows, error)  { return nil, nil }

var driverCounter uint64

func openFakeDB(t *testing.T, state *fakeState) *sqlx.DB {
	t.Helper()
	name := fmt.Sprintf("fake-%d", atomic.AddUint64(&driverCounter, 1))
	sql.Register(name, &fakeDriver{state: state})
	sqlDB, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlx.NewDb(sqlDB, name)
}

func TestWithTxCommits(t *testing.T) {
	state := &fakeState{}
	xdb := openFakeDB(t, state)
	if err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.commits != 1 || state.rollbacks != 0 {
		t.Fatalf("expected commit=1 rollback=0, got %d/%d", state.commits, state.rollbacks)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	state := &fakeState{}
	xdb := openFakeDB(t, state)
	boom := errors.New("boom")
	err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if state.rollbacks != 1 || state.commits != 0 {
		t.Fatalf("expected rollback=1 commit=0, got %d/%d", state.rollbacks, state.commits)
	}
}

func TestWithTxRerunsUnitOnSerializationFailure(t *testing.T) {
	state := &fakeState{}
	xdb := openFakeDB(t, state)
	runs := 0
	err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error {
		runs++
		if runs == 1 {
			return &pq.Error{Code: "40001"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runs != 2 || state.rollbacks != 1 || state.commits != 1 {
		t.Fatalf("expected runs=2 rollback=1 commit=1, got %d/%d/%d", runs, state.rollbacks, state.commits)
	}
}

func TestWithTxRetriesFailedCommit(t *testing.T) {
	state := &fakeState{failCommits: 1}
	xdb := openFakeDB(t, state)
	if err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.commits != 2 {
		t.Fatalf("expected 2 commits, got %d", state.commits)
	}
}

func TestWithTxRetryCapExceeded(t *testing.T) {
	state := &fakeState{failCommits: 10, failCode: "40P01"}
	xdb := openFakeDB(t, state)
	err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return nil })
	if !IsRetryable(err) {
		t.Fatalf("expected the last deadlock error, got %v", err)
	}
	if state.commits != maxTxAttempts {
		t.Fatalf("expected %d commits, got %d", maxTxAttempts, state.commits)
	}
}

func TestUniqueViolationOn(t *testing.T) {
	err := fmt.Errorf("insert user: %w", &pq.Error{Code: "23505", Constraint: "users_referral_code_key"})
	if !UniqueViolationOn(err, "users_email_lower_key", "users_referral_code_key") {
		t.Fatalf("expected named constraint to match")
	}
	if UniqueViolationOn(err, "users_email_lower_key") {
		t.Fatalf("unexpected match on another constraint")
	}
	if UniqueViolationOn(&pq.Error{Code: "40001", Constraint: "users_email_lower_key"}, "users_email_lower_key") {
		t.Fatalf("unexpected match on serialization failure")
	}
}

func TestWithSearchPath(t *testing.T) {
	cases := []struct {
		url, schema, want string
	}{
		{"postgres://u:p@h/db?sslmode=disable", "public", "postgres://u:p@h/db?sslmode=disable"},
		{"postgres://u:p@h/db?sslmode=disable", "", "postgres://u:p@h/db?sslmode=disable"},
		{"postgres://u:p@h/db?sslmode=disable", "app", "postgres://u:p@h/db?search_path=app&sslmode=disable"},
		{"host=h dbname=db", "app", "host=h dbname=db search_path=app"},
	}
	for _, tc := range cases {
		if got := WithSearchPath(tc.url, tc.schema); got != tc.want {
			t.Fatalf("WithSearchPath(%q, %q) = %q, want %q", tc.url, tc.schema, got, tc.want)
		}
	}
}
