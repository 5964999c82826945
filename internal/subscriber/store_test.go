package subscriber

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{DB: db}, mock
}

func subscriberRows(email, status, token string, subscribedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "status", "unsubscribe_token", "subscribed_at", "unsubscribed_at"}).
		AddRow(1, email, status, token, subscribedAt, nil)
}

func TestAddNormalizesAndInserts(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO subscribers").
		WithArgs("user@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id, email, status, unsubscribe_token, subscribed_at, unsubscribed_at").
		WithArgs("user@example.com").
		WillReturnRows(subscriberRows("user@example.com", StatusActive, "tok", now))

	sub, err := st.Add(context.Background(), "  User@Example.COM ")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sub.Email != "user@example.com" || sub.Status != StatusActive {
		t.Fatalf("unexpected subscriber: %+v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddRejectsEmptyEmail(t *testing.T) {
	st, _ := newMockStore(t)
	if _, err := st.Add(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty email")
	}
}

func TestGetByTokenNotFound(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, email, status, unsubscribe_token").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status", "unsubscribe_token", "subscribed_at", "unsubscribed_at"}))

	_, err := st.GetByToken(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUnsubscribeFlipsStatus(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, email, status, unsubscribe_token").
		WithArgs("tok").
		WillReturnRows(subscriberRows("user@example.com", StatusActive, "tok", now))
	mock.ExpectExec("UPDATE subscribers SET status = 'unsubscribed'").
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, email, status, unsubscribe_token").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status", "unsubscribe_token", "subscribed_at", "unsubscribed_at"}).
			AddRow(1, "user@example.com", StatusUnsubscribed, "tok", now, now))

	sub, err := st.Unsubscribe(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if sub.Status != StatusUnsubscribed {
		t.Fatalf("status = %q, want unsubscribed", sub.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	// Already unsubscribed: only the lookup runs, no UPDATE.
	mock.ExpectQuery("SELECT id, email, status, unsubscribe_token").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status", "unsubscribe_token", "subscribed_at", "unsubscribed_at"}).
			AddRow(1, "user@example.com", StatusUnsubscribed, "tok", now, now))

	sub, err := st.Unsubscribe(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if sub.Status != StatusUnsubscribed {
		t.Fatalf("status = %q", sub.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUnsubscribeUnknownToken(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, email, status, unsubscribe_token").
		WithArgs("bogus").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status", "unsubscribe_token", "subscribed_at", "unsubscribed_at"}))

	if _, err := st.Unsubscribe(context.Background(), "bogus"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestActiveEmails(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery("SELECT email FROM subscribers WHERE status = 'active'").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@x.com").AddRow("b@x.com"))

	emails, err := st.ActiveEmails(context.Background())
	if err != nil {
		t.Fatalf("ActiveEmails: %v", err)
	}
	if len(emails) != 2 || emails[0] != "a@x.com" {
		t.Fatalf("emails = %v", emails)
	}
}

func TestStats(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count", "active", "unsubscribed"}).AddRow(10, 7, 3))

	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 10 || stats.Active != 7 || stats.Unsubscribed != 3 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestMigrateFromListSkipsExisting(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO subscribers").
		WithArgs("new@x.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO subscribers").
		WithArgs("existing@x.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := st.MigrateFromList(context.Background(), []string{"new@x.com", "existing@x.com", "  "})
	if err != nil {
		t.Fatalf("MigrateFromList: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNewTokenUnique(t *testing.T) {
	a := newToken("same@x.com")
	b := newToken("same@x.com")
	if a == b {
		t.Fatalf("tokens for the same email should differ")
	}
	if len(a) != 64 {
		t.Fatalf("token should be hex sha256, got %d chars", len(a))
	}
}
