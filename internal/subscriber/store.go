// Package subscriber persists the mailing list in Postgres: active and
// unsubscribed recipients, per-recipient unsubscribe tokens, and counters.
package subscriber

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/airadev/newsroom/config"
)

// Subscriber statuses.
const (
	StatusActive       = "active"
	StatusUnsubscribed = "unsubscribed"
)

// ErrNotFound is returned by lookups that match no subscriber.
var ErrNotFound = errors.New("subscriber not found")

// Subscriber is one mailing-list entry.
type Subscriber struct {
	ID               int64
	Email            string
	Status           string
	UnsubscribeToken string
	SubscribedAt     time.Time
	UnsubscribedAt   *time.Time
}

// Stats summarises the list by status.
type Stats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Unsubscribed int `json:"unsubscribed"`
}

type Store struct {
	DB *sql.DB
}

// New opens the subscriber store against the configured Postgres instance.
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// Add subscribes an email address. Adding an address that previously
// unsubscribed reactivates it with a fresh token; adding an already-active
// address is a no-op. Returns the stored subscriber either way.
func (s *Store) Add(ctx context.Context, email string) (*Subscriber, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	token := newToken(email)
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO subscribers (email, status, unsubscribe_token, subscribed_at)
        VALUES ($1, 'active', $2, NOW())
        ON CONFLICT (email) DO UPDATE
        SET status = 'active',
            unsubscribe_token = CASE WHEN subscribers.status = 'unsubscribed' THEN EXCLUDED.unsubscribe_token ELSE subscribers.unsubscribe_token END,
            unsubscribed_at = NULL
        WHERE subscribers.status = 'unsubscribed'`,
		email, token)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return nil, fmt.Errorf("subscribe %s: %s", email, pqErr.Message)
		}
		return nil, err
	}
	return s.GetByEmail(ctx, email)
}

// GetByEmail looks up one subscriber by address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Subscriber, error) {
	return s.get(ctx, `SELECT id, email, status, unsubscribe_token, subscribed_at, unsubscribed_at
        FROM subscribers WHERE email = $1`, normalizeEmail(email))
}

// GetByToken looks up one subscriber by unsubscribe token.
func (s *Store) GetByToken(ctx context.Context, token string) (*Subscriber, error) {
	return s.get(ctx, `SELECT id, email, status, unsubscribe_token, subscribed_at, unsubscribed_at
        FROM subscribers WHERE unsubscribe_token = $1`, token)
}

func (s *Store) get(ctx context.Context, query string, arg any) (*Subscriber, error) {
	var sub Subscriber
	var unsubAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, arg).Scan(
		&sub.ID, &sub.Email, &sub.Status, &sub.UnsubscribeToken, &sub.SubscribedAt, &unsubAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if unsubAt.Valid {
		sub.UnsubscribedAt = &unsubAt.Time
	}
	return &sub, nil
}

// Unsubscribe flips the token's owner to unsubscribed. Unknown tokens return
// ErrNotFound; repeating a valid token is idempotent and reports the owner.
func (s *Store) Unsubscribe(ctx context.Context, token string) (*Subscriber, error) {
	sub, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sub.Status == StatusUnsubscribed {
		return sub, nil
	}
	_, err = s.DB.ExecContext(ctx, `
        UPDATE subscribers SET status = 'unsubscribed', unsubscribed_at = NOW()
        WHERE unsubscribe_token = $1`, token)
	if err != nil {
		return nil, err
	}
	return s.GetByToken(ctx, token)
}

// ActiveEmails returns every active address, oldest subscription first.
func (s *Store) ActiveEmails(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT email FROM subscribers WHERE status = 'active' ORDER BY subscribed_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

// Active returns every active subscriber with its token, oldest first.
func (s *Store) Active(ctx context.Context) ([]Subscriber, error) {
	return s.list(ctx, `SELECT id, email, status, unsubscribe_token, subscribed_at, unsubscribed_at
        FROM subscribers WHERE status = 'active' ORDER BY subscribed_at ASC`)
}

// List returns every subscriber, newest first.
func (s *Store) List(ctx context.Context) ([]Subscriber, error) {
	return s.list(ctx, `SELECT id, email, status, unsubscribe_token, subscribed_at, unsubscribed_at
        FROM subscribers ORDER BY subscribed_at DESC`)
}

func (s *Store) list(ctx context.Context, query string) ([]Subscriber, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subscriber
	for rows.Next() {
		var sub Subscriber
		var unsubAt sql.NullTime
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.Status, &sub.UnsubscribeToken, &sub.SubscribedAt, &unsubAt); err != nil {
			return nil, err
		}
		if unsubAt.Valid {
			sub.UnsubscribedAt = &unsubAt.Time
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Stats counts subscribers by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.DB.QueryRowContext(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'active'),
               COUNT(*) FILTER (WHERE status = 'unsubscribed')
        FROM subscribers`).Scan(&st.Total, &st.Active, &st.Unsubscribed)
	return st, err
}

// MigrateFromList imports a static recipient list, skipping addresses that are
// already present. Returns how many rows were inserted.
func (s *Store) MigrateFromList(ctx context.Context, emails []string) (int, error) {
	inserted := 0
	for _, email := range emails {
		email = normalizeEmail(email)
		if email == "" {
			continue
		}
		res, err := s.DB.ExecContext(ctx, `
            INSERT INTO subscribers (email, status, unsubscribe_token, subscribed_at)
            VALUES ($1, 'active', $2, NOW())
            ON CONFLICT (email) DO NOTHING`, email, newToken(email))
		if err != nil {
			return inserted, fmt.Errorf("import %s: %w", email, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newToken derives an opaque per-subscriber unsubscribe token. The uuid salt
// makes tokens unguessable even for a known address and timestamp.
func newToken(email string) string {
	h := sha256.Sum256([]byte(email + time.Now().String() + uuid.NewString()))
	return hex.EncodeToString(h[:])
}
