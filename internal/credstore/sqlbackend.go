package credstore

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

const createCredentialsTable = `
create table if not exists credentials (
	key        text primary key,
	value      text not null,
	expires_at integer
)`

// SQLBackend persists credentials in a local database so they survive
// process restarts, the way the browser client keeps them in localStorage.
// It speaks plain database/sql; the demo binary opens it with the sqlite
// driver.
type SQLBackend struct {
	db  *sql.DB
	now func() time.Time
}

// SQLOption configures SQLBackend behavior.
type SQLOption func(*SQLBackend)

// WithSQLClock overrides the time source used for expiry checks.
func WithSQLClock(fn func() time.Time) SQLOption {
	return func(b *SQLBackend) {
		if fn != nil {
			b.now = fn
		}
	}
}

// NewSQLBackend prepares the credentials table and returns a ready backend.
func NewSQLBackend(db *sql.DB, opts ...SQLOption) (*SQLBackend, error) {
	if db == nil {
		return nil, errors.New("credstore: db is required")
	}
	b := &SQLBackend{db: db, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if _, err := db.Exec(createCredentialsTable); err != nil {
		return nil, errors.Wrap(err, "credstore: create credentials table")
	}
	return b, nil
}

// Get returns the stored value unless it is missing or past its expiry.
// Expired rows are removed lazily on read. Database errors read as absent:
// the store's fail-closed policy turns them into a logged-out state instead
// of a crash.
func (b *SQLBackend) Get(key string) (string, bool) {
	var value string
	var expiresAt sql.NullInt64
	err := b.db.QueryRow("select value, expires_at from credentials where key = ?", key).
		Scan(&value, &expiresAt)
	if err != nil {
		return "", false
	}
	if expiresAt.Valid && expiresAt.Int64 <= b.now().Unix() {
		b.Delete(key)
		return "", false
	}
	return value, true
}

func (b *SQLBackend) Set(key, value string, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: b.now().Add(ttl).Unix(), Valid: true}
	}
	_, err := b.db.Exec(
		`insert into credentials(key, value, expires_at) values (?, ?, ?)
		 on conflict(key) do update set value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	return errors.Wrap(err, "credstore: persist credential")
}

func (b *SQLBackend) Delete(key string) {
	_, _ = b.db.Exec("delete from credentials where key = ?", key)
}
