package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps entries in the transfer_state table. Take is a single
// DELETE ... RETURNING, which makes consumption atomic.
type Postgres struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

func NewPostgres(db *pgxpool.Pool, ttl time.Duration) *Postgres {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Postgres{db: db, ttl: ttl}
}

func (p *Postgres) Has(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := p.db.QueryRow(ctx,
		`select exists (select 1 from transfer_state where key = $1 and expires_at > now())`, key,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("transfer has: %w", err)
	}
	return ok, nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(ctx,
		`select value from transfer_state where key = $1 and expires_at > now()`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("transfer get: %w", err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.Exec(ctx, `
		insert into transfer_state (key, value, expires_at)
		values ($1, $2, $3)
		on conflict (key) do update set value = excluded.value, expires_at = excluded.expires_at
	`, key, value, time.Now().UTC().Add(p.ttl))
	if err != nil {
		return fmt.Errorf("transfer set: %w", err)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, `delete from transfer_state where key = $1`, key); err != nil {
		return fmt.Errorf("transfer remove: %w", err)
	}
	return nil
}

func (p *Postgres) Take(ctx context.Context, key string) ([]byte, error) {
	var (
		value   []byte
		expires time.Time
	)
	err := p.db.QueryRow(ctx,
		`delete from transfer_state where key = $1 returning value, expires_at`, key,
	).Scan(&value, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("transfer take: %w", err)
	}
	if !time.Now().Before(expires) {
		return nil, ErrNotFound
	}
	return value, nil
}

// Purge deletes expired rows and returns how many were removed.
func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	tag, err := p.db.Exec(ctx, `delete from transfer_state where expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("transfer purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
