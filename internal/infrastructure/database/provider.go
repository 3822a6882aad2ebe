package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier executes one SQL statement and streams its rows.
// It is implemented by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Conn is a connection borrowed from a Provider. Release hands it back;
// a connection released mid-transaction is discarded by pgxpool rather
// than reused.
type Conn interface {
	Querier
	Release()
}

// Provider is the pooled-connection provider behind Pool. Querying the
// provider directly lets it pick (and return) a connection per call;
// Acquire pins one connection to the caller until Release.
type Provider interface {
	Querier
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close()
}

// pgxProvider adapts *pgxpool.Pool to Provider.
type pgxProvider struct {
	pool *pgxpool.Pool
}

// NewProvider wraps a pgx pool.
func NewProvider(pool *pgxpool.Pool) Provider {
	return &pgxProvider{pool: pool}
}

func (p *pgxProvider) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

func (p *pgxProvider) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (p *pgxProvider) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *pgxProvider) Close() {
	p.pool.Close()
}

// Stat exposes pgxpool statistics.
func (p *pgxProvider) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}
