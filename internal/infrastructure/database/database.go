package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// Database configuration constants.
const (
	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second
)

// DB is the façade over the connection pool, the table definitions and
// the schema script they generate.
//
// Each DB owns its own SchemaScript, so several DBs in one process never
// share DDL.
type DB struct {
	pool      *Pool
	provider  Provider
	script    *SchemaScript
	models    map[string]*Model
	showQuery bool
	logger    *logging.Logger
}

// Config contains database configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// URL is a full connection string. When set, the fields below that
	// describe the server are ignored.
	URL string

	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	// MaxConns and MinConns size the pool. Zero keeps the pgxpool default.
	MaxConns int32
	MinConns int32

	// MaxConnLifetime and MaxConnIdleTime recycle connections. Zero keeps
	// the pgxpool default.
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// ConnectTimeout bounds each new connection.
	ConnectTimeout time.Duration

	// ShowQuery logs every statement issued through defined models and sync.
	ShowQuery bool
}

// DefineOptions configures DB.Define.
type DefineOptions struct {
	// Schema defaults to DefaultSchema.
	Schema string

	// ShowQuery logs every statement the model issues.
	ShowQuery bool
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// Open creates the connection pool and verifies it with a ping.
//
// Parameters:
//   - ctx: Context for the initial connection
//   - cfg: Database configuration
//   - logger: Logger for query failures and transaction events
//
// Returns:
//   - *DB: Connected database façade
//   - error: If configuration is invalid or the server is unreachable
func Open(ctx context.Context, cfg Config, logger *logging.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pgPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := New(NewProvider(pgPool), logger)
	db.showQuery = cfg.ShowQuery

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.provider.Ping(pingCtx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	return db, nil
}

// New creates a DB over an existing provider.
func New(provider Provider, logger *logging.Logger) *DB {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", "database")

	return &DB{
		pool:     NewPool(provider, logger),
		provider: provider,
		script:   NewSchemaScript(),
		models:   make(map[string]*Model),
		logger:   logger,
	}
}

// connString builds a postgres:// URL from cfg.
func connString(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else if cfg.User != "" {
		u.User = url.User(cfg.User)
	}

	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Close closes every pooled connection.
// It should be called when the application shuts down.
func (db *DB) Close() {
	if db.provider == nil {
		return
	}
	db.provider.Close()
}

// HealthCheck verifies the database is accessible and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (db *DB) HealthCheck(ctx context.Context) error {
	result := db.pool.Query(ctx, "SELECT 1", QueryOptions{})
	if !result.IsSuccess() {
		return fmt.Errorf("database health check failed: %w", result.Failure)
	}
	return nil
}

// Stats returns connection pool statistics. Providers other than pgxpool
// report zeros.
func (db *DB) Stats() PoolStats {
	s, ok := db.provider.(interface{ Stat() *pgxpool.Stat })
	if !ok {
		return PoolStats{}
	}
	stat := s.Stat()
	return PoolStats{
		TotalConns:    stat.TotalConns(),
		AcquiredConns: stat.AcquiredConns(),
		IdleConns:     stat.IdleConns(),
		MaxConns:      stat.MaxConns(),
	}
}

// Pool returns the query gateway.
func (db *DB) Pool() *Pool {
	return db.pool
}

// Script returns the schema script built by Define and SetForeignKey.
func (db *DB) Script() *SchemaScript {
	return db.script
}

// Query runs sql through the pool. See Pool.Query.
func (db *DB) Query(ctx context.Context, sql string, opts QueryOptions) Result {
	return db.pool.Query(ctx, sql, opts)
}

// BeginTransaction acquires a connection and starts a transaction on it.
//
// Example:
//
//	tx, err := db.BeginTransaction(ctx, database.TxOptions{RollbackOnError: true})
//	if err != nil {
//	    return err
//	}
//	row := users.Create(ctx, fields, database.ModelOptions{Tx: tx})
//	if row == nil {
//	    return errCreateFailed // already rolled back
//	}
//	return tx.Commit(ctx)
func (db *DB) BeginTransaction(ctx context.Context, opts TxOptions) (*Transaction, error) {
	return db.pool.BeginTransaction(ctx, opts)
}

// Define registers a table and returns its Model.
//
// It adds the table's schema to the script (seeding DROP/CREATE SCHEMA
// when the schema is new), appends DROP TABLE IF EXISTS and CREATE TABLE IF
// NOT EXISTS, and registers a SELECT probe for non-altering syncs. Nothing
// is executed until Sync.
//
// Define is meant for startup; it is not safe for concurrent use.
func (db *DB) Define(table string, columns []Column, opts DefineOptions) (*Model, error) {
	ts, err := newTableSchema(opts.Schema, table, columns)
	if err != nil {
		return nil, err
	}

	key := ts.Schema + "." + ts.Table
	if _, exists := db.models[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, key)
	}

	db.script.AddSchema(ts.Schema)
	db.script.Append(ts.Schema, BucketDrop, ts.dropStatement())
	db.script.Append(ts.Schema, BucketCreate, ts.createStatement())
	db.script.AddProbe(ts.probeStatement())

	model := &Model{
		schema:    ts,
		pool:      db.pool,
		script:    db.script,
		showQuery: opts.ShowQuery || db.showQuery,
		logger:    db.logger.With("table", key),
	}
	db.models[key] = model

	db.logger.Debug("table defined", "table", key, "columns", len(ts.Columns))
	return model, nil
}

// Model returns a previously defined model.
func (db *DB) Model(schema, table string) (*Model, bool) {
	if schema == "" {
		schema = DefaultSchema
	}
	m, ok := db.models[schema+"."+table]
	return m, ok
}
