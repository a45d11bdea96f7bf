package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB holds the connection pool plus the read caches that the alias
// and provider key repositories consult on the request path
type DB struct {
	conn *sqlx.DB

	aliasCache       *LRUCache
	providerKeyCache *LRUCache
}

// DBConfig holds connection, pool and cache settings
type DBConfig struct {
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	AliasCacheSize       int
	AliasCacheTTL        time.Duration
	ProviderKeyCacheSize int
	ProviderKeyCacheTTL  time.Duration
}

// DefaultDBConfig returns settings suitable for local development
func DefaultDBConfig() DBConfig {
	return DBConfig{
		DSN: "postgres://postgres@localhost:5432/modelgw?sslmode=disable",

		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		AliasCacheSize:       500,
		AliasCacheTTL:        1 * time.Minute,
		ProviderKeyCacheSize: 500,
		ProviderKeyCacheTTL:  5 * time.Minute,
	}
}

// NewDB opens the connection pool and attaches the read caches
func NewDB(cfg DBConfig) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := &DB{
		conn:             conn,
		aliasCache:       NewLRUCache(cfg.AliasCacheSize, cfg.AliasCacheTTL),
		providerKeyCache: NewLRUCache(cfg.ProviderKeyCacheSize, cfg.ProviderKeyCacheTTL),
	}

	return db, nil
}

// Close closes the database connection and clears caches
func (db *DB) Close() error {
	db.aliasCache.Clear()
	db.providerKeyCache.Clear()
	return db.conn.Close()
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health verifies the database both answers a ping and can execute a
// query, so a wedged pool is reported as unhealthy
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var one int
	if err := db.conn.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}
	return nil
}

// BeginTx starts a transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// Conn exposes the underlying sqlx handle for queries not covered by
// the repositories
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// CleanupExpiredCacheEntries evicts expired entries from both caches
// and reports how many were removed. Intended to run on a ticker.
func (db *DB) CleanupExpiredCacheEntries() (aliasRemoved, providerKeyRemoved int) {
	return db.aliasCache.CleanupExpired(), db.providerKeyCache.CleanupExpired()
}

// NewAccountRepository creates an account repository on this pool
func (db *DB) NewAccountRepository() *AccountRepository {
	return NewAccountRepository(db)
}

// NewProviderKeyRepository creates a provider key repository on this pool
func (db *DB) NewProviderKeyRepository() *ProviderKeyRepository {
	return NewProviderKeyRepository(db)
}

// NewAliasRepository creates an alias repository on this pool
func (db *DB) NewAliasRepository() *AliasRepository {
	return NewAliasRepository(db)
}

// NewUsageRepository creates a usage repository on this pool
func (db *DB) NewUsageRepository() *UsageRepository {
	return NewUsageRepository(db)
}

// NewProviderModelRepository creates a provider model repository on this pool
func (db *DB) NewProviderModelRepository() *ProviderModelRepository {
	return NewProviderModelRepository(db)
}
