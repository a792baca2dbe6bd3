// Package postgres implements the stores on top of a bounded pgx
// connection pool. Writes run inside an implicit transaction and
// transient failures are retried with a linear backoff.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/storage"
)

// AcquirePolicy controls behavior when the pool is exhausted.
type AcquirePolicy int

const (
	// AcquireFailFast surfaces storage.ErrPoolExhausted once the connect
	// timeout elapses with every pooled connection busy.
	AcquireFailFast AcquirePolicy = iota

	// AcquireFallback opens a short-lived direct connection outside the
	// pool, bounded by the same connect timeout.
	AcquireFallback
)

// Config holds pool construction parameters.
type Config struct {
	DSN            string
	MinConns       int32
	MaxConns       int32
	ConnectTimeout time.Duration
	Policy         AcquirePolicy
	MaxRetries     int
	RetryBackoff   time.Duration
}

// DefaultConfig returns pool defaults matching a small single-writer
// deployment.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:            dsn,
		MinConns:       1,
		MaxConns:       5,
		ConnectTimeout: 5 * time.Second,
		Policy:         AcquireFailFast,
		MaxRetries:     2,
		RetryBackoff:   time.Second,
	}
}

// Pool wraps pgxpool.Pool with an explicit acquire policy and a retry
// policy shared by all stores.
type Pool struct {
	pool           *pgxpool.Pool
	connCfg        *pgx.ConnConfig
	connectTimeout time.Duration
	policy         AcquirePolicy
	maxRetries     int
	retryBackoff   time.Duration
}

// NewPool creates a new Postgres connection pool and verifies it with a
// round-trip health check.
func NewPool(ctx context.Context, cfg Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	p := &Pool{
		pool:           pool,
		connCfg:        poolCfg.ConnConfig,
		connectTimeout: cfg.ConnectTimeout,
		policy:         cfg.Policy,
		maxRetries:     cfg.MaxRetries,
		retryBackoff:   cfg.RetryBackoff,
	}
	if p.connectTimeout <= 0 {
		p.connectTimeout = 5 * time.Second
	}

	if err := p.Health(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return p, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// Stat returns pool statistics for observability.
func (p *Pool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

// querier is satisfied by both pooled and direct connections.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// acquire hands out a connection honoring the configured policy.
// The returned release function must be called on every exit path.
func (p *Pool) acquire(ctx context.Context) (querier, func(), error) {
	start := time.Now()
	defer func() {
		observability.ObservePoolAcquireWait(time.Since(start).Seconds())
		stat := p.pool.Stat()
		observability.RecordPoolStat(stat.IdleConns(), stat.AcquiredConns(), stat.TotalConns())
	}()

	acquireCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(acquireCtx)
	if err == nil {
		return conn, conn.Release, nil
	}

	// Only the acquire deadline with a live caller context counts as
	// exhaustion; everything else propagates.
	if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}

	if p.policy == AcquireFailFast {
		return nil, nil, storage.ErrPoolExhausted
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, p.connectTimeout)
	defer cancelConnect()

	direct, err := pgx.ConnectConfig(connectCtx, p.connCfg.Copy())
	if err != nil {
		return nil, nil, fmt.Errorf("fallback connect: %w", err)
	}
	release := func() {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), p.connectTimeout)
		defer cancelClose()
		_ = direct.Close(closeCtx)
	}
	return direct, release, nil
}

// Exec runs a statement inside an implicit transaction: commit on
// success, rollback on any error, connection always released. Transient
// failures are retried per the pool's retry policy.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	return Retry(ctx, p.maxRetries, p.retryBackoff, IsTransient, func(ctx context.Context) error {
		conn, release, err := p.acquire(ctx)
		if err != nil {
			return err
		}
		defer release()

		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// Query runs a read statement and hands the rows to scan. The scan
// callback must be restartable: reads are idempotent and retried on
// transient failure.
func (p *Pool) Query(ctx context.Context, scan func(pgx.Rows) error, sql string, args ...any) error {
	return Retry(ctx, p.maxRetries, p.retryBackoff, IsTransient, func(ctx context.Context) error {
		conn, release, err := p.acquire(ctx)
		if err != nil {
			return err
		}
		defer release()

		rows, err := conn.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		if err := scan(rows); err != nil {
			return err
		}
		return rows.Err()
	})
}

// Health performs a trivial round-trip query through the acquire path.
func (p *Pool) Health(ctx context.Context) error {
	err := p.Query(ctx, func(rows pgx.Rows) error {
		if !rows.Next() {
			return errors.New("health check returned no rows")
		}
		var one int
		if err := rows.Scan(&one); err != nil {
			return err
		}
		if one != 1 {
			return fmt.Errorf("health check returned %d", one)
		}
		return nil
	}, "SELECT 1")
	if err != nil {
		return fmt.Errorf("postgres health check: %w", err)
	}
	return nil
}

// PostgreSQL error codes.
const (
	pgErrUniqueViolation = "23505" // unique_violation
	pgErrDuplicateTable  = "42P07" // duplicate_table
	pgErrDuplicateObject = "42710" // duplicate_object
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// IsBenignSchemaRace reports whether a DDL error means another instance
// already applied the same object. Concurrent bring-up is expected.
func IsBenignSchemaRace(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrDuplicateTable || pgErr.Code == pgErrDuplicateObject
	}
	return false
}
