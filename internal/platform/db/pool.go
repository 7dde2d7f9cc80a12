package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConnectionUnavailable is returned by Manager.Acquire when the pool could
// not be built or validated after all retry attempts.
var ErrConnectionUnavailable = errors.New("db: connection unavailable")

const buildAttempts = 3

// backoffFor returns the wait before retrying after a failed build attempt.
// The schedule is linear: 1s after the first failure, 2s after the second.
func backoffFor(attempt int) time.Duration {
	return time.Duration(attempt) * time.Second
}

// NewPool builds a pgx connection pool and verifies it with a ping. A pool
// that cannot answer the ping is closed and rejected.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// BuildFunc constructs and liveness-checks a pool. It exists so tests can
// substitute a recording builder for the real NewPool.
type BuildFunc func(ctx context.Context) (*pgxpool.Pool, error)

// Manager owns the single shared connection pool for a service instance. A
// pool is built lazily on first Acquire, re-validated with a ping on every
// later Acquire, and rebuilt from scratch when the ping fails. Construction
// is mutex-guarded: concurrent callers during a (re)build block rather than
// racing to build duplicate pools, and a failed build leaves no cached state.
type Manager struct {
	mu      sync.Mutex
	build   BuildFunc
	backoff func(attempt int) time.Duration
	ping    func(ctx context.Context, pool *pgxpool.Pool) error
	pool    *pgxpool.Pool
}

// NewManager creates a Manager that builds pools against databaseURL.
func NewManager(databaseURL string, maxConns, minConns int32) *Manager {
	return NewManagerWithBuilder(func(ctx context.Context) (*pgxpool.Pool, error) {
		return NewPool(ctx, databaseURL, maxConns, minConns)
	})
}

// NewManagerWithBuilder creates a Manager with a custom pool builder.
func NewManagerWithBuilder(build BuildFunc) *Manager {
	return &Manager{
		build:   build,
		backoff: backoffFor,
		ping: func(ctx context.Context, pool *pgxpool.Pool) error {
			return pool.Ping(ctx)
		},
	}
}

// Acquire returns the shared pool, building it if needed. The caller's
// context bounds the whole acquisition including backoff waits; when it
// expires the result is ErrConnectionUnavailable.
func (m *Manager) Acquire(ctx context.Context) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		if err := m.ping(ctx, m.pool); err == nil {
			return m.pool, nil
		}
		m.pool.Close()
		m.pool = nil
	}

	var lastErr error
	for attempt := 1; attempt <= buildAttempts; attempt++ {
		pool, err := m.build(ctx)
		if err == nil {
			m.pool = pool
			return pool, nil
		}
		lastErr = err

		if attempt == buildAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrConnectionUnavailable, ctx.Err())
		case <-time.After(m.backoff(attempt)):
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrConnectionUnavailable, buildAttempts, lastErr)
}

// Close releases the managed pool, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
	}
}
