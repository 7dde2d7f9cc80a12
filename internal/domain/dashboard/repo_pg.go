package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospstats/hospstats/internal/platform/db"
)

// defaultMaxWorkers bounds batch concurrency independently of catalog size.
const defaultMaxWorkers = 8

type warehousePG struct {
	manager        *db.Manager
	maxWorkers     int
	acquireTimeout time.Duration
}

// NewWarehouse creates the pgx-backed warehouse. maxWorkers <= 0 selects the
// default bound; acquireTimeout bounds pool acquisition per batch.
func NewWarehouse(manager *db.Manager, maxWorkers int, acquireTimeout time.Duration) Warehouse {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &warehousePG{
		manager:        manager,
		maxWorkers:     maxWorkers,
		acquireTimeout: acquireTimeout,
	}
}

// RunBatch dispatches one job per template through a bounded worker pool and
// join-waits for all of them. Jobs are independent; no ordering is
// guaranteed between them, only that every outcome is present on return.
func (w *warehousePG) RunBatch(ctx context.Context, cat Catalog, fc FilterContext) (map[string]QueryOutcome, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, w.acquireTimeout)
	defer cancel()

	pool, err := w.manager.Acquire(acquireCtx)
	if err != nil {
		// Pool unavailable: the whole batch fails, nothing is dispatched.
		return nil, err
	}

	workers := w.maxWorkers
	if len(cat.Templates) < workers {
		workers = len(cat.Templates)
	}

	jobs := make(chan QueryTemplate)
	outcomes := make(map[string]QueryOutcome, len(cat.Templates))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				tbl, err := w.runQuery(ctx, pool, cat, t, fc)
				mu.Lock()
				if err != nil {
					outcomes[t.Name] = QueryOutcome{Err: &QueryError{Template: t.Name, Err: err}}
				} else {
					outcomes[t.Name] = QueryOutcome{Table: tbl}
				}
				mu.Unlock()
			}
		}()
	}

	for _, t := range cat.Templates {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	if cat.OnQueryFailure == FailFast {
		for _, t := range cat.Templates {
			if o := outcomes[t.Name]; o.Err != nil {
				return nil, o.Err
			}
		}
	}
	return outcomes, nil
}

func (w *warehousePG) runQuery(ctx context.Context, pool *pgxpool.Pool, cat Catalog, t QueryTemplate, fc FilterContext) (ResultTable, error) {
	args, err := cat.BindParams(t, fc)
	if err != nil {
		return ResultTable{}, err
	}

	rows, err := pool.Query(ctx, t.SQL, args)
	if err != nil {
		return ResultTable{}, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	return scanTable(rows)
}

// scanTable materializes a pgx result into a ResultTable. The column schema
// is captured even when the result has no rows.
func scanTable(rows pgx.Rows) (ResultTable, error) {
	fields := rows.FieldDescriptions()
	tbl := ResultTable{Columns: make([]string, len(fields))}
	for i, fd := range fields {
		tbl.Columns[i] = string(fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return ResultTable{}, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]interface{}, len(fields))
		for i := range fields {
			row[tbl.Columns[i]] = values[i]
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ResultTable{}, fmt.Errorf("iterate rows: %w", err)
	}
	return tbl, nil
}
