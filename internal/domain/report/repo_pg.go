package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hospstats/hospstats/internal/platform/db"
)

type runnerPG struct {
	manager        *db.Manager
	acquireTimeout time.Duration
}

// NewRunner creates the pgx-backed statement runner sharing the service's
// managed pool.
func NewRunner(manager *db.Manager, acquireTimeout time.Duration) Runner {
	return &runnerPG{manager: manager, acquireTimeout: acquireTimeout}
}

func (r *runnerPG) Run(ctx context.Context, sql string, args pgx.NamedArgs, rowCap int) (Result, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	pool, err := r.manager.Acquire(acquireCtx)
	if err != nil {
		return Result{}, err
	}

	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		return Result{}, fmt.Errorf("execute report: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := Result{Columns: make([]string, len(fields))}
	for i, fd := range fields {
		res.Columns[i] = string(fd.Name)
	}

	for rows.Next() {
		if len(res.Rows) == rowCap {
			// One row past the cap exists; report truncation and stop
			// reading instead of materializing the rest.
			res.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return Result{}, fmt.Errorf("read report row: %w", err)
		}
		row := make(map[string]interface{}, len(fields))
		for i := range fields {
			row[res.Columns[i]] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	if !res.Truncated {
		if err := rows.Err(); err != nil {
			return Result{}, fmt.Errorf("iterate report rows: %w", err)
		}
	}
	return res, nil
}
