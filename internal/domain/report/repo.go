package report

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Runner executes one compiled statement and materializes at most rowCap
// rows. When more rows exist beyond the cap the result is marked truncated;
// that is information for the caller, never an error.
type Runner interface {
	Run(ctx context.Context, sql string, args pgx.NamedArgs, rowCap int) (Result, error)
}
