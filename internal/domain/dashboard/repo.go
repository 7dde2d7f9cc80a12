package dashboard

import "context"

// Warehouse executes a catalog's templates against the analytical store.
// RunBatch returns exactly one outcome per template in the catalog. A
// per-query failure is captured in that query's outcome; the returned error
// is non-nil only when nothing could be dispatched (pool unavailable) or
// when the catalog's failure policy is fail-fast and a query failed.
type Warehouse interface {
	RunBatch(ctx context.Context, cat Catalog, fc FilterContext) (map[string]QueryOutcome, error)
}
