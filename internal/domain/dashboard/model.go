package dashboard

import (
	"errors"
	"fmt"
)

// InsuranceType is one of the three canonical insurance predicate sets.
type InsuranceType string

const (
	InsuranceAll       InsuranceType = "all"
	InsuranceInsured   InsuranceType = "insured"
	InsuranceUninsured InsuranceType = "uninsured"
)

// Flags returns the warehouse flag values the predicate matches. The fact
// tables store 'S' (asegurado) and 'N' (no asegurado).
func (i InsuranceType) Flags() []string {
	switch i {
	case InsuranceInsured:
		return []string{"S"}
	case InsuranceUninsured:
		return []string{"N"}
	default:
		return []string{"S", "N"}
	}
}

// FilterContext is the canonical, validated filter a batch executes under.
// It is created per request and never mutated.
type FilterContext struct {
	FacilityCode string
	Period       string // two-digit month, "01".."12"
	Year         string // four-digit year
	Insurance    InsuranceType
}

// ResultTable holds one query's materialized rows. Columns carries the
// result schema even when no rows came back.
type ResultTable struct {
	Columns []string
	Rows    []map[string]interface{}
}

// TableEntry is one row of a grouped breakdown table.
type TableEntry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// GroupedTable is a small top-N breakdown of a metric by a categorical
// dimension, ordered descending by value.
type GroupedTable []TableEntry

// DashboardSnapshot is the immutable per-request artifact handed to the
// presentation layer. The presentation layer binds to the stat and table
// keys by name.
type DashboardSnapshot struct {
	Domain       string                  `json:"domain"`
	FacilityName string                  `json:"facility_name"`
	Stats        map[string]float64      `json:"stats"`
	Tables       map[string]GroupedTable `json:"tables"`
}

var (
	// ErrIncompleteFilter means required filter fields are missing; no
	// database access was attempted.
	ErrIncompleteFilter = errors.New("dashboard: incomplete filter selection")

	// ErrUnknownDomain means no catalog is registered for the requested tab.
	ErrUnknownDomain = errors.New("dashboard: unknown domain")
)

// QueryError is one named query's failure, isolated to its entry in the
// batch result.
type QueryError struct {
	Template string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Template, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// QueryOutcome is one template's result within a batch: either a table or a
// QueryError, never both.
type QueryOutcome struct {
	Table ResultTable
	Err   *QueryError
}
