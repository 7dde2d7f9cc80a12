package report

import "errors"

// FilterSet is the sparse filter selection for the diagnosis report. Year
// and period are mandatory; every other field is optional and an empty
// value means "no restriction".
type FilterSet struct {
	Year        string
	Period      string
	Network     string
	Facility    string
	Service     string
	Activity    string
	Subactivity string
	Chapter     string
	Sex         string
}

// Result is the single tabular answer of one compiled report. Truncated
// signals the row cap was hit; the rows present are still valid.
type Result struct {
	Columns   []string                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	Truncated bool                     `json:"truncated"`
}

// ErrIncompleteFilter means the mandatory year or period filter is missing;
// no statement was compiled and no database access was attempted.
var ErrIncompleteFilter = errors.New("report: year and period are required")
