package report

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// The diagnosis report reads one denormalized fact table joined to the ICD
// chapter dimension. Year and period anchor the statement; every optional
// filter appends exactly one equality predicate with a bound parameter.
const baseSQL = `
SELECT d.diagnosis_code, c.chapter_name, d.facility_code, d.service_code,
       d.activity_code, d.subactivity_code, d.sex, d.age_years, d.case_count
FROM warehouse.fact_diagnosis d
LEFT JOIN warehouse.dim_icd_chapter c ON c.chapter = d.icd_chapter
WHERE d.year = @year
  AND d.period = @period`

const orderSQL = `
ORDER BY d.diagnosis_code`

// optionalPredicate binds one filter field to one column. Order is fixed so
// compiled statements are deterministic for a given filter set.
type optionalPredicate struct {
	key    string
	column string
	value  func(FilterSet) string
}

var optionalPredicates = []optionalPredicate{
	{"network", "d.network_code", func(f FilterSet) string { return f.Network }},
	{"facility", "d.facility_code", func(f FilterSet) string { return f.Facility }},
	{"service", "d.service_code", func(f FilterSet) string { return f.Service }},
	{"activity", "d.activity_code", func(f FilterSet) string { return f.Activity }},
	{"subactivity", "d.subactivity_code", func(f FilterSet) string { return f.Subactivity }},
	{"chapter", "d.icd_chapter", func(f FilterSet) string { return f.Chapter }},
	{"sex", "d.sex", func(f FilterSet) string { return f.Sex }},
}

// Compile renders the diagnosis statement for one filter set. An absent
// optional filter contributes nothing; a present one contributes exactly one
// predicate. Filter values travel only as bound parameters, never in the
// statement text.
func Compile(fs FilterSet) (string, pgx.NamedArgs, error) {
	if fs.Year == "" || fs.Period == "" {
		return "", nil, ErrIncompleteFilter
	}

	args := pgx.NamedArgs{"year": fs.Year, "period": fs.Period}

	var b strings.Builder
	b.WriteString(baseSQL)
	for _, p := range optionalPredicates {
		v := p.value(fs)
		if v == "" {
			continue
		}
		b.WriteString("\n  AND ")
		b.WriteString(p.column)
		b.WriteString(" = @")
		b.WriteString(p.key)
		args[p.key] = v
	}
	b.WriteString(orderSQL)

	return b.String(), args, nil
}
