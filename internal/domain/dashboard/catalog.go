package dashboard

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RuleKind names an aggregation rule.
type RuleKind string

const (
	RuleCountRows          RuleKind = "count-rows"
	RuleGroupSum           RuleKind = "group-sum"
	RuleFirstOccurrence    RuleKind = "first-occurrence-per-patient"
	RuleWeightedPercentile RuleKind = "weighted-percentile"
)

// RuleSpec attaches one aggregation rule to a template's result. Stat names
// the stats key receiving the scalar; Table, when set, names the tables key
// receiving the grouped breakdown.
type RuleSpec struct {
	Kind          RuleKind
	Stat          string
	Table         string
	ValueColumn   string // group-sum: summed column, or empty to count rows; weighted-percentile: the value
	ByColumn      string // group-sum: grouping dimension
	TopN          int
	NullLabel     string // group-sum: label for null/empty group values
	DateColumn    string // first-occurrence: visit date
	PatientColumn string // first-occurrence: patient identifier
	WeightColumn  string // weighted-percentile: repetition weight
	Percentile    float64
}

// QueryTemplate is an immutable named query. SQL text uses @named
// placeholders for every value that originates from the filter context;
// request-influenced values are never interpolated into the text.
type QueryTemplate struct {
	Name           string
	SQL            string
	RequiredParams []string
	Rules          []RuleSpec
}

// DedupWindow is the named policy for the "new to service" first-occurrence
// window: the selected period's calendar year, or the twelve months ending
// at the selected period.
type DedupWindow string

const (
	DedupCalendarYear    DedupWindow = "calendar-year"
	DedupRolling12Months DedupWindow = "rolling-12-months"
)

// FailurePolicy controls what a failing query does to its batch. Isolate
// degrades only that query's cards; fail-fast aborts the whole batch.
type FailurePolicy string

const (
	FailIsolate FailurePolicy = "isolate"
	FailFast    FailurePolicy = "fail-fast"
)

// Catalog is one dashboard domain's ordered template list plus its
// execution policies. Domains are data: adding one means adding a
// domainSpec entry below, not a new code path.
type Catalog struct {
	Domain             string
	Label              string
	Templates          []QueryTemplate
	Params             map[string]interface{} // domain constants bound into every template
	OnQueryFailure     FailurePolicy
	DedupWindow        DedupWindow
	DefaultCurrentYear bool
}

// BindParams produces the named arguments for one template under a filter
// context. Only declared required params are bound; a missing or empty one
// is an error, never silently dropped.
func (c Catalog) BindParams(t QueryTemplate, fc FilterContext) (pgx.NamedArgs, error) {
	source := map[string]interface{}{
		"facility":      fc.FacilityCode,
		"period":        fc.Period,
		"year":          fc.Year,
		"insured_flags": fc.Insurance.Flags(),
	}
	for k, v := range c.Params {
		source[k] = v
	}

	args := pgx.NamedArgs{}
	for _, p := range t.RequiredParams {
		v, ok := source[p]
		if !ok {
			return nil, fmt.Errorf("template %q: no value for required param %q", t.Name, p)
		}
		if s, isStr := v.(string); isStr && s == "" {
			return nil, fmt.Errorf("template %q: empty value for required param %q", t.Name, p)
		}
		args[p] = v
	}
	return args, nil
}

// domainSpec carries everything that distinguishes one dashboard domain
// from another.
type domainSpec struct {
	name         string
	label        string
	serviceCodes []string
	templates    []string // which of the shared template shapes apply
	failure      FailurePolicy
	window       DedupWindow
}

var domainSpecs = []domainSpec{
	{
		name:         "general",
		label:        "Atención general",
		serviceCodes: []string{"100", "101", "102"},
		templates:    []string{"attendances", "appointments", "no_shows", "hours", "first_time", "deferral"},
		failure:      FailIsolate,
		window:       DedupCalendarYear,
	},
	{
		name:         "complementary-medicine",
		label:        "Medicina complementaria",
		serviceCodes: []string{"300", "310", "320"},
		templates:    []string{"attendances", "appointments", "no_shows", "hours", "first_time"},
		failure:      FailIsolate,
		window:       DedupRolling12Months,
	},
	{
		name:         "occupational-medicine",
		label:        "Salud ocupacional",
		serviceCodes: []string{"410", "411"},
		templates:    []string{"attendances", "appointments", "no_shows", "hours", "first_time", "deferral"},
		failure:      FailFast,
		window:       DedupCalendarYear,
	},
	{
		name:         "personnel-medicine",
		label:        "Medicina de personal",
		serviceCodes: []string{"420", "421", "422"},
		templates:    []string{"attendances", "appointments", "no_shows", "hours", "first_time"},
		failure:      FailIsolate,
		window:       DedupCalendarYear,
	},
	{
		name:         "immediate-care",
		label:        "Atención inmediata",
		serviceCodes: []string{"510"},
		templates:    []string{"attendances", "hours", "first_time", "deferral"},
		failure:      FailFast,
		window:       DedupCalendarYear,
	},
	{
		name:         "decentralized-support",
		label:        "Apoyo desconcentrado",
		serviceCodes: []string{"610", "611", "612", "613"},
		templates:    []string{"attendances", "hours", "first_time", "appointments"},
		failure:      FailIsolate,
		window:       DedupCalendarYear,
	},
}

// Shared template shapes. Every domain query reads the attendance fact
// table for the selected facility/period, left-joined to the facility
// dimension, restricted by the domain's service codes and the insurance
// predicate. All filter-context values travel as bind parameters.

const attendancesSQL = `
SELECT a.patient_id, a.physician_name, a.service_group, f.name AS facility_name
FROM warehouse.fact_attendance a
LEFT JOIN warehouse.dim_facility f ON f.code = a.facility_code
WHERE a.facility_code = @facility
  AND a.year = @year AND a.period = @period
  AND a.insured_flag = ANY(@insured_flags)
  AND a.service_code = ANY(@service_codes)
  AND a.status = 'attended'
ORDER BY a.attended_at, a.patient_id`

const appointmentsSQL = `
SELECT a.patient_id, a.physician_name, f.name AS facility_name
FROM warehouse.fact_attendance a
LEFT JOIN warehouse.dim_facility f ON f.code = a.facility_code
WHERE a.facility_code = @facility
  AND a.year = @year AND a.period = @period
  AND a.insured_flag = ANY(@insured_flags)
  AND a.service_code = ANY(@service_codes)
  AND a.appointment_flag
ORDER BY a.attended_at, a.patient_id`

const noShowsSQL = `
SELECT a.patient_id, a.physician_name, f.name AS facility_name
FROM warehouse.fact_attendance a
LEFT JOIN warehouse.dim_facility f ON f.code = a.facility_code
WHERE a.facility_code = @facility
  AND a.year = @year AND a.period = @period
  AND a.insured_flag = ANY(@insured_flags)
  AND a.service_code = ANY(@service_codes)
  AND a.status = 'no_show'
ORDER BY a.attended_at, a.patient_id`

const hoursSQL = `
SELECT a.physician_name,
       a.scheduled_hours::float8 AS scheduled_hours,
       a.worked_hours::float8 AS worked_hours,
       f.name AS facility_name
FROM warehouse.fact_attendance a
LEFT JOIN warehouse.dim_facility f ON f.code = a.facility_code
WHERE a.facility_code = @facility
  AND a.year = @year AND a.period = @period
  AND a.insured_flag = ANY(@insured_flags)
  AND a.service_code = ANY(@service_codes)
ORDER BY a.physician_name`

// First-occurrence sources span a full year rather than the selected
// period: the reduction needs each patient's earliest visit to decide
// whether the selected period is their first.
const firstTimeCalendarSQL = `
SELECT a.patient_id, a.attended_at
FROM warehouse.fact_attendance a
WHERE a.facility_code = @facility
  AND a.year = @year
  AND a.insured_flag = ANY(@insured_flags)
  AND a.service_code = ANY(@service_codes)
  AND a.status = 'attended'
ORDER BY a.attended_at, a.patient_id`

const firstTimeRollingSQL = `
SELECT a.patient_id, a.attended_at
FROM warehouse.fact_attendance a
WHERE a.facility_code = @facility
  AND a.attended_at > make_date(@year::int, @period::int, 1) - interval '12 months'
  AND a.attended_at < make_date(@year::int, @period::int, 1) + interval '1 month'
  AND a.insured_flag = ANY(@insured_flags)
  AND a.service_code = ANY(@service_codes)
  AND a.status = 'attended'
ORDER BY a.attended_at, a.patient_id`

const deferralSQL = `
SELECT a.deferral_days::float8 AS deferral_days, COUNT(*)::bigint AS weight
FROM warehouse.fact_attendance a
WHERE a.facility_code = @facility
  AND a.year = @year AND a.period = @period
  AND a.insured_flag = ANY(@insured_flags)
  AND a.service_code = ANY(@service_codes)
  AND a.deferral_days IS NOT NULL
GROUP BY a.deferral_days
ORDER BY a.deferral_days`

const topGroups = 10

// buildTemplate assembles one shared template shape for a domain.
func buildTemplate(shape string, window DedupWindow) QueryTemplate {
	periodParams := []string{"facility", "period", "year", "insured_flags", "service_codes"}

	switch shape {
	case "attendances":
		return QueryTemplate{
			Name:           "attendances",
			SQL:            attendancesSQL,
			RequiredParams: periodParams,
			Rules: []RuleSpec{
				{Kind: RuleCountRows, Stat: "attendances"},
				{Kind: RuleGroupSum, Table: "by_physician", ByColumn: "physician_name", TopN: topGroups, NullLabel: "unclassified"},
				{Kind: RuleGroupSum, Table: "by_group", ByColumn: "service_group", TopN: topGroups, NullLabel: "unclassified"},
			},
		}
	case "appointments":
		return QueryTemplate{
			Name:           "appointments",
			SQL:            appointmentsSQL,
			RequiredParams: periodParams,
			Rules: []RuleSpec{
				{Kind: RuleCountRows, Stat: "appointments"},
			},
		}
	case "no_shows":
		return QueryTemplate{
			Name:           "no_shows",
			SQL:            noShowsSQL,
			RequiredParams: periodParams,
			Rules: []RuleSpec{
				{Kind: RuleCountRows, Stat: "no_shows"},
			},
		}
	case "hours":
		return QueryTemplate{
			Name:           "hours",
			SQL:            hoursSQL,
			RequiredParams: periodParams,
			Rules: []RuleSpec{
				{Kind: RuleGroupSum, Stat: "scheduled_hours", Table: "scheduled_by_physician", ValueColumn: "scheduled_hours", ByColumn: "physician_name", TopN: topGroups, NullLabel: "unclassified"},
				{Kind: RuleGroupSum, Stat: "worked_hours", Table: "worked_by_physician", ValueColumn: "worked_hours", ByColumn: "physician_name", TopN: topGroups, NullLabel: "unclassified"},
			},
		}
	case "first_time":
		sql := firstTimeCalendarSQL
		params := []string{"facility", "year", "insured_flags", "service_codes"}
		if window == DedupRolling12Months {
			sql = firstTimeRollingSQL
			params = []string{"facility", "period", "year", "insured_flags", "service_codes"}
		}
		return QueryTemplate{
			Name:           "first_time",
			SQL:            sql,
			RequiredParams: params,
			Rules: []RuleSpec{
				{Kind: RuleFirstOccurrence, Stat: "first_time_patients", DateColumn: "attended_at", PatientColumn: "patient_id"},
			},
		}
	case "deferral":
		return QueryTemplate{
			Name:           "deferral",
			SQL:            deferralSQL,
			RequiredParams: periodParams,
			Rules: []RuleSpec{
				{Kind: RuleWeightedPercentile, Stat: "deferral_p90", ValueColumn: "deferral_days", WeightColumn: "weight", Percentile: 0.9},
			},
		}
	}
	panic(fmt.Sprintf("unknown template shape %q", shape))
}

func buildCatalogs() ([]Catalog, map[string]Catalog) {
	ordered := make([]Catalog, 0, len(domainSpecs))
	byName := make(map[string]Catalog, len(domainSpecs))
	for _, spec := range domainSpecs {
		cat := Catalog{
			Domain:             spec.name,
			Label:              spec.label,
			Params:             map[string]interface{}{"service_codes": spec.serviceCodes},
			OnQueryFailure:     spec.failure,
			DedupWindow:        spec.window,
			DefaultCurrentYear: true,
		}
		for _, shape := range spec.templates {
			cat.Templates = append(cat.Templates, buildTemplate(shape, spec.window))
		}
		ordered = append(ordered, cat)
		byName[spec.name] = cat
	}
	return ordered, byName
}

var orderedCatalogs, catalogsByDomain = buildCatalogs()

// Catalogs returns all domain catalogs in presentation order.
func Catalogs() []Catalog { return orderedCatalogs }

// CatalogFor looks up the catalog for one dashboard domain.
func CatalogFor(domain string) (Catalog, bool) {
	c, ok := catalogsByDomain[domain]
	return c, ok
}
