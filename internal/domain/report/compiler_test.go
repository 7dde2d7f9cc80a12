package report

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

var andPredicate = regexp.MustCompile(`AND d\.[a-z_]+ = @[a-z_]+`)

func TestCompile_MandatoryFiltersOnly(t *testing.T) {
	sql, args, err := Compile(FilterSet{Year: "2025", Period: "202503"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(sql, "d.year = @year") || !strings.Contains(sql, "AND d.period = @period") {
		t.Errorf("missing mandatory predicates:\n%s", sql)
	}
	// Beyond year/period, no predicate at all.
	if got := len(andPredicate.FindAllString(sql, -1)); got != 1 {
		t.Errorf("expected only the period AND predicate, found %d:\n%s", got, sql)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 bound params, got %v", args)
	}
}

func TestCompile_OnePredicatePerPresentFilter(t *testing.T) {
	fs := FilterSet{Year: "2025", Period: "202503", Facility: "005"}
	sql, args, err := Compile(fs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(sql, "AND d.facility_code = @facility") {
		t.Errorf("missing facility predicate:\n%s", sql)
	}
	for _, absent := range []string{"@network", "@service", "@activity", "@subactivity", "@chapter", "@sex"} {
		if strings.Contains(sql, absent) {
			t.Errorf("absent filter rendered a predicate: %s\n%s", absent, sql)
		}
	}
	if args["facility"] != "005" {
		t.Errorf("facility not bound: %v", args)
	}
	if _, ok := args["network"]; ok {
		t.Errorf("absent filter bound a param: %v", args)
	}
}

func TestCompile_AllFiltersPresent(t *testing.T) {
	fs := FilterSet{
		Year: "2025", Period: "202503",
		Network: "R1", Facility: "005", Service: "300", Activity: "A1",
		Subactivity: "S1", Chapter: "X", Sex: "F",
	}
	sql, args, err := Compile(fs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// period + the seven optional predicates
	if got := len(andPredicate.FindAllString(sql, -1)); got != 8 {
		t.Errorf("expected 8 AND predicates, found %d:\n%s", got, sql)
	}
	if len(args) != 9 {
		t.Errorf("expected 9 bound params, got %d: %v", len(args), args)
	}
	if !strings.HasSuffix(strings.TrimSpace(sql), "ORDER BY d.diagnosis_code") {
		t.Errorf("predicates must precede the order clause:\n%s", sql)
	}
}

func TestCompile_MissingMandatoryFilter(t *testing.T) {
	for _, fs := range []FilterSet{
		{},
		{Year: "2025"},
		{Period: "202503"},
	} {
		if _, _, err := Compile(fs); !errors.Is(err, ErrIncompleteFilter) {
			t.Errorf("Compile(%+v): expected ErrIncompleteFilter, got %v", fs, err)
		}
	}
}

func TestCompile_Deterministic(t *testing.T) {
	fs := FilterSet{Year: "2025", Period: "202503", Sex: "F", Network: "R1"}
	first, _, _ := Compile(fs)
	for i := 0; i < 20; i++ {
		sql, _, _ := Compile(fs)
		if sql != first {
			t.Fatalf("statement text not deterministic")
		}
	}
}

func TestCompile_NoValueInterpolation(t *testing.T) {
	fs := FilterSet{Year: "2025", Period: "202503", Facility: "005'; DROP TABLE x--"}
	sql, args, err := Compile(fs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sql, "005") {
		t.Errorf("filter value leaked into statement text:\n%s", sql)
	}
	if args["facility"] != fs.Facility {
		t.Errorf("facility value must travel as a bound param")
	}
}
