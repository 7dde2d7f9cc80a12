package dashboard

import (
	"reflect"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCountRows_EmptyTableIsZero(t *testing.T) {
	rule := RuleSpec{Kind: RuleCountRows, Stat: "attendances"}
	stat, _ := Reduce(rule, ResultTable{Columns: []string{"patient_id"}}, FilterContext{})
	if stat != 0 {
		t.Errorf("expected 0 for empty table, got %v", stat)
	}
}

func TestCountRows(t *testing.T) {
	tbl := ResultTable{Rows: []map[string]interface{}{{}, {}, {}}}
	stat, _ := Reduce(RuleSpec{Kind: RuleCountRows}, tbl, FilterContext{})
	if stat != 3 {
		t.Errorf("expected 3, got %v", stat)
	}
}

func TestGroupSum_CountsSortsAndTruncates(t *testing.T) {
	tbl := ResultTable{Rows: []map[string]interface{}{
		{"svc": "lab"}, {"svc": "xray"}, {"svc": "lab"},
		{"svc": "pharmacy"}, {"svc": "lab"}, {"svc": "xray"},
	}}
	rule := RuleSpec{Kind: RuleGroupSum, ByColumn: "svc", TopN: 2, NullLabel: "unclassified"}

	stat, grouped := Reduce(rule, tbl, FilterContext{})
	if stat != 6 {
		t.Errorf("expected total 6 before truncation, got %v", stat)
	}
	want := GroupedTable{{Label: "lab", Value: 3}, {Label: "xray", Value: 2}}
	if !reflect.DeepEqual(grouped, want) {
		t.Errorf("expected %v, got %v", want, grouped)
	}
}

func TestGroupSum_TiesKeepEncounterOrder(t *testing.T) {
	tbl := ResultTable{Rows: []map[string]interface{}{
		{"svc": "beta"}, {"svc": "alpha"}, {"svc": "beta"}, {"svc": "alpha"},
	}}
	rule := RuleSpec{Kind: RuleGroupSum, ByColumn: "svc", TopN: 10}

	_, grouped := Reduce(rule, tbl, FilterContext{})
	if grouped[0].Label != "beta" || grouped[1].Label != "alpha" {
		t.Errorf("tie must keep first-seen order, got %v", grouped)
	}
}

func TestGroupSum_Deterministic(t *testing.T) {
	tbl := ResultTable{Rows: []map[string]interface{}{
		{"svc": "a", "v": float64(2)}, {"svc": "b", "v": float64(5)},
		{"svc": "a", "v": float64(1)}, {"svc": nil, "v": float64(4)},
	}}
	rule := RuleSpec{Kind: RuleGroupSum, ValueColumn: "v", ByColumn: "svc", TopN: 10, NullLabel: "unclassified"}

	first, firstTbl := Reduce(rule, tbl, FilterContext{})
	for i := 0; i < 50; i++ {
		stat, grouped := Reduce(rule, tbl, FilterContext{})
		if stat != first || !reflect.DeepEqual(grouped, firstTbl) {
			t.Fatalf("iteration %d differs: %v vs %v", i, grouped, firstTbl)
		}
	}
}

func TestGroupSum_NullsCoalesceToLabel(t *testing.T) {
	tbl := ResultTable{Rows: []map[string]interface{}{
		{"svc": nil}, {"svc": ""}, {"svc": "lab"},
	}}
	rule := RuleSpec{Kind: RuleGroupSum, ByColumn: "svc", TopN: 10, NullLabel: "unclassified"}

	_, grouped := Reduce(rule, tbl, FilterContext{})
	if grouped[0].Label != "unclassified" || grouped[0].Value != 2 {
		t.Errorf("expected nulls coalesced to unclassified=2, got %v", grouped)
	}
}

func TestFirstOccurrence_CountsOnlyNewPatients(t *testing.T) {
	// p1 first seen in March, p2 first seen in January (visit in March too),
	// p3 first seen in March.
	tbl := ResultTable{Rows: []map[string]interface{}{
		{"patient_id": "p2", "attended_at": day("2025-01-10")},
		{"patient_id": "p1", "attended_at": day("2025-03-05")},
		{"patient_id": "p2", "attended_at": day("2025-03-06")},
		{"patient_id": "p3", "attended_at": day("2025-03-20")},
		{"patient_id": "p1", "attended_at": day("2025-04-01")},
	}}
	rule := RuleSpec{Kind: RuleFirstOccurrence, DateColumn: "attended_at", PatientColumn: "patient_id"}
	fc := FilterContext{Period: "03", Year: "2025"}

	stat, _ := Reduce(rule, tbl, fc)
	if stat != 2 {
		t.Errorf("expected 2 new patients in 2025-03, got %v", stat)
	}
}

func TestFirstOccurrence_RowOrderDoesNotMatter(t *testing.T) {
	rows := []map[string]interface{}{
		{"patient_id": "p1", "attended_at": day("2025-03-05")},
		{"patient_id": "p1", "attended_at": day("2025-01-02")},
	}
	rule := RuleSpec{Kind: RuleFirstOccurrence, DateColumn: "attended_at", PatientColumn: "patient_id"}
	fc := FilterContext{Period: "03", Year: "2025"}

	stat, _ := Reduce(rule, ResultTable{Rows: rows}, fc)
	if stat != 0 {
		t.Errorf("earliest visit is January, expected 0, got %v", stat)
	}

	// Reversed order must give the same answer.
	reversed := []map[string]interface{}{rows[1], rows[0]}
	stat, _ = Reduce(rule, ResultTable{Rows: reversed}, fc)
	if stat != 0 {
		t.Errorf("expected 0 with reversed rows, got %v", stat)
	}
}

func TestFirstOccurrence_EmptyTable(t *testing.T) {
	rule := RuleSpec{Kind: RuleFirstOccurrence, DateColumn: "attended_at", PatientColumn: "patient_id"}
	stat, _ := Reduce(rule, ResultTable{}, FilterContext{Period: "03", Year: "2025"})
	if stat != 0 {
		t.Errorf("expected 0, got %v", stat)
	}
}

func TestWeightedPercentile(t *testing.T) {
	tbl := ResultTable{Rows: []map[string]interface{}{
		{"days": float64(1), "weight": int64(50)},
		{"days": float64(5), "weight": int64(30)},
		{"days": float64(30), "weight": int64(20)},
	}}
	rule := RuleSpec{Kind: RuleWeightedPercentile, ValueColumn: "days", WeightColumn: "weight", Percentile: 0.5}

	stat, _ := Reduce(rule, tbl, FilterContext{})
	if stat != 1 {
		t.Errorf("expected median 1 (cumulative weight 50 >= 50), got %v", stat)
	}

	rule.Percentile = 0.9
	stat, _ = Reduce(rule, tbl, FilterContext{})
	if stat != 30 {
		t.Errorf("expected p90 of 30, got %v", stat)
	}
}

func TestWeightedPercentile_EmptyAndZeroWeights(t *testing.T) {
	rule := RuleSpec{Kind: RuleWeightedPercentile, ValueColumn: "days", WeightColumn: "weight", Percentile: 0.9}

	stat, _ := Reduce(rule, ResultTable{}, FilterContext{})
	if stat != 0 {
		t.Errorf("expected 0 for empty input, got %v", stat)
	}

	tbl := ResultTable{Rows: []map[string]interface{}{
		{"days": float64(7), "weight": int64(0)},
	}}
	stat, _ = Reduce(rule, tbl, FilterContext{})
	if stat != 0 {
		t.Errorf("expected 0 when all weights are zero, got %v", stat)
	}
}

func TestToFloat_CoercesCommonTypes(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{float64(2.5), 2.5},
		{float32(2), 2},
		{int64(7), 7},
		{int32(7), 7},
		{7, 7},
		{"3.5", 3.5},
		{nil, 0},
		{"not a number", 0},
	}
	for _, tc := range cases {
		if got := toFloat(tc.in); got != tc.want {
			t.Errorf("toFloat(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
