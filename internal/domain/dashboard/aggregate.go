package dashboard

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Reduce applies one aggregation rule to a materialized table. It is pure
// and deterministic: no I/O, and identical input always yields identical
// output. An empty table reduces to zero stats and empty breakdowns, never
// an error.
func Reduce(rule RuleSpec, tbl ResultTable, fc FilterContext) (float64, GroupedTable) {
	switch rule.Kind {
	case RuleCountRows:
		return float64(len(tbl.Rows)), nil
	case RuleGroupSum:
		return groupSum(rule, tbl)
	case RuleFirstOccurrence:
		return firstOccurrence(rule, tbl, fc), nil
	case RuleWeightedPercentile:
		return weightedPercentile(rule, tbl), nil
	}
	return 0, nil
}

// groupSum groups rows by rule.ByColumn, summing rule.ValueColumn (or
// counting rows when it is empty). The scalar is the total over all groups;
// the table is the top-N groups sorted descending, with ties keeping first
// row-encounter order.
func groupSum(rule RuleSpec, tbl ResultTable) (float64, GroupedTable) {
	sums := make(map[string]float64)
	var order []string

	for _, row := range tbl.Rows {
		label := toLabel(row[rule.ByColumn], rule.NullLabel)
		if _, seen := sums[label]; !seen {
			order = append(order, label)
		}
		if rule.ValueColumn == "" {
			sums[label]++
		} else {
			sums[label] += toFloat(row[rule.ValueColumn])
		}
	}

	var total float64
	entries := make(GroupedTable, 0, len(order))
	for _, label := range order {
		total += sums[label]
		entries = append(entries, TableEntry{Label: label, Value: sums[label]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})

	if rule.TopN > 0 && len(entries) > rule.TopN {
		entries = entries[:rule.TopN]
	}
	return total, entries
}

// firstOccurrence counts patients whose earliest visit in the source window
// falls in the requested period: "new to service", not total visits. Each
// patient is attributed once, to the year-month of their earliest date.
func firstOccurrence(rule RuleSpec, tbl ResultTable, fc FilterContext) float64 {
	earliest := make(map[string]time.Time)
	for _, row := range tbl.Rows {
		patient := toLabel(row[rule.PatientColumn], "")
		if patient == "" {
			continue
		}
		at, ok := toTime(row[rule.DateColumn])
		if !ok {
			continue
		}
		if cur, seen := earliest[patient]; !seen || at.Before(cur) {
			earliest[patient] = at
		}
	}

	target := fc.Year + "-" + fc.Period
	var count float64
	for _, at := range earliest {
		if at.Format("2006-01") == target {
			count++
		}
	}
	return count
}

// weightedPercentile computes the rule.Percentile quantile of
// rule.ValueColumn with rule.WeightColumn as repetition weight.
func weightedPercentile(rule RuleSpec, tbl ResultTable) float64 {
	type wv struct {
		value  float64
		weight float64
	}
	var pairs []wv
	var total float64
	for _, row := range tbl.Rows {
		w := toFloat(row[rule.WeightColumn])
		if w <= 0 {
			continue
		}
		pairs = append(pairs, wv{value: toFloat(row[rule.ValueColumn]), weight: w})
		total += w
	}
	if total == 0 {
		return 0
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

	threshold := rule.Percentile * total
	var cum float64
	for _, p := range pairs {
		cum += p.weight
		if cum >= threshold {
			return p.value
		}
	}
	return pairs[len(pairs)-1].value
}

// toFloat coerces the scalar types pgx hands back for numeric columns.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

// toLabel coerces a grouping value to its display label, mapping null and
// empty values to the rule's null label.
func toLabel(v interface{}, nullLabel string) string {
	switch s := v.(type) {
	case nil:
		return nullLabel
	case string:
		if s == "" {
			return nullLabel
		}
		return s
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}
