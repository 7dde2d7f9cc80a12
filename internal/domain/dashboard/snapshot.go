package dashboard

// Compose merges per-template aggregation outputs into one immutable
// snapshot. A failed query contributes an empty table, so its cards show
// zeros instead of taking the whole snapshot down. The facility name is
// taken from the first result row that carries one, falling back to the raw
// facility code.
func Compose(cat Catalog, fc FilterContext, outcomes map[string]QueryOutcome) *DashboardSnapshot {
	stats := make(map[string]float64)
	tables := make(map[string]GroupedTable)
	facilityName := ""

	for _, t := range cat.Templates {
		o := outcomes[t.Name]
		tbl := o.Table
		if o.Err != nil {
			tbl = ResultTable{}
		}
		if facilityName == "" {
			facilityName = facilityNameFrom(tbl)
		}
		for _, rule := range t.Rules {
			stat, grouped := Reduce(rule, tbl, fc)
			if rule.Stat != "" {
				stats[rule.Stat] = stat
			}
			if rule.Table != "" {
				if grouped == nil {
					grouped = GroupedTable{}
				}
				tables[rule.Table] = grouped
			}
		}
	}

	if facilityName == "" {
		facilityName = fc.FacilityCode
	}

	return &DashboardSnapshot{
		Domain:       cat.Domain,
		FacilityName: facilityName,
		Stats:        stats,
		Tables:       tables,
	}
}

func facilityNameFrom(tbl ResultTable) string {
	for _, row := range tbl.Rows {
		if name, ok := row["facility_name"].(string); ok && name != "" {
			return name
		}
	}
	return ""
}
