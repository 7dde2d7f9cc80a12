package dashboard

import (
	"regexp"
	"testing"
)

func TestCatalogs_AllDomainsPresent(t *testing.T) {
	want := []string{
		"general",
		"complementary-medicine",
		"occupational-medicine",
		"personnel-medicine",
		"immediate-care",
		"decentralized-support",
	}

	cats := Catalogs()
	if len(cats) != len(want) {
		t.Fatalf("expected %d catalogs, got %d", len(want), len(cats))
	}
	for i, name := range want {
		if cats[i].Domain != name {
			t.Errorf("catalog %d: expected %s, got %s", i, name, cats[i].Domain)
		}
	}
}

func TestCatalogFor_UnknownDomain(t *testing.T) {
	if _, ok := CatalogFor("cardiology"); ok {
		t.Error("expected lookup miss for unregistered domain")
	}
}

func TestCatalogs_TemplateCounts(t *testing.T) {
	for _, cat := range Catalogs() {
		if n := len(cat.Templates); n < 4 || n > 8 {
			t.Errorf("domain %s: expected 4-8 templates, got %d", cat.Domain, n)
		}
		seen := make(map[string]bool)
		for _, tmpl := range cat.Templates {
			if seen[tmpl.Name] {
				t.Errorf("domain %s: duplicate template %s", cat.Domain, tmpl.Name)
			}
			seen[tmpl.Name] = true
		}
	}
}

var placeholderPattern = regexp.MustCompile(`@([a-z_]+)`)

// Every placeholder in a template's SQL must be a declared required param,
// so nothing is ever interpolated and nothing binds silently.
func TestCatalogs_PlaceholdersMatchRequiredParams(t *testing.T) {
	for _, cat := range Catalogs() {
		for _, tmpl := range cat.Templates {
			declared := make(map[string]bool, len(tmpl.RequiredParams))
			for _, p := range tmpl.RequiredParams {
				declared[p] = true
			}
			used := make(map[string]bool)
			for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl.SQL, -1) {
				used[m[1]] = true
			}
			for p := range used {
				if !declared[p] {
					t.Errorf("%s/%s: placeholder @%s not declared as required param", cat.Domain, tmpl.Name, p)
				}
			}
			for p := range declared {
				if !used[p] {
					t.Errorf("%s/%s: required param %s unused in SQL", cat.Domain, tmpl.Name, p)
				}
			}
		}
	}
}

func TestBindParams_BindsFilterContext(t *testing.T) {
	cat, _ := CatalogFor("general")
	fc := FilterContext{FacilityCode: "001", Period: "03", Year: "2025", Insurance: InsuranceAll}

	tmpl := cat.Templates[0]
	args, err := cat.BindParams(tmpl, fc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if args["facility"] != "001" || args["period"] != "03" || args["year"] != "2025" {
		t.Errorf("filter context not bound: %v", args)
	}
	flags, ok := args["insured_flags"].([]string)
	if !ok || len(flags) != 2 {
		t.Errorf("expected both insurance flags bound, got %v", args["insured_flags"])
	}
	if _, ok := args["service_codes"].([]string); !ok {
		t.Errorf("expected domain service codes bound, got %v", args["service_codes"])
	}
}

func TestBindParams_RejectsEmptyRequiredValue(t *testing.T) {
	cat, _ := CatalogFor("general")
	fc := FilterContext{FacilityCode: "", Period: "03", Year: "2025", Insurance: InsuranceAll}

	if _, err := cat.BindParams(cat.Templates[0], fc); err == nil {
		t.Error("expected error for empty facility code")
	}
}

func TestCatalogs_FailurePolicyIsExplicit(t *testing.T) {
	for _, cat := range Catalogs() {
		if cat.OnQueryFailure != FailIsolate && cat.OnQueryFailure != FailFast {
			t.Errorf("domain %s: unset failure policy", cat.Domain)
		}
		if cat.DedupWindow != DedupCalendarYear && cat.DedupWindow != DedupRolling12Months {
			t.Errorf("domain %s: unset dedup window", cat.Domain)
		}
	}
}

func TestCatalogs_RollingWindowUsesPeriodParam(t *testing.T) {
	cat, _ := CatalogFor("complementary-medicine")
	for _, tmpl := range cat.Templates {
		if tmpl.Name != "first_time" {
			continue
		}
		found := false
		for _, p := range tmpl.RequiredParams {
			if p == "period" {
				found = true
			}
		}
		if !found {
			t.Error("rolling-window first_time template must bind the period")
		}
		return
	}
	t.Fatal("complementary-medicine has no first_time template")
}
