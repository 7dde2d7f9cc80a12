package dashboard

import (
	"errors"
	"testing"
)

// stubCodec is a FacilityDecoder that returns a fixed code or error.
type stubCodec struct {
	code string
	err  error
}

func (s stubCodec) DecodeFacility(token string) (string, error) {
	return s.code, s.err
}

func TestResolve_ValidInput(t *testing.T) {
	r := NewResolver(stubCodec{code: "001"})

	fc, err := r.Resolve("tok", "03", "2025", "asegurado")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.FacilityCode != "001" {
		t.Errorf("expected facility 001, got %s", fc.FacilityCode)
	}
	if fc.Period != "03" || fc.Year != "2025" {
		t.Errorf("unexpected period/year: %s/%s", fc.Period, fc.Year)
	}
	if fc.Insurance != InsuranceInsured {
		t.Errorf("expected insured, got %s", fc.Insurance)
	}
}

func TestResolve_IncompleteInputs(t *testing.T) {
	cases := []struct {
		name   string
		codec  stubCodec
		token  string
		period string
		year   string
	}{
		{"missing token", stubCodec{code: "001"}, "", "03", "2025"},
		{"undecodable token", stubCodec{err: errors.New("bad signature")}, "tok", "03", "2025"},
		{"empty decoded code", stubCodec{code: ""}, "tok", "03", "2025"},
		{"missing period", stubCodec{code: "001"}, "tok", "", "2025"},
		{"malformed period", stubCodec{code: "001"}, "tok", "13", "2025"},
		{"missing year", stubCodec{code: "001"}, "tok", "03", ""},
		{"malformed year", stubCodec{code: "001"}, "tok", "03", "25"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(tc.codec)
			_, err := r.Resolve(tc.token, tc.period, tc.year, "")
			if !errors.Is(err, ErrIncompleteFilter) {
				t.Errorf("expected ErrIncompleteFilter, got %v", err)
			}
		})
	}
}

func TestResolveInsurance(t *testing.T) {
	cases := []struct {
		label string
		want  InsuranceType
	}{
		{"asegurado", InsuranceInsured},
		{"ASEGURADO", InsuranceInsured},
		{"  Asegurado ", InsuranceInsured},
		{"insured", InsuranceInsured},
		{"no asegurado", InsuranceUninsured},
		{"NO_ASEGURADO", InsuranceUninsured},
		{"uninsured", InsuranceUninsured},
		{"", InsuranceAll},
		{"todos", InsuranceAll},
		{"garbage", InsuranceAll},
	}

	for _, tc := range cases {
		if got := ResolveInsurance(tc.label); got != tc.want {
			t.Errorf("ResolveInsurance(%q) = %s, want %s", tc.label, got, tc.want)
		}
	}
}

func TestInsuranceFlags(t *testing.T) {
	if flags := InsuranceInsured.Flags(); len(flags) != 1 || flags[0] != "S" {
		t.Errorf("insured flags = %v", flags)
	}
	if flags := InsuranceUninsured.Flags(); len(flags) != 1 || flags[0] != "N" {
		t.Errorf("uninsured flags = %v", flags)
	}
	if flags := InsuranceAll.Flags(); len(flags) != 2 {
		t.Errorf("all flags = %v", flags)
	}
}
