package dashboard

import (
	"fmt"
	"regexp"
	"strings"
)

// FacilityDecoder turns an opaque signed facility token into a facility
// code. Implemented by auth.FacilityCodec.
type FacilityDecoder interface {
	DecodeFacility(token string) (string, error)
}

// Resolver normalizes raw request inputs into a validated FilterContext.
// Facility and period are hard preconditions: resolution fails before any
// database access is attempted.
type Resolver struct {
	codec FacilityDecoder
}

func NewResolver(codec FacilityDecoder) *Resolver {
	return &Resolver{codec: codec}
}

var (
	periodPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	yearPattern   = regexp.MustCompile(`^\d{4}$`)
)

// Resolve decodes and validates the raw inputs. A facility token that is
// absent, undecodable, or empty after decoding yields ErrIncompleteFilter,
// as do a missing or malformed period and year.
func (r *Resolver) Resolve(facilityToken, period, year, insuranceLabel string) (FilterContext, error) {
	if facilityToken == "" {
		return FilterContext{}, fmt.Errorf("%w: no facility selected", ErrIncompleteFilter)
	}
	code, err := r.codec.DecodeFacility(facilityToken)
	if err != nil || code == "" {
		return FilterContext{}, fmt.Errorf("%w: facility token did not decode", ErrIncompleteFilter)
	}
	if !periodPattern.MatchString(period) {
		return FilterContext{}, fmt.Errorf("%w: period %q", ErrIncompleteFilter, period)
	}
	if !yearPattern.MatchString(year) {
		return FilterContext{}, fmt.Errorf("%w: year %q", ErrIncompleteFilter, year)
	}

	return FilterContext{
		FacilityCode: code,
		Period:       period,
		Year:         year,
		Insurance:    ResolveInsurance(insuranceLabel),
	}, nil
}

// ResolveInsurance maps a free-form label onto one of the three canonical
// predicate sets. Matching is case-insensitive; unrecognized and absent
// labels both resolve to All. It never fails.
func ResolveInsurance(label string) InsuranceType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "asegurado", "insured":
		return InsuranceInsured
	case "no asegurado", "no_asegurado", "uninsured":
		return InsuranceUninsured
	default:
		return InsuranceAll
	}
}
