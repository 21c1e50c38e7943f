package measurement

import (
	"encoding/json"
	"math"
	"strconv"
)

// ValidationResult reports whether a raw measurement document is complete
// enough to feed the engine, and which mandatory fields are missing.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}

// Validator gates the engine: callers must not compute credits from a
// measurement that fails Validate. No side effects.
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the raw measurement document for completeness. A field
// counts as missing if it is absent, empty, or not parseable as a finite
// number.
func (v *Validator) Validate(raw map[string]interface{}) ValidationResult {
	result := ValidationResult{Valid: true, Missing: []string{}}

	for _, field := range MandatoryFields {
		if _, ok := asFiniteNumber(raw[field]); !ok {
			result.Valid = false
			result.Missing = append(result.Missing, field)
		}
	}

	return result
}

// Parse converts a validated raw document into a typed measurement, applying
// defaults for the optional fields. Callers must run Validate first; Parse
// assumes the mandatory fields are present and numeric.
func (v *Validator) Parse(raw map[string]interface{}) *CarbonMeasurement {
	m := &CarbonMeasurement{
		CarbonFraction:      DefaultCarbonFraction,
		UncertaintyFraction: DefaultUncertaintyFraction,
	}

	m.BulkDensity, _ = asFiniteNumber(raw["bulk_density"])
	m.DepthMeters, _ = asFiniteNumber(raw["depth_meters"])
	m.CarbonPercent, _ = asFiniteNumber(raw["carbon_percent"])
	m.AGBBiomass, _ = asFiniteNumber(raw["agb_biomass"])
	m.BGBBiomass, _ = asFiniteNumber(raw["bgb_biomass"])
	m.CH4Flux, _ = asFiniteNumber(raw["ch4_flux"])
	m.N2OFlux, _ = asFiniteNumber(raw["n2o_flux"])
	m.BaselineCarbonStock, _ = asFiniteNumber(raw["baseline_carbon_stock"])

	if cf, ok := asFiniteNumber(raw["carbon_fraction"]); ok {
		m.CarbonFraction = cf
	}
	if uf, ok := asFiniteNumber(raw["uncertainty_fraction"]); ok {
		m.UncertaintyFraction = uf
	}

	return m
}

// asFiniteNumber coerces the JSON representations a measurement field can
// arrive as (float64, json.Number, numeric string) into a finite float64.
func asFiniteNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case json.Number:
		f, err := v.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case string:
		if v == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
