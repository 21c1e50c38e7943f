package measurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRawMeasurement() map[string]interface{} {
	return map[string]interface{}{
		"bulk_density":          1.0,
		"depth_meters":          1.0,
		"carbon_percent":        10.0,
		"agb_biomass":           0.0,
		"bgb_biomass":           0.0,
		"carbon_fraction":       0.47,
		"ch4_flux":              0.0,
		"n2o_flux":              0.0,
		"baseline_carbon_stock": 0.0,
		"uncertainty_fraction":  0.0,
	}
}

func TestValidateCompleteMeasurement(t *testing.T) {
	v := NewValidator()

	result := v.Validate(validRawMeasurement())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Missing)
}

func TestValidateReportsEachMissingMandatoryField(t *testing.T) {
	v := NewValidator()

	for _, field := range MandatoryFields {
		raw := validRawMeasurement()
		delete(raw, field)

		result := v.Validate(raw)

		assert.False(t, result.Valid, "expected invalid when %s is absent", field)
		assert.Equal(t, []string{field}, result.Missing)
	}
}

func TestValidateMissingCarbonPercent(t *testing.T) {
	v := NewValidator()
	raw := validRawMeasurement()
	delete(raw, "carbon_percent")

	result := v.Validate(raw)

	assert.False(t, result.Valid)
	assert.Equal(t, []string{"carbon_percent"}, result.Missing)
}

func TestValidateRejectsNonNumericValues(t *testing.T) {
	v := NewValidator()

	cases := map[string]interface{}{
		"empty string": "",
		"text":         "not a number",
		"nil":          nil,
		"bool":         true,
	}
	for name, value := range cases {
		raw := validRawMeasurement()
		raw["bulk_density"] = value

		result := v.Validate(raw)

		assert.False(t, result.Valid, "case %s", name)
		assert.Contains(t, result.Missing, "bulk_density", "case %s", name)
	}
}

func TestValidateAcceptsNumericStrings(t *testing.T) {
	v := NewValidator()
	raw := validRawMeasurement()
	raw["bulk_density"] = "1.25"

	result := v.Validate(raw)

	assert.True(t, result.Valid)
}

func TestParseAppliesDefaults(t *testing.T) {
	v := NewValidator()
	raw := validRawMeasurement()
	delete(raw, "carbon_fraction")
	delete(raw, "uncertainty_fraction")

	m := v.Parse(raw)

	assert.Equal(t, DefaultCarbonFraction, m.CarbonFraction)
	assert.Equal(t, DefaultUncertaintyFraction, m.UncertaintyFraction)
	assert.Equal(t, 1.0, m.BulkDensity)
	assert.Equal(t, 10.0, m.CarbonPercent)
}

func TestParseKeepsExplicitOptionalValues(t *testing.T) {
	v := NewValidator()
	raw := validRawMeasurement()

	m := v.Parse(raw)

	assert.Equal(t, 0.47, m.CarbonFraction)
	assert.Equal(t, 0.0, m.UncertaintyFraction)
}
