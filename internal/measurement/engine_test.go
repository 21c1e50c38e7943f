package measurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func referenceMeasurement() *CarbonMeasurement {
	return &CarbonMeasurement{
		BulkDensity:         1,
		DepthMeters:         1,
		CarbonPercent:       10,
		AGBBiomass:          0,
		BGBBiomass:          0,
		CarbonFraction:      0.47,
		CH4Flux:             0,
		N2OFlux:             0,
		BaselineCarbonStock: 0,
		UncertaintyFraction: 0,
	}
}

func TestComputeReferenceScenario(t *testing.T) {
	e := NewEngine()

	result, err := e.Compute(referenceMeasurement(), 10)

	assert.NoError(t, err)
	assert.Equal(t, 1000.0, result.SoilCarbonStock)
	assert.Equal(t, 3670.0, result.SoilCO2e)
	assert.Equal(t, 0.0, result.AGBCO2e)
	assert.Equal(t, 0.0, result.BGBCO2e)
	assert.Equal(t, 0.0, result.TotalGHGCO2e)
	assert.Equal(t, 0.0, result.BaselineCO2e)
	assert.Equal(t, 3670.0, result.NetCO2e)
	assert.Equal(t, 3670.0, result.PerHectareCredits)
	assert.Equal(t, 36700.0, result.TotalCredits)
}

func TestComputeIsDeterministic(t *testing.T) {
	e := NewEngine()
	m := &CarbonMeasurement{
		BulkDensity:         1.32,
		DepthMeters:         0.3,
		CarbonPercent:       2.7,
		AGBBiomass:          85.4,
		BGBBiomass:          21.1,
		CarbonFraction:      0.47,
		CH4Flux:             3.2,
		N2OFlux:             0.8,
		BaselineCarbonStock: 400,
		UncertaintyFraction: 0.2,
	}

	first, err := e.Compute(m, 42.5)
	assert.NoError(t, err)
	second, err := e.Compute(m, 42.5)
	assert.NoError(t, err)

	// Identical inputs yield bit-identical output, timestamps included
	assert.Equal(t, first, second)
}

func TestComputeClampsNegativeCreditsToZero(t *testing.T) {
	e := NewEngine()
	m := referenceMeasurement()
	// Baseline far above the current stock drives netCO2e negative
	m.BaselineCarbonStock = 5000
	m.UncertaintyFraction = 0.2

	result, err := e.Compute(m, 10)

	assert.NoError(t, err)
	assert.Less(t, result.NetCO2e, 0.0)
	assert.Equal(t, 0.0, result.PerHectareCredits)
	assert.Equal(t, 0.0, result.TotalCredits)
}

func TestComputeAppliesUncertaintyDiscount(t *testing.T) {
	e := NewEngine()
	m := referenceMeasurement()
	m.UncertaintyFraction = 0.2

	result, err := e.Compute(m, 1)

	assert.NoError(t, err)
	// 3670 * (1 - 0.2)
	assert.Equal(t, 2936.0, result.PerHectareCredits)
	assert.Equal(t, 2936.0, result.TotalCredits)
}

func TestComputeGreenhouseGasFluxes(t *testing.T) {
	e := NewEngine()
	m := referenceMeasurement()
	m.CH4Flux = 100
	m.N2OFlux = 10

	result, err := e.Compute(m, 1)

	assert.NoError(t, err)
	// 100 umol/m2/h CH4: 100 * 1e-6 * 16.04 * 8760 * 10000 * 1e-6 = 0.1405 Mg/ha/yr, x28
	assert.InDelta(t, 3.93, result.CH4CO2e, 0.01)
	// 10 umol/m2/h N2O: 10 * 1e-6 * 44.01 * 8760 * 10000 * 1e-6 = 0.03855 Mg/ha/yr, x298
	assert.InDelta(t, 11.49, result.N2OCO2e, 0.01)
	assert.InDelta(t, result.CH4CO2e+result.N2OCO2e, result.TotalGHGCO2e, 0.011)
	assert.InDelta(t, result.NetStockIncrease-result.TotalGHGCO2e, result.NetCO2e, 0.011)
}

func TestComputeBiomassPools(t *testing.T) {
	e := NewEngine()
	m := referenceMeasurement()
	m.AGBBiomass = 100
	m.BGBBiomass = 50

	result, err := e.Compute(m, 1)

	assert.NoError(t, err)
	// 100 * 0.47 * 3.67
	assert.InDelta(t, 172.49, result.AGBCO2e, 0.01)
	assert.InDelta(t, 86.25, result.BGBCO2e, 0.01)
}

func TestComputeRejectsNonFiniteInput(t *testing.T) {
	e := NewEngine()
	m := referenceMeasurement()
	m.BulkDensity = nan()

	_, err := e.Compute(m, 10)
	assert.Error(t, err)

	_, err = e.Compute(nil, 10)
	assert.Error(t, err)
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
