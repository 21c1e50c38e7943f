package measurement

import (
	"fmt"
	"math"
)

// Conversion constants. GWP values are AR5 100-year.
const (
	CarbonToCO2e  = 3.67
	GWPMethane    = 28.0
	GWPNitrousOx  = 298.0
	MolarMassCH4  = 16.04
	MolarMassN2O  = 44.01
	HoursPerYear  = 8760.0
	SqMPerHectare = 10000.0
)

// Engine converts a measurement set into per-hectare and total CO2e credits.
// Pure and deterministic: identical inputs yield identical outputs.
type Engine struct{}

// NewEngine creates a new credit calculation engine
func NewEngine() *Engine {
	return &Engine{}
}

// Compute runs the credit calculation for a measurement and a project area.
// The measurement must already have passed validation; non-finite input here
// is a programmer error and returns an error rather than a partial result.
// Internal arithmetic is full precision, reported figures are rounded to two
// decimals.
func (e *Engine) Compute(m *CarbonMeasurement, areaHectares float64) (*CreditComputation, error) {
	if m == nil {
		return nil, fmt.Errorf("measurement is nil")
	}
	if err := checkFinite(m, areaHectares); err != nil {
		return nil, err
	}

	// Soil stock: Mg C/ha, scaled to CO2e
	soilStock := m.BulkDensity * m.DepthMeters * (m.CarbonPercent / 100.0) * SqMPerHectare
	soilCO2e := soilStock * CarbonToCO2e

	// Biomass pools
	agbCO2e := m.AGBBiomass * m.CarbonFraction * CarbonToCO2e
	bgbCO2e := m.BGBBiomass * m.CarbonFraction * CarbonToCO2e

	// Flux conversion: umol/m2/h -> Mg/ha/yr, then GWP-weighted
	ch4CO2e := fluxToAnnualMass(m.CH4Flux, MolarMassCH4) * GWPMethane
	n2oCO2e := fluxToAnnualMass(m.N2OFlux, MolarMassN2O) * GWPNitrousOx
	totalGHG := ch4CO2e + n2oCO2e

	// Netting against baseline and emissions
	currentTotal := soilCO2e + agbCO2e + bgbCO2e
	baselineCO2e := m.BaselineCarbonStock * CarbonToCO2e
	netStockIncrease := currentTotal - baselineCO2e
	netCO2e := netStockIncrease - totalGHG

	// Conservative uncertainty discount, clamped at zero
	netAfterUncertainty := netCO2e * (1.0 - m.UncertaintyFraction)
	perHectare := math.Max(0, netAfterUncertainty)
	total := perHectare * areaHectares

	return &CreditComputation{
		AreaHectares:        round2(areaHectares),
		SoilCarbonStock:     round2(soilStock),
		SoilCO2e:            round2(soilCO2e),
		AGBCO2e:             round2(agbCO2e),
		BGBCO2e:             round2(bgbCO2e),
		CH4CO2e:             round2(ch4CO2e),
		N2OCO2e:             round2(n2oCO2e),
		TotalGHGCO2e:        round2(totalGHG),
		CurrentTotalCO2e:    round2(currentTotal),
		BaselineCO2e:        round2(baselineCO2e),
		NetStockIncrease:    round2(netStockIncrease),
		NetCO2e:             round2(netCO2e),
		NetAfterUncertainty: round2(netAfterUncertainty),
		PerHectareCredits:   round2(perHectare),
		TotalCredits:        round2(total),
	}, nil
}

// fluxToAnnualMass converts a gas flux in umol/m2/h to Mg/ha/yr
func fluxToAnnualMass(flux, molarMass float64) float64 {
	// umol -> mol -> g -> per year -> per hectare -> Mg
	return flux * 1e-6 * molarMass * HoursPerYear * SqMPerHectare * 1e-6
}

func checkFinite(m *CarbonMeasurement, area float64) error {
	values := map[string]float64{
		"bulk_density":          m.BulkDensity,
		"depth_meters":          m.DepthMeters,
		"carbon_percent":        m.CarbonPercent,
		"agb_biomass":           m.AGBBiomass,
		"bgb_biomass":           m.BGBBiomass,
		"carbon_fraction":       m.CarbonFraction,
		"ch4_flux":              m.CH4Flux,
		"n2o_flux":              m.N2OFlux,
		"baseline_carbon_stock": m.BaselineCarbonStock,
		"uncertainty_fraction":  m.UncertaintyFraction,
		"area_hectares":         area,
	}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite input: %s", name)
		}
	}
	return nil
}

// round2 rounds to two decimal places for display figures
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
