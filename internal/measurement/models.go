package measurement

import "time"

// Default parameter values applied when the optional fields are omitted
const (
	DefaultCarbonFraction      = 0.47
	DefaultUncertaintyFraction = 0.20
)

// MandatoryFields lists the eight measurement fields that must be present
// and numeric before a computation may run. Names are the wire names.
var MandatoryFields = []string{
	"bulk_density",
	"depth_meters",
	"carbon_percent",
	"agb_biomass",
	"bgb_biomass",
	"ch4_flux",
	"n2o_flux",
	"baseline_carbon_stock",
}

// CarbonMeasurement holds one project's raw field measurements.
// Masses are in Mg, depth in meters, fluxes in umol/m2/h.
// Immutable once a computation has been accepted by an administrator.
type CarbonMeasurement struct {
	BulkDensity         float64 `json:"bulk_density"`
	DepthMeters         float64 `json:"depth_meters"`
	CarbonPercent       float64 `json:"carbon_percent"`
	AGBBiomass          float64 `json:"agb_biomass"`
	BGBBiomass          float64 `json:"bgb_biomass"`
	CarbonFraction      float64 `json:"carbon_fraction"`
	CH4Flux             float64 `json:"ch4_flux"`
	N2OFlux             float64 `json:"n2o_flux"`
	BaselineCarbonStock float64 `json:"baseline_carbon_stock"`
	UncertaintyFraction float64 `json:"uncertainty_fraction"`
}

// CreditComputation is the derived, cached result of the engine applied to a
// measurement and a project area. Never mutated, only replaced by a fresh
// computation. All figures are CO2e in Mg unless named otherwise, rounded to
// two decimals for display.
type CreditComputation struct {
	AreaHectares float64 `json:"area_hectares"`

	// Per-hectare components
	SoilCarbonStock  float64 `json:"soil_carbon_stock"` // Mg C/ha
	SoilCO2e         float64 `json:"soil_co2e"`
	AGBCO2e          float64 `json:"agb_co2e"`
	BGBCO2e          float64 `json:"bgb_co2e"`
	CH4CO2e          float64 `json:"ch4_co2e"`
	N2OCO2e          float64 `json:"n2o_co2e"`
	TotalGHGCO2e     float64 `json:"total_ghg_co2e"`
	CurrentTotalCO2e float64 `json:"current_total_co2e"`
	BaselineCO2e     float64 `json:"baseline_co2e"`

	// Netting
	NetStockIncrease    float64 `json:"net_stock_increase"`
	NetCO2e             float64 `json:"net_co2e"`
	NetAfterUncertainty float64 `json:"net_after_uncertainty"`

	// Final credit figures
	PerHectareCredits float64 `json:"per_hectare_credits"`
	TotalCredits      float64 `json:"total_credits"`

	// Stamped by the caller that persists the computation; Compute itself is
	// a pure function of its inputs.
	CalculatedAt time.Time `json:"calculated_at"`
}
