package types

// SubScore is a 0-100 component score with a human-readable factor list.
// Scores are always clamped to [0,100] and never NaN; scorers substitute
// climatological midpoints for missing inputs.
type SubScore struct {
	Score   float64  `json:"score"`
	Factors []string `json:"factors,omitempty"`
}

// TemperatureDetail carries the temperature scorer's sub-components.
type TemperatureDetail struct {
	SubScore
	WaterTempC       float64 `json:"water_temp_c"`
	AnomalyC         float64 `json:"anomaly_c"`
	DiurnalRangeC    float64 `json:"diurnal_range_c"`
	CompositeRisk    float64 `json:"composite_risk"`
	DiurnalBonus     float64 `json:"diurnal_bonus"`
	SeasonalBaseline float64 `json:"seasonal_baseline_c"`
	PercentileRank   float64 `json:"percentile_rank"`
	TrendSlope7d     float64 `json:"trend_slope_7d"`
}

// LightDetail carries the light scorer's sub-components.
type LightDetail struct {
	SubScore
	UVNorm      float64 `json:"uv_norm"`
	DayLengthH  float64 `json:"day_length_h"`
	CloudFactor float64 `json:"cloud_factor"`
}

// StagnationDetail carries the stagnation scorer's sub-components.
type StagnationDetail struct {
	SubScore
	WindScore           float64 `json:"wind_score"`
	HydroScore          float64 `json:"hydro_score"`
	StratificationScore float64 `json:"stratification_score"`
	AvgWind7dKmh        float64 `json:"avg_wind_7d_kmh"`
	RainfallDeficit30d  float64 `json:"rainfall_deficit_30d_mm"`
}

// NutrientDetail carries the nutrient scorer's sub-components.
type NutrientDetail struct {
	SubScore
	AgriculturalPct float64 `json:"agricultural_pct"`
	UrbanPct        float64 `json:"urban_pct"`
	ForestPct       float64 `json:"forest_pct"`
	WetlandPct      float64 `json:"wetland_pct"`
	AgricultureSub  float64 `json:"agriculture_sub"`
	UrbanSub        float64 `json:"urban_sub"`
	BufferReduction float64 `json:"buffer_reduction"`
}

// FactorFractions holds the four Monod saturation fractions, each in
// [0.01, 1.0].
type FactorFractions struct {
	Temperature float64 `json:"temperature"`
	Nutrients   float64 `json:"nutrients"`
	Light       float64 `json:"light"`
	Stagnation  float64 `json:"stagnation"`
}

// GrowthRateResult is the output of the Monod kinetics engine.
type GrowthRateResult struct {
	MuPerDay          float64         `json:"mu_per_day"`
	DoublingTimeHours *float64        `json:"doubling_time_hours"` // nil when mu ~ 0
	LimitingFactor    LimitingFactor  `json:"limiting_factor"`
	FactorValues      FactorFractions `json:"factor_values"`
	// BiomassTrajectory has 8 points: day 0 at 1.0, then 7 daily steps of
	// exponential growth. Monotonically non-decreasing since mu >= 0.
	BiomassTrajectory []float64 `json:"biomass_trajectory"`
	TempCorrection    float64   `json:"temp_correction"`
}

// ComponentScores is the fixed set of weighted inputs to risk aggregation.
type ComponentScores struct {
	Temperature float64 `json:"temperature"`
	Nutrients   float64 `json:"nutrients"`
	Stagnation  float64 `json:"stagnation"`
	Light       float64 `json:"light"`
	Growth      float64 `json:"growth"`
}

// RiskResult is the unified bloom risk output. RiskLevel and WHOSeverity are
// deterministic functions of RiskScore / EstimatedCellsPerML and are never
// set independently.
type RiskResult struct {
	RiskScore          float64         `json:"risk_score"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	RiskColor          string          `json:"risk_color"`
	WHOSeverity        WHOSeverity     `json:"who_severity"`
	EstimatedCellsPerML int            `json:"estimated_cells_per_ml"`
	ComponentScores    ComponentScores `json:"component_scores"`
	InteractionBoost   float64         `json:"interaction_boost,omitempty"`
	SatelliteAdjust    float64         `json:"satellite_adjustment,omitempty"`
	Confidence         Confidence      `json:"confidence,omitempty"`
	Advisory           string          `json:"advisory,omitempty"`
}
