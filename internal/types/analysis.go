package types

import "time"

// ComponentDetails bundles the four sub-scorer detail records for one
// analysis, exposed to presentation collaborators as plain data.
type ComponentDetails struct {
	Temperature TemperatureDetail `json:"temperature"`
	Nutrients   NutrientDetail    `json:"nutrients"`
	Stagnation  StagnationDetail  `json:"stagnation"`
	Light       LightDetail       `json:"light"`
}

// AnalysisResult is the complete output of one site analysis: every core
// engine's product in one serializable structure with no behavior and no
// external handles.
type AnalysisResult struct {
	SiteID     string           `json:"site_id,omitempty"`
	Location   Location         `json:"location"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
	Confidence Confidence       `json:"confidence"`

	Components ComponentDetails `json:"components"`
	GrowthRate GrowthRateResult `json:"growth_rate"`
	Risk       RiskResult       `json:"risk"`
	// GeoRisk is the alternative geometric-mean aggregation, computed
	// alongside the weighted-sum Risk so consumers can compare the two.
	GeoRisk RiskResult `json:"geo_risk"`

	Forecast    ForecastResult       `json:"forecast"`
	Trend       TrendResult          `json:"trend"`
	MannKendall MannKendallResult    `json:"mann_kendall"`
	SenSlope    SenSlopeResult       `json:"sen_slope"`
	Alerts      PredictiveAlerts     `json:"alerts"`
	Historical  HistoricalComparison `json:"historical"`
}

// Snapshot is one persisted analysis outcome for a site. The stored score
// series (ordered by CreatedAt) is what feeds the trend engine on later runs.
type Snapshot struct {
	ID          string      `json:"id" db:"id"`
	SiteID      string      `json:"site_id" db:"site_id"`
	Location    Location    `json:"location" db:"-"`
	RiskScore   float64     `json:"risk_score" db:"risk_score"`
	RiskLevel   RiskLevel   `json:"risk_level" db:"risk_level"`
	WHOSeverity WHOSeverity `json:"who_severity" db:"who_severity"`
	MuPerDay    float64     `json:"mu_per_day" db:"mu_per_day"`
	Confidence  Confidence  `json:"confidence" db:"confidence"`
	// Payload is the full AnalysisResult serialized as JSONB.
	Payload   []byte    `json:"-" db:"payload"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
