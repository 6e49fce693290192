package types

// ForecastDays is the fixed forecast horizon. All ForecastResult arrays have
// exactly this length regardless of how many raw forecast days were supplied.
const ForecastDays = 7

// ForecastResult is the 7-day risk projection with its confidence envelope.
// All slices are parallel and of length ForecastDays, padded with the last
// known value or a domain default when source data is shorter.
type ForecastResult struct {
	Dates      []string  `json:"dates"`
	RiskScores []float64 `json:"risk_scores"`
	TempMaxC   []float64 `json:"temp_max_c"`
	TempMinC   []float64 `json:"temp_min_c"`
	PrecipMM   []float64 `json:"precip_mm"`
	WindMaxKmh []float64 `json:"wind_max_kmh"`
	UVMax      []float64 `json:"uv_max"`

	UpperBand      []float64  `json:"upper_band"`
	LowerBand      []float64  `json:"lower_band"`
	BandConfidence Confidence `json:"band_confidence"`
}
