package types

// TrendResult is the OLS trend classification over a recent risk-score
// series. Classification requires both |slope| > 0.3 and p < 0.1; otherwise
// the trend is STABLE.
type TrendResult struct {
	Trend       TrendDirection `json:"trend"`
	SlopePerDay float64        `json:"slope_per_day"`
	// PValue is a sigmoid-of-t-statistic display approximation, not a true
	// Student's-t p-value.
	PValue      float64 `json:"p_value"`
	Description string  `json:"description,omitempty"`
}

// MannKendallResult is the output of the nonparametric Mann-Kendall trend
// test with tie correction, significant at alpha = 0.05.
type MannKendallResult struct {
	S           int     `json:"s"`
	VarS        float64 `json:"var_s"`
	ZScore      float64 `json:"z_score"`
	PValue      float64 `json:"p_value"`
	Trend       MKTrend `json:"trend"`
	Significant bool    `json:"significant"`
}

// SenSlopeResult is the Theil-Sen robust slope estimate: the median of all
// pairwise slopes, with intercept the median of x_i - slope*i.
type SenSlopeResult struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	NSlopes   int     `json:"n_slopes"`
}

// HistoricalStats summarizes the historical temperature record.
type HistoricalStats struct {
	TempMeanC float64 `json:"temp_mean_c"`
	TempStdC  float64 `json:"temp_std_c"`
	TempMinC  float64 `json:"temp_min_c"`
	TempMaxC  float64 `json:"temp_max_c"`
	NDays     int     `json:"n_days"`
}

// YearlyAverage is one year's aggregate for the historical trend view.
type YearlyAverage struct {
	Year     int     `json:"year"`
	AvgTempC float64 `json:"avg_temp_c"`
	StdTempC float64 `json:"std_temp_c"`
	NDays    int     `json:"n_days"`
}

// HistoricalComparison answers "how does today compare to the last 5 years".
// Available is false when the record is below the activation threshold, in
// which case every field holds its neutral zero value.
type HistoricalComparison struct {
	Available      bool            `json:"available"`
	Stats          HistoricalStats `json:"historical_stats"`
	AirTempZScore  float64         `json:"air_temp_z_score"`
	AirTempPercentile float64      `json:"air_temp_percentile"`
	AnomalyFlags   []string        `json:"anomaly_flags,omitempty"`
	Anomalous      bool            `json:"anomalous"`
	AnomalyScore   float64         `json:"anomaly_score"`
	YearlyAverages []YearlyAverage `json:"yearly_averages,omitempty"`
	Summary        string          `json:"summary"`
}
