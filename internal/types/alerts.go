package types

// PredictiveAlert is one condition found while scanning the 7-day forecast.
// Day is 1-based (day 1 = tomorrow); 0 means the alert spans the window
// rather than a single day.
type PredictiveAlert struct {
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
	Day      int           `json:"day"`
	Date     string        `json:"date,omitempty"`
	Score    float64       `json:"score,omitempty"`
}

// PredictiveAlerts is the result of the forecast threshold scan.
// DaysToWarning/DaysToCritical are nil when no crossing is projected (or the
// site is already at or above that level today).
type PredictiveAlerts struct {
	Alerts          []PredictiveAlert `json:"alerts"`
	DaysToWarning   *int              `json:"days_to_warning"`
	DaysToCritical  *int              `json:"days_to_critical"`
	MaxForecastRisk float64           `json:"max_forecast_risk"`
	Trajectory      Trajectory        `json:"risk_trajectory"`
	Summary         string            `json:"summary"`
}
