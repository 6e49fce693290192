package types

import (
	"math"
	"time"
)

// Location represents a geographic coordinate with an optional display name.
type Location struct {
	Lat         float64 `json:"lat" db:"location_lat"`
	Lon         float64 `json:"lon" db:"location_lon"`
	DisplayName string  `json:"display_name,omitempty" db:"location_display_name"`
}

// EnvironmentalObservation is the point-in-time input bundle for one analysis.
// It is constructed fresh per request and never mutated.
type EnvironmentalObservation struct {
	AirTempC      float64  `json:"air_temp_c"`
	WindSpeedKmh  float64  `json:"wind_speed_kmh"`
	CloudCover    float64  `json:"cloud_cover"` // percent 0-100 or fraction 0-1
	UVIndex       float64  `json:"uv_index"`
	PrecipMM      float64  `json:"precip_mm"`
	Humidity      float64  `json:"humidity_percent"`
	Location      Location `json:"location"`
	DayOfYear     int      `json:"day_of_year"`
	ObservedAt    time.Time `json:"observed_at"`
}

// TempSample is one (date, daily-mean-temperature) pair in a historical series.
type TempSample struct {
	Date     time.Time `json:"date"`
	MeanC    float64   `json:"temp_mean_c"`
	MaxC     float64   `json:"temp_max_c,omitempty"`
	MinC     float64   `json:"temp_min_c,omitempty"`
}

// HistoricalSeries is an ordered sequence of daily temperature samples, up to
// five years. Dates are strictly increasing; samples with a NaN mean are
// dropped at construction rather than interpolated.
type HistoricalSeries struct {
	Samples []TempSample `json:"samples"`
}

// MinHistoricalSamples is the activation threshold for seasonal, anomaly and
// historical-comparison computations. Below it, dependent outputs fall back
// to neutral values; this is a documented degraded mode, not an error.
const MinHistoricalSamples = 30

// NewHistoricalSeries builds a series from raw samples, dropping entries with
// a missing (NaN) mean temperature and preserving input order.
func NewHistoricalSeries(samples []TempSample) HistoricalSeries {
	clean := make([]TempSample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.MeanC) {
			continue
		}
		clean = append(clean, s)
	}
	return HistoricalSeries{Samples: clean}
}

// Len returns the number of valid samples.
func (h HistoricalSeries) Len() int { return len(h.Samples) }

// Sufficient reports whether the series meets the activation threshold for
// seasonal and anomaly computations.
func (h HistoricalSeries) Sufficient() bool { return len(h.Samples) >= MinHistoricalSamples }

// Temps returns the mean temperatures in series order.
func (h HistoricalSeries) Temps() []float64 {
	out := make([]float64, len(h.Samples))
	for i, s := range h.Samples {
		out[i] = s.MeanC
	}
	return out
}

// DaysOfYear returns the day-of-year for each sample in series order.
func (h HistoricalSeries) DaysOfYear() []float64 {
	out := make([]float64, len(h.Samples))
	for i, s := range h.Samples {
		out[i] = float64(s.Date.YearDay())
	}
	return out
}

// LandUse holds normalized land-cover fractions around a water body,
// summing to at most 1. Missing classes are zero.
type LandUse struct {
	Cropland float64 `json:"cropland"`
	Urban    float64 `json:"urban"`
	Forest   float64 `json:"forest"`
	Wetland  float64 `json:"wetland"`
}

// SatelliteEstimate is an optional satellite-derived cyanobacteria estimate.
// CellsPerML is nil when no estimate is available for the location/date.
type SatelliteEstimate struct {
	CellsPerML *float64    `json:"cells_per_ml"`
	Severity   WHOSeverity `json:"who_severity,omitempty"`
	Source     string      `json:"source,omitempty"`
}

// DailyForecast carries up to 7 days of daily forecast weather as parallel
// arrays. Arrays may be shorter than 7; the forecast engine pads.
type DailyForecast struct {
	Dates     []string  `json:"dates"`
	TempMaxC  []float64 `json:"temp_max_c"`
	TempMinC  []float64 `json:"temp_min_c"`
	PrecipMM  []float64 `json:"precip_mm"`
	WindMaxKmh []float64 `json:"wind_max_kmh"`
	UVMax     []float64 `json:"uv_max"`
}

// RainfallHistory is daily precipitation totals for the trailing 30 days.
type RainfallHistory struct {
	Dates    []string  `json:"dates"`
	PrecipMM []float64 `json:"precip_mm"`
}

// AnalysisInputs bundles everything the core pipeline consumes for one site.
// All fields besides Observation are optional; the pipeline degrades to
// documented neutral defaults when they are absent.
type AnalysisInputs struct {
	Observation EnvironmentalObservation `json:"observation"`
	History     HistoricalSeries         `json:"history"`
	Rainfall    *RainfallHistory         `json:"rainfall,omitempty"`
	HourlyWindKmh []float64              `json:"hourly_wind_kmh,omitempty"` // trailing 7 days
	Forecast    *DailyForecast           `json:"forecast,omitempty"`
	LandUse     *LandUse                 `json:"land_use,omitempty"`
	Satellite   *SatelliteEstimate       `json:"satellite,omitempty"`
	Confidence  Confidence               `json:"confidence"`
	// RiskHistory is the recent risk-score series for this site (oldest
	// first), used by the trend engine. Typically the last 30 snapshots.
	RiskHistory []float64 `json:"risk_history,omitempty"`
}
