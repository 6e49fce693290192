// Package pipeline assembles raw collaborator outputs into the feature
// vector the scorers consume, and orchestrates a complete site analysis:
// sub-scores, growth kinetics, risk aggregation, forecast, trend
// diagnostics, predictive alerts, and the historical comparison.
package pipeline

import (
	"fmt"
	"math"

	"bloomwatch/internal/features"
	"bloomwatch/internal/types"
)

// Climatological midpoints substituted for missing (NaN) observation fields
// so no scorer ever sees NaN.
const (
	defaultAirTempC   = 20.0
	defaultWindKmh    = 10.0
	defaultCloudPct   = 50.0
	defaultUVIndex    = 3.0
	defaultLatitude   = 45.0
	defaultDayOfYear  = 180
	defaultDiurnalC   = 8.0
	defaultDeficit30d = 30.0
)

// expectedRain30dMM is the rough global-average 30-day rainfall (2.5 mm/day)
// against which the hydrological deficit is measured.
const expectedRain30dMM = 75.0

// significantRainMM is the daily total that ends a dry spell.
const significantRainMM = 5.0

// FeatureVector is the normalized input set for all scorers, assembled once
// per analysis from raw collaborator data.
type FeatureVector struct {
	AirTempC   float64
	WaterTempC float64

	Temp          features.TemperatureFeatures
	DiurnalRangeC float64

	AvgWind7dKmh         float64
	Rainfall7dMM         float64
	Rainfall48hMM        float64
	DaysSinceRain        int
	RainfallDeficit30dMM float64
	StagnationIndex      float64

	AgriculturalPct float64
	UrbanPct        float64
	ForestPct       float64
	WetlandPct      float64

	UVIndex    float64
	CloudCover float64
	Latitude   float64
	DayOfYear  int

	TempFactors     []string
	StagFactors     []string
	NutrientFactors []string
	LightFactors    []string
}

// BuildFeatureVector normalizes an AnalysisInputs bundle into the feature
// vector. Every missing source degrades to its documented default; the
// result never contains NaN.
func BuildFeatureVector(in types.AnalysisInputs) FeatureVector {
	obs := in.Observation

	airTemp := orDefault(obs.AirTempC, defaultAirTempC)
	fv := FeatureVector{
		AirTempC:   airTemp,
		WaterTempC: features.EstimateWaterTemp(airTemp),
		UVIndex:    orDefault(obs.UVIndex, defaultUVIndex),
		CloudCover: orDefault(obs.CloudCover, defaultCloudPct),
		Latitude:   obs.Location.Lat,
		DayOfYear:  obs.DayOfYear,
	}
	if fv.Latitude == 0 && obs.Location.Lon == 0 {
		fv.Latitude = defaultLatitude
	}
	if fv.DayOfYear <= 0 {
		if !obs.ObservedAt.IsZero() {
			fv.DayOfYear = obs.ObservedAt.YearDay()
		} else {
			fv.DayOfYear = defaultDayOfYear
		}
	}

	// Seasonal baseline and anomaly, gated on history sufficiency.
	fv.Temp = features.ExtractTemperatureFeatures(in.History, airTemp)

	fv.DiurnalRangeC = diurnalRange(in.Forecast)

	// 7-day average wind from the hourly tail.
	var windVals []float64
	start := len(in.HourlyWindKmh) - 168
	if start < 0 {
		start = 0
	}
	for _, w := range in.HourlyWindKmh[start:] {
		if !math.IsNaN(w) {
			windVals = append(windVals, w)
		}
	}
	if len(windVals) > 0 {
		var sum float64
		for _, w := range windVals {
			sum += w
		}
		fv.AvgWind7dKmh = sum / float64(len(windVals))
	} else {
		fv.AvgWind7dKmh = orDefault(obs.WindSpeedKmh, defaultWindKmh)
	}

	fv.Rainfall7dMM, fv.Rainfall48hMM, fv.DaysSinceRain, fv.RainfallDeficit30dMM = rainfallFeatures(in.Rainfall)

	fv.StagnationIndex = math.Min(1.0,
		float64(fv.DaysSinceRain)/14*0.5+(1-math.Min(fv.AvgWind7dKmh, 20)/20)*0.5)
	fv.StagnationIndex = math.Round(fv.StagnationIndex*1000) / 1000

	if in.LandUse != nil {
		fv.AgriculturalPct = in.LandUse.Cropland * 100
		fv.UrbanPct = in.LandUse.Urban * 100
		fv.ForestPct = in.LandUse.Forest * 100
		fv.WetlandPct = in.LandUse.Wetland * 100
	}

	fv.TempFactors = tempFactors(fv.WaterTempC, fv.Temp.AnomalyC)
	fv.StagFactors = stagnationFactors(fv.AvgWind7dKmh, fv.DaysSinceRain)
	fv.NutrientFactors = nutrientFactors(fv.AgriculturalPct, fv.UrbanPct, fv.DaysSinceRain, fv.Rainfall48hMM)
	fv.LightFactors = lightFactors(fv.UVIndex, fv.CloudCover)

	return fv
}

// diurnalRange computes the mean max-min spread over the trailing 7 daily
// entries, defaulting when the forecast is absent or empty.
func diurnalRange(fc *types.DailyForecast) float64 {
	if fc == nil {
		return defaultDiurnalC
	}
	tail := func(vals []float64) []float64 {
		start := len(vals) - 7
		if start < 0 {
			start = 0
		}
		var out []float64
		for _, v := range vals[start:] {
			if !math.IsNaN(v) {
				out = append(out, v)
			}
		}
		return out
	}
	maxs := tail(fc.TempMaxC)
	mins := tail(fc.TempMinC)
	if len(maxs) == 0 || len(mins) == 0 {
		return defaultDiurnalC
	}
	var sumMax, sumMin float64
	for _, v := range maxs {
		sumMax += v
	}
	for _, v := range mins {
		sumMin += v
	}
	return sumMax/float64(len(maxs)) - sumMin/float64(len(mins))
}

// rainfallFeatures derives the precipitation features from the trailing
// 30-day daily history.
func rainfallFeatures(rain *types.RainfallHistory) (rain7d, rain48h float64, daysSince int, deficit30d float64) {
	if rain == nil || len(rain.PrecipMM) == 0 {
		return 0, 0, 0, defaultDeficit30d
	}

	vals := rain.PrecipMM
	sumTail := func(n int) float64 {
		start := len(vals) - n
		if start < 0 {
			start = 0
		}
		var s float64
		for _, v := range vals[start:] {
			if !math.IsNaN(v) {
				s += v
			}
		}
		return s
	}

	rain7d = sumTail(7)
	rain48h = sumTail(2)

	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) && vals[i] >= significantRainMM {
			break
		}
		daysSince++
	}

	deficit30d = math.Max(0, expectedRain30dMM-sumTail(30))
	return rain7d, rain48h, daysSince, deficit30d
}

func tempFactors(waterTempC, anomalyC float64) []string {
	var out []string
	if waterTempC >= 25 {
		out = append(out, fmt.Sprintf("Warm water (%.0f°C ≥ 25°C)", waterTempC))
	}
	if anomalyC > 2 {
		out = append(out, fmt.Sprintf("Above-normal (+%.1f°C)", anomalyC))
	} else if anomalyC < -2 {
		out = append(out, fmt.Sprintf("Below-normal (%.1f°C)", anomalyC))
	}
	return out
}

func stagnationFactors(avgWindKmh float64, daysSinceRain int) []string {
	var out []string
	if avgWindKmh < 8 {
		out = append(out, "Low wind (<8 km/h)")
	}
	if daysSinceRain > 7 {
		out = append(out, fmt.Sprintf("Dry spell (%dd)", daysSinceRain))
	}
	return out
}

func nutrientFactors(agPct, urbanPct float64, daysSinceRain int, rain48h float64) []string {
	var out []string
	if agPct > 25 {
		out = append(out, fmt.Sprintf("High agriculture (%.0f%%)", agPct))
	}
	if urbanPct > 10 {
		out = append(out, fmt.Sprintf("Urban runoff (%.0f%%)", urbanPct))
	}
	if daysSinceRain <= 2 && rain48h > 10 {
		out = append(out, "Recent rain flush")
	}
	return out
}

func lightFactors(uvIndex, cloudCover float64) []string {
	var out []string
	if uvIndex > 6 {
		out = append(out, fmt.Sprintf("High UV (%.1f)", uvIndex))
	}
	if cloudCover < 30 {
		out = append(out, "Clear skies")
	}
	return out
}

// orDefault substitutes def for NaN values.
func orDefault(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}
