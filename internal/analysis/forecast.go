// Package analysis implements the time-series side of the engine: the 7-day
// risk forecast with confidence bands, trend diagnostics (OLS, Mann-Kendall,
// Theil-Sen), predictive threshold alerts, and the historical comparison.
// All functions are pure and degrade to neutral outputs on sparse input.
package analysis

import (
	"math"
	"time"

	"bloomwatch/internal/types"
)

// Defaults substituted for missing forecast days.
const (
	defaultTempMaxC   = 20.0
	defaultTempMinC   = 10.0
	defaultPrecipMM   = 0.0
	defaultWindMaxKmh = 10.0
	defaultUVMax      = 3.0
)

// Momentum blend: each projected day keeps 70% of its own value and 30% of
// the previous day's, creating the serial correlation real risk shows.
const (
	momentumSelf = 0.7
	momentumPrev = 0.3
)

// Confidence band geometry: base width by data-quality tier plus linear
// growth with forecast horizon.
const bandHorizonGrowth = 2.5

func baseBandWidth(c types.Confidence) float64 {
	switch c {
	case types.ConfidenceHigh:
		return 5
	case types.ConfidenceMedium:
		return 10
	case types.ConfidenceLow:
		return 18
	default:
		return 12
	}
}

// BuildForecast projects the current risk score over the next 7 days from
// daily forecast weather and attaches the confidence envelope. Output arrays
// always have length exactly types.ForecastDays: shorter raw input is padded
// with the last projection (or the current score) and domain defaults;
// longer input keeps its trailing 7 days.
func BuildForecast(
	raw *types.DailyForecast,
	currentRisk float64,
	confidence types.Confidence,
	now time.Time,
) types.ForecastResult {
	var dates []string
	var tMax, tMin, precip, windMax, uvMax []float64

	rawDays := 0
	if raw != nil {
		n := len(raw.Dates)
		if n > types.ForecastDays {
			n = types.ForecastDays
		}
		rawDays = n
		slice7 := func(vals []float64, def float64) []float64 {
			return tailPadded(vals, len(raw.Dates), n, def)
		}
		if len(raw.Dates) > types.ForecastDays {
			dates = append(dates, raw.Dates[len(raw.Dates)-types.ForecastDays:]...)
		} else {
			dates = append(dates, raw.Dates...)
		}
		tMax = slice7(raw.TempMaxC, defaultTempMaxC)
		tMin = slice7(raw.TempMinC, defaultTempMinC)
		precip = slice7(raw.PrecipMM, defaultPrecipMM)
		windMax = slice7(raw.WindMaxKmh, defaultWindMaxKmh)
		uvMax = slice7(raw.UVMax, defaultUVMax)
	}

	if len(dates) < types.ForecastDays {
		dates = dates[:0]
		for i := 0; i < types.ForecastDays; i++ {
			dates = append(dates, now.AddDate(0, 0, i).Format("2006-01-02"))
		}
	}
	tMax = padTo(tMax, defaultTempMaxC)
	tMin = padTo(tMin, defaultTempMinC)
	precip = padTo(precip, defaultPrecipMM)
	windMax = padTo(windMax, defaultWindMaxKmh)
	uvMax = padTo(uvMax, defaultUVMax)

	scores := make([]float64, 0, types.ForecastDays)
	for i := 0; i < rawDays; i++ {
		tAvg := (tMax[i] + tMin[i]) / 2

		tempFactor := clamp((tAvg-15)/20, 0, 1)
		rainFactor := clamp(1-precip[i]/20, 0, 1) // dry = higher risk
		windFactor := clamp(1-windMax[i]/30, 0, 1) // calm = higher risk

		projected := currentRisk*0.5 + (tempFactor*40+rainFactor*15+windFactor*10)*0.5
		if i > 0 {
			projected = projected*momentumSelf + scores[i-1]*momentumPrev
		}
		scores = append(scores, round1(clamp(projected, 0, 100)))
	}

	// Days beyond the supplied forecast repeat the last projection; with no
	// forecast at all the current score carries through the week.
	padScore := round1(clamp(currentRisk, 0, 100))
	if len(scores) > 0 {
		padScore = scores[len(scores)-1]
	}
	for len(scores) < types.ForecastDays {
		scores = append(scores, padScore)
	}

	result := types.ForecastResult{
		Dates:          dates[:types.ForecastDays],
		RiskScores:     scores,
		TempMaxC:       tMax,
		TempMinC:       tMin,
		PrecipMM:       precip,
		WindMaxKmh:     windMax,
		UVMax:          uvMax,
		BandConfidence: confidence,
	}
	attachConfidenceBands(&result, confidence)
	return result
}

// attachConfidenceBands computes the upper/lower envelope around the
// projected scores: wider for lower data quality and for longer horizons,
// clamped to [0,100].
func attachConfidenceBands(f *types.ForecastResult, confidence types.Confidence) {
	base := baseBandWidth(confidence)
	f.UpperBand = make([]float64, len(f.RiskScores))
	f.LowerBand = make([]float64, len(f.RiskScores))
	for i, s := range f.RiskScores {
		width := base + float64(i)*bandHorizonGrowth
		f.UpperBand[i] = round1(math.Min(100, s+width))
		f.LowerBand[i] = round1(math.Max(0, s-width))
	}
}

// tailPadded takes the forecast slice of vals aligned to a date axis of
// length total: the last n entries when the axis exceeds 7 days, the first n
// otherwise, padded to n with def and with NaNs replaced by def.
func tailPadded(vals []float64, total, n int, def float64) []float64 {
	var out []float64
	if len(vals) > 0 {
		if total > types.ForecastDays && len(vals) >= n {
			out = append(out, vals[len(vals)-n:]...)
		} else if len(vals) >= n {
			out = append(out, vals[:n]...)
		} else {
			out = append(out, vals...)
		}
	}
	for i := range out {
		if math.IsNaN(out[i]) {
			out[i] = def
		}
	}
	for len(out) < n {
		out = append(out, def)
	}
	return out
}

// padTo extends vals to the forecast horizon with def.
func padTo(vals []float64, def float64) []float64 {
	for len(vals) < types.ForecastDays {
		vals = append(vals, def)
	}
	return vals[:types.ForecastDays]
}
