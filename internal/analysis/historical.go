package analysis

import (
	"fmt"
	"math"
	"sort"

	"bloomwatch/internal/types"
)

// Anomaly flag thresholds on the current-vs-historical z-score.
const (
	anomalyZStrong = 2.0
	anomalyZMild   = 1.5
)

// BuildHistoricalComparison answers "how does today compare to the last 5
// years" from the daily temperature record. Below the 30-sample activation
// threshold the result is marked unavailable and every field is neutral,
// a documented degraded mode rather than an error.
func BuildHistoricalComparison(
	history types.HistoricalSeries,
	currentAirTempC float64,
) types.HistoricalComparison {
	result := types.HistoricalComparison{
		Summary: "Insufficient historical data for comparison.",
	}
	if !history.Sufficient() {
		return result
	}
	result.Available = true

	temps := history.Temps()
	m := mean(temps)
	std := sampleStd(temps)

	minT, maxT := temps[0], temps[0]
	for _, t := range temps {
		minT = math.Min(minT, t)
		maxT = math.Max(maxT, t)
	}

	result.Stats = types.HistoricalStats{
		TempMeanC: round1(m),
		TempStdC:  math.Round(std*100) / 100,
		TempMinC:  round1(minT),
		TempMaxC:  round1(maxT),
		NDays:     len(temps),
	}

	var z float64
	if std > 0 {
		z = (currentAirTempC - m) / std
	}
	result.AirTempZScore = math.Round(z*100) / 100
	result.AnomalyScore = result.AirTempZScore

	var cooler int
	for _, t := range temps {
		if t < currentAirTempC {
			cooler++
		}
	}
	percentile := 100 * float64(cooler) / float64(len(temps))
	result.AirTempPercentile = round1(percentile)

	absZ := math.Abs(z)
	direction := "warmer"
	if z < 0 {
		direction = "cooler"
	}
	switch {
	case absZ > anomalyZStrong:
		result.Anomalous = true
		result.AnomalyFlags = append(result.AnomalyFlags,
			fmt.Sprintf("Temperature is %.1f sigma %s than the 5-year average", absZ, direction))
	case absZ > anomalyZMild:
		result.AnomalyFlags = append(result.AnomalyFlags,
			fmt.Sprintf("Temperature is %.1f sigma %s than average", absZ, direction))
	}

	result.YearlyAverages = yearlyAverages(history)

	if len(result.AnomalyFlags) > 0 {
		result.Summary = fmt.Sprintf(
			"Today's air temperature (%.1f°C) is at the %.0fth percentile compared to %d historical observations. %d anomaly flag(s) detected.",
			currentAirTempC, percentile, len(temps), len(result.AnomalyFlags))
	} else {
		result.Summary = fmt.Sprintf(
			"Today's air temperature (%.1f°C) is at the %.0fth percentile compared to %d historical observations. Current conditions are within normal historical range.",
			currentAirTempC, percentile, len(temps))
	}

	return result
}

func yearlyAverages(history types.HistoricalSeries) []types.YearlyAverage {
	byYear := make(map[int][]float64)
	for _, s := range history.Samples {
		y := s.Date.Year()
		byYear[y] = append(byYear[y], s.MeanC)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]types.YearlyAverage, 0, len(years))
	for _, y := range years {
		vals := byYear[y]
		out = append(out, types.YearlyAverage{
			Year:     y,
			AvgTempC: round1(mean(vals)),
			StdTempC: math.Round(sampleStd(vals)*100) / 100,
			NDays:    len(vals),
		})
	}
	return out
}
