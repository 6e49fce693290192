package analysis

import (
	"fmt"
	"strings"

	"bloomwatch/internal/types"
)

// Predictive alert trigger constants.
const (
	rapidIncreasePoints = 15.0 // day-over-day jump
	heatSpellTempC      = 30.0 // daily max for a heat day
	heatSpellDays       = 3    // consecutive heat days
	calmWindKmh         = 8.0  // below this a day counts as calm
	calmDaysMin         = 3    // calm days to flag stagnation
	flushPrecipMM       = 15.0 // daily rain for a nutrient flush
	trajectoryDelta     = 10.0 // last-vs-first score change
)

// BuildPredictiveAlerts scans the 7-day forecast for threshold crossings,
// rapid increases, heat spells, stagnation windows, and nutrient-flush rain.
// Crossing alerts are suppressed when the site is already at or above the
// level today, so same-day conditions never re-alert.
func BuildPredictiveAlerts(forecast types.ForecastResult, currentRiskScore float64) types.PredictiveAlerts {
	var alerts []types.PredictiveAlert
	var daysToWarning, daysToCritical *int
	maxRisk := currentRiskScore

	currentlyWarning := currentRiskScore >= types.RiskBandWarning
	currentlyCritical := currentRiskScore >= types.RiskBandCritical

	dateFor := func(i int) string {
		if i < len(forecast.Dates) {
			return forecast.Dates[i]
		}
		return fmt.Sprintf("Day %d", i+1)
	}

	for i, score := range forecast.RiskScores {
		day := i + 1

		if score > maxRisk {
			maxRisk = score
		}

		if !currentlyWarning && score >= types.RiskBandWarning && daysToWarning == nil {
			d := day
			daysToWarning = &d
			alerts = append(alerts, types.PredictiveAlert{
				Severity: types.AlertWarning,
				Message:  fmt.Sprintf("Risk projected to reach WARNING level in %d day(s) (score: %.0f)", day, score),
				Day:      day,
				Date:     dateFor(i),
				Score:    score,
			})
		}

		if !currentlyCritical && score >= types.RiskBandCritical && daysToCritical == nil {
			d := day
			daysToCritical = &d
			alerts = append(alerts, types.PredictiveAlert{
				Severity: types.AlertCritical,
				Message:  fmt.Sprintf("Risk projected to reach CRITICAL level in %d day(s) (score: %.0f)", day, score),
				Day:      day,
				Date:     dateFor(i),
				Score:    score,
			})
		}

		if i > 0 && score-forecast.RiskScores[i-1] > rapidIncreasePoints {
			alerts = append(alerts, types.PredictiveAlert{
				Severity: types.AlertRapidIncrease,
				Message:  fmt.Sprintf("Rapid risk increase on day %d: +%.0f points in 24h", day, score-forecast.RiskScores[i-1]),
				Day:      day,
				Date:     dateFor(i),
				Score:    score,
			})
		}
	}

	// Heat spell: first window of 3 consecutive days above 30 C, at most one
	// alert per forecast.
	for i := heatSpellDays - 1; i < len(forecast.TempMaxC); i++ {
		hot := true
		for j := i - (heatSpellDays - 1); j <= i; j++ {
			if forecast.TempMaxC[j] <= heatSpellTempC {
				hot = false
				break
			}
		}
		if hot {
			var score float64
			if i < len(forecast.RiskScores) {
				score = forecast.RiskScores[i]
			}
			alerts = append(alerts, types.PredictiveAlert{
				Severity: types.AlertHeat,
				Message:  fmt.Sprintf("3+ day heat spell (>30°C) through day %d; bloom conditions favorable", i+1),
				Day:      i + 1,
				Date:     dateFor(i),
				Score:    score,
			})
			break
		}
	}

	var calmDays int
	for _, w := range forecast.WindMaxKmh {
		if w < calmWindKmh {
			calmDays++
		}
	}
	if calmDays >= calmDaysMin {
		alerts = append(alerts, types.PredictiveAlert{
			Severity: types.AlertStagnation,
			Message:  fmt.Sprintf("%d of next 7 days have calm winds (<8 km/h); stagnation risk", calmDays),
		})
	}

	var flushDays []int
	for i, p := range forecast.PrecipMM {
		if p > flushPrecipMM {
			flushDays = append(flushDays, i+1)
		}
	}
	if len(flushDays) > 0 {
		parts := make([]string, len(flushDays))
		for i, d := range flushDays {
			parts[i] = fmt.Sprintf("%d", d)
		}
		alerts = append(alerts, types.PredictiveAlert{
			Severity: types.AlertNutrientFlush,
			Message:  fmt.Sprintf("Heavy rain (>15mm) expected on day(s) %s; nutrient flush risk", strings.Join(parts, ", ")),
			Day:      flushDays[0],
		})
	}

	trajectory := types.TrajectoryStable
	if len(forecast.RiskScores) >= 2 {
		delta := forecast.RiskScores[len(forecast.RiskScores)-1] - forecast.RiskScores[0]
		switch {
		case delta > trajectoryDelta:
			trajectory = types.TrajectoryWorsening
		case delta < -trajectoryDelta:
			trajectory = types.TrajectoryImproving
		}
	}

	var summary string
	if len(alerts) == 0 {
		summary = "No threshold crossings predicted in the next 7 days."
	} else {
		var crossings int
		for _, a := range alerts {
			if a.Severity == types.AlertWarning || a.Severity == types.AlertCritical {
				crossings++
			}
		}
		summary = fmt.Sprintf("%d predictive alert(s), %d threshold crossing(s) expected.", len(alerts), crossings)
	}

	return types.PredictiveAlerts{
		Alerts:          alerts,
		DaysToWarning:   daysToWarning,
		DaysToCritical:  daysToCritical,
		MaxForecastRisk: round1(maxRisk),
		Trajectory:      trajectory,
		Summary:         summary,
	}
}
