package model

import (
	"fmt"
	"math"

	"bloomwatch/internal/types"
)

// Aggregation weights shared by both risk models.
const (
	weightTemperature = 0.30
	weightNutrients   = 0.25
	weightStagnation  = 0.20
	weightLight       = 0.10
	weightGrowth      = 0.15
)

// Satellite cell-count breakpoints for the weighted-sum adjustment.
const (
	satelliteCellsMinor    = 5_000
	satelliteCellsModerate = 20_000
	satelliteCellsMajor    = 100_000
)

// cellsExpCoeff calibrates the score-to-cells exponential so score 50 maps
// to roughly 20k cells/mL and score 100 to roughly 10M.
const cellsExpCoeff = 0.115

// GrowthScore normalizes a specific growth rate onto the 0-100 component
// scale used by the aggregators.
func GrowthScore(muPerDay float64) float64 {
	return clamp(muPerDay/MuMax*100, 0, 100)
}

// EstimateCells maps a 0-100 risk score to an estimated cyanobacteria
// concentration in cells/mL via an exponential calibration, clamped to
// [100, 20M]. Monotonic increasing in the score.
func EstimateCells(riskScore float64) int {
	cells := 100 * math.Exp(riskScore*cellsExpCoeff)
	return int(clamp(cells, 100, 20_000_000))
}

// ComputeBloomProbability is the weighted-sum aggregator. Sub-scores and the
// growth score combine linearly; an optional satellite estimate nudges the
// result upward at fixed cell-count breakpoints.
func ComputeBloomProbability(
	tScore, nScore, sScore, lScore float64,
	growth types.GrowthRateResult,
	satellite *types.SatelliteEstimate,
	confidence types.Confidence,
) types.RiskResult {
	growthScore := GrowthScore(growth.MuPerDay)

	base := weightTemperature*tScore +
		weightNutrients*nScore +
		weightStagnation*sScore +
		weightLight*lScore +
		weightGrowth*growthScore

	var satAdj float64
	if satellite != nil && satellite.CellsPerML != nil {
		cells := *satellite.CellsPerML
		switch {
		case cells > satelliteCellsMajor:
			satAdj = 15
		case cells > satelliteCellsModerate:
			satAdj = 8
		case cells > satelliteCellsMinor:
			satAdj = 3
		}
	}

	score := round1(clamp(base+satAdj, 0, 100))
	level := types.ClassifyRisk(score)
	cells := EstimateCells(score)
	severity := types.ClassifyWHOSeverity(cells)
	advisory := BloomAdvisory(score, growth.DoublingTimeHours, growth.LimitingFactor) +
		" " + WHOProximity(cells)

	return types.RiskResult{
		RiskScore:           score,
		RiskLevel:           level,
		RiskColor:           level.Color(),
		WHOSeverity:         severity,
		EstimatedCellsPerML: cells,
		SatelliteAdjust:     satAdj,
		Confidence:          confidence,
		Advisory:            advisory,
		ComponentScores: types.ComponentScores{
			Temperature: round1(tScore),
			Nutrients:   round1(nScore),
			Stagnation:  round1(sScore),
			Light:       round1(lScore),
			Growth:      round1(growthScore),
		},
	}
}

// CalculateBloomRisk is the weighted-geometric-mean aggregator:
//
//	geo = exp(sum w_i * ln(max(s_i, 1e-3)))
//
// with an interaction boost of 0.10*min(T, N) added only when both the
// temperature and nutrient scores exceed 60; simultaneous warmth and
// nutrient load are synergistic bloom conditions.
func CalculateBloomRisk(
	temperatureScore, nutrientScore, stagnationScore, lightScore, growthRateMu float64,
) types.RiskResult {
	growthScore := GrowthScore(growthRateMu)

	scores := types.ComponentScores{
		Temperature: clamp(temperatureScore, 1e-3, 100),
		Nutrients:   clamp(nutrientScore, 1e-3, 100),
		Stagnation:  clamp(stagnationScore, 1e-3, 100),
		Light:       clamp(lightScore, 1e-3, 100),
		Growth:      clamp(growthScore, 1e-3, 100),
	}

	logSum := weightTemperature*math.Log(scores.Temperature) +
		weightNutrients*math.Log(scores.Nutrients) +
		weightStagnation*math.Log(scores.Stagnation) +
		weightLight*math.Log(scores.Light) +
		weightGrowth*math.Log(scores.Growth)
	geoMean := math.Exp(logSum)

	var boost float64
	if temperatureScore > 60 && nutrientScore > 60 {
		boost = 0.10 * math.Min(temperatureScore, nutrientScore)
	}

	score := round1(clamp(geoMean+boost, 0, 100))
	level := types.ClassifyRisk(score)
	cells := EstimateCells(score)

	return types.RiskResult{
		RiskScore:           score,
		RiskLevel:           level,
		RiskColor:           level.Color(),
		WHOSeverity:         types.ClassifyWHOSeverity(cells),
		EstimatedCellsPerML: cells,
		InteractionBoost:    math.Round(boost*100) / 100,
		ComponentScores: types.ComponentScores{
			Temperature: round1(scores.Temperature),
			Nutrients:   round1(scores.Nutrients),
			Stagnation:  round1(scores.Stagnation),
			Light:       round1(scores.Light),
			Growth:      round1(scores.Growth),
		},
	}
}

// BloomAdvisory renders the severity, recommended action, and growth
// kinetics into plain advisory text for presentation collaborators.
func BloomAdvisory(riskScore float64, doublingTimeHours *float64, limiting types.LimitingFactor) string {
	var severity, action string
	switch {
	case riskScore < 25:
		severity = "LOW"
		action = "No action required. Continue routine monitoring."
	case riskScore < 50:
		severity = "MODERATE"
		action = "Increase monitoring frequency. Watch for visible scum."
	case riskScore < 75:
		severity = "HIGH"
		action = "Restrict recreational access for vulnerable groups. Deploy additional sampling. Notify public health authorities."
	default:
		severity = "CRITICAL"
		action = "Issue public health advisory. Close recreational waters. Test drinking water intakes. Activate emergency response."
	}

	text := fmt.Sprintf("Bloom risk %s (score %.1f/100). %s", severity, riskScore, action)

	if doublingTimeHours != nil && *doublingTimeHours > 0 {
		h := *doublingTimeHours
		switch {
		case h < 24:
			text += fmt.Sprintf(" Rapid growth: population doubles every %.0fh; conditions may escalate quickly.", h)
		case h < 72:
			text += fmt.Sprintf(" Moderate growth: doubling time %.0fh.", h)
		default:
			text += fmt.Sprintf(" Slow growth: doubling time %.0fh, limited by %s.", h, limiting)
		}
	}

	return text
}

// WHOProximity describes where an estimated concentration sits relative to
// the WHO guidance thresholds, as plain advisory text.
func WHOProximity(estimatedCells int) string {
	switch {
	case estimatedCells < types.WHOCellsModerate:
		return fmt.Sprintf("Estimated concentration (%d cells/mL) is below the WHO low-risk threshold (20,000 cells/mL).", estimatedCells)
	case estimatedCells < types.WHOCellsHigh:
		return fmt.Sprintf("Estimated concentration (%d cells/mL) exceeds the WHO low-risk threshold. Caution advised for recreational use.", estimatedCells)
	case estimatedCells < types.WHOCellsVeryHigh:
		return fmt.Sprintf("Estimated concentration (%d cells/mL) exceeds the WHO moderate threshold. Avoid direct water contact.", estimatedCells)
	default:
		return fmt.Sprintf("Estimated concentration (%d cells/mL) far exceeds the WHO high-risk threshold. Immediate public health risk.", estimatedCells)
	}
}

// WHOThreshold is one row of the WHO 2003 guidance table.
type WHOThreshold struct {
	Label       string `json:"label"`
	Cells       int    `json:"cells"`
	Description string `json:"description"`
}

// WHOThresholds is the WHO 2003 recreational-water guidance table.
func WHOThresholds() []WHOThreshold {
	return []WHOThreshold{
		{Label: "WHO Low", Cells: types.WHOCellsModerate,
			Description: "Relatively low probability of adverse health effects."},
		{Label: "WHO Moderate", Cells: types.WHOCellsHigh,
			Description: "Moderate probability of adverse health effects."},
		{Label: "WHO High", Cells: types.WHOCellsVeryHigh,
			Description: "High probability of adverse health effects during recreational exposure."},
	}
}
