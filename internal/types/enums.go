package types

// RiskLevel is the four-band classification of a 0-100 risk score.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "SAFE"
	RiskLow      RiskLevel = "LOW"
	RiskWarning  RiskLevel = "WARNING"
	RiskCritical RiskLevel = "CRITICAL"
)

// Risk band boundaries. Each band is inclusive on its lower bound and
// exclusive on its upper bound.
const (
	RiskBandLow      = 25.0
	RiskBandWarning  = 50.0
	RiskBandCritical = 75.0
)

// ClassifyRisk maps a 0-100 risk score to its band.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score < RiskBandLow:
		return RiskSafe
	case score < RiskBandWarning:
		return RiskLow
	case score < RiskBandCritical:
		return RiskWarning
	default:
		return RiskCritical
	}
}

// Color returns the display color associated with the band.
func (l RiskLevel) Color() string {
	switch l {
	case RiskSafe:
		return "#2ecc71"
	case RiskLow:
		return "#f1c40f"
	case RiskWarning:
		return "#e67e22"
	case RiskCritical:
		return "#e74c3c"
	default:
		return "#2ecc71"
	}
}

// WHOSeverity is the WHO 2003 recreational-water severity tier, keyed to
// estimated cyanobacteria cell concentration.
type WHOSeverity string

const (
	WHOLowRisk      WHOSeverity = "low_risk"
	WHOModerateRisk WHOSeverity = "moderate_risk"
	WHOHighRisk     WHOSeverity = "high_risk"
	WHOVeryHighRisk WHOSeverity = "very_high_risk"
)

// WHO cell-concentration breakpoints (cells/mL).
const (
	WHOCellsModerate = 20_000
	WHOCellsHigh     = 100_000
	WHOCellsVeryHigh = 10_000_000
)

// ClassifyWHOSeverity buckets an estimated cell concentration into a WHO tier.
func ClassifyWHOSeverity(cellsPerML int) WHOSeverity {
	switch {
	case cellsPerML < WHOCellsModerate:
		return WHOLowRisk
	case cellsPerML < WHOCellsHigh:
		return WHOModerateRisk
	case cellsPerML < WHOCellsVeryHigh:
		return WHOHighRisk
	default:
		return WHOVeryHighRisk
	}
}

// Confidence is the data-quality tier derived from how many upstream sources
// succeeded for an analysis.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// TrendDirection classifies a risk-score trend.
type TrendDirection string

const (
	TrendWorsening TrendDirection = "WORSENING"
	TrendStable    TrendDirection = "STABLE"
	TrendImproving TrendDirection = "IMPROVING"
)

// MKTrend is the Mann-Kendall monotonic trend classification.
type MKTrend string

const (
	MKIncreasing MKTrend = "increasing"
	MKDecreasing MKTrend = "decreasing"
	MKNoTrend    MKTrend = "no trend"
)

// LimitingFactor identifies the growth constraint with the lowest saturation
// fraction, per Liebig's law of the minimum.
type LimitingFactor string

const (
	FactorTemperature LimitingFactor = "Temperature"
	FactorNutrients   LimitingFactor = "Nutrients"
	FactorLight       LimitingFactor = "Light"
	FactorStagnation  LimitingFactor = "Stagnation"
)

// AlertSeverity identifies the kind of predictive alert raised from the
// 7-day forecast scan.
type AlertSeverity string

const (
	AlertWarning       AlertSeverity = "WARNING"
	AlertCritical      AlertSeverity = "CRITICAL"
	AlertRapidIncrease AlertSeverity = "RAPID_INCREASE"
	AlertHeat          AlertSeverity = "HEAT"
	AlertStagnation    AlertSeverity = "STAGNATION"
	AlertNutrientFlush AlertSeverity = "NUTRIENT_FLUSH"
)

// Trajectory summarizes where the forecast ends relative to where it starts.
type Trajectory string

const (
	TrajectoryWorsening Trajectory = "worsening"
	TrajectoryStable    Trajectory = "stable"
	TrajectoryImproving Trajectory = "improving"
)
