package analysis

import (
	"fmt"
	"math"

	"bloomwatch/internal/types"
)

// Dual-threshold trend classification: both the slope magnitude and the
// significance test must pass, otherwise the trend is STABLE.
const (
	trendSlopeThreshold = 0.3
	trendPThreshold     = 0.1
)

// mkAlpha is the Mann-Kendall significance level.
const mkAlpha = 0.05

// ComputeTrend fits an OLS line to a recent risk-score series (oldest
// first, typically the last 30 snapshots) and classifies the direction.
//
// The p-value is deliberately NOT a Student's-t p-value: it is the display
// approximation 2/(1+e^|t|), kept exactly for classification compatibility.
// Fewer than 3 points, or a degenerate x-variance, yields the neutral
// STABLE result.
func ComputeTrend(scores []float64) types.TrendResult {
	if len(scores) < 3 {
		return neutralTrend()
	}

	n := len(scores)
	var xMean float64
	for i := 0; i < n; i++ {
		xMean += float64(i)
	}
	xMean /= float64(n)
	yMean := mean(scores)

	var ssXY, ssXX float64
	for i, y := range scores {
		dx := float64(i) - xMean
		ssXY += dx * (y - yMean)
		ssXX += dx * dx
	}
	if ssXX == 0 {
		return neutralTrend()
	}

	slope := ssXY / ssXX
	intercept := yMean - slope*xMean

	var ssRes float64
	for i, y := range scores {
		r := y - (slope*float64(i) + intercept)
		ssRes += r * r
	}
	dof := n - 2
	if dof < 1 {
		dof = 1
	}
	se := math.Sqrt(ssRes/float64(dof)) / math.Sqrt(ssXX)
	// Zero residual variance keeps t at 0 so a perfect fit reads as stable.
	var tStat float64
	if se > 0 {
		tStat = slope / se
	}
	pValue := pseudoPValue(tStat)

	var trend types.TrendDirection
	var desc string
	switch {
	case slope > trendSlopeThreshold && pValue < trendPThreshold:
		trend = types.TrendWorsening
		desc = fmt.Sprintf("Risk scores are increasing at %+.2f pts/day over the past %d observations (p=%.3f). Conditions are trending towards higher bloom risk.", slope, n, pValue)
	case slope < -trendSlopeThreshold && pValue < trendPThreshold:
		trend = types.TrendImproving
		desc = fmt.Sprintf("Risk scores are decreasing at %+.2f pts/day over the past %d observations (p=%.3f). Conditions are trending towards lower bloom risk.", slope, n, pValue)
	default:
		trend = types.TrendStable
		desc = fmt.Sprintf("Risk scores are stable (slope=%+.2f pts/day, p=%.3f). No statistically significant trend detected over the past %d observations.", slope, pValue, n)
	}

	return types.TrendResult{
		Trend:       trend,
		SlopePerDay: math.Round(slope*1000) / 1000,
		PValue:      math.Round(pValue*10000) / 10000,
		Description: desc,
	}
}

// pseudoPValue approximates a two-tailed p-value as a sigmoid of the
// t-statistic. Good enough for display; not a real t-distribution tail.
func pseudoPValue(tStat float64) float64 {
	return 2 / (1 + math.Exp(math.Abs(tStat)))
}

func neutralTrend() types.TrendResult {
	return types.TrendResult{
		Trend:       types.TrendStable,
		SlopePerDay: 0.0,
		PValue:      1.0,
		Description: "Insufficient data points for trend analysis.",
	}
}

// MannKendall runs the nonparametric Mann-Kendall trend test: the S
// statistic over all pairwise sign differences, variance with tie
// correction, a continuity-corrected z-score, and a two-tailed p-value from
// the standard normal CDF. Significant at alpha = 0.05. Fewer than 3 points
// yields the neutral "no trend" result.
func MannKendall(data []float64) types.MannKendallResult {
	n := len(data)
	if n < 3 {
		return types.MannKendallResult{PValue: 1.0, Trend: types.MKNoTrend}
	}

	var s int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			switch {
			case data[j] > data[i]:
				s++
			case data[j] < data[i]:
				s--
			}
		}
	}

	// Tied-value groups contribute t(t-1)(2t+5) each to the correction.
	counts := make(map[float64]int, n)
	for _, v := range data {
		counts[v]++
	}
	var tieCorrection float64
	for _, t := range counts {
		if t > 1 {
			tf := float64(t)
			tieCorrection += tf * (tf - 1) * (2*tf + 5)
		}
	}

	nf := float64(n)
	varS := (nf*(nf-1)*(2*nf+5) - tieCorrection) / 18.0

	var z float64
	switch {
	case varS == 0:
		z = 0
	case s > 0:
		z = (float64(s) - 1) / math.Sqrt(varS)
	case s < 0:
		z = (float64(s) + 1) / math.Sqrt(varS)
	}

	p := 2.0 * (1.0 - normCDF(math.Abs(z)))

	trend := types.MKNoTrend
	if p <= mkAlpha {
		if s > 0 {
			trend = types.MKIncreasing
		} else {
			trend = types.MKDecreasing
		}
	}

	return types.MannKendallResult{
		S:           s,
		VarS:        math.Round(varS*10000) / 10000,
		ZScore:      math.Round(z*10000) / 10000,
		PValue:      math.Round(p*1e6) / 1e6,
		Trend:       trend,
		Significant: p <= mkAlpha,
	}
}

// SenSlope computes the Theil-Sen robust slope: the median of all pairwise
// slopes (x_j - x_i)/(j - i) for i < j, with intercept the median of
// x_i - slope*i. The estimator structurally requires at least 2 points;
// fewer is a caller error.
func SenSlope(data []float64) (types.SenSlopeResult, error) {
	n := len(data)
	if n < 2 {
		return types.SenSlopeResult{}, fmt.Errorf("sen slope: need at least 2 points, got %d", n)
	}

	slopes := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			slopes = append(slopes, (data[j]-data[i])/float64(j-i))
		}
	}

	medSlope := median(slopes)

	intercepts := make([]float64, n)
	for i, v := range data {
		intercepts[i] = v - medSlope*float64(i)
	}

	return types.SenSlopeResult{
		Slope:     math.Round(medSlope*1e6) / 1e6,
		Intercept: math.Round(median(intercepts)*10000) / 10000,
		NSlopes:   len(slopes),
	}, nil
}
