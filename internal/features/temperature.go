// Package features implements the deterministic sub-scorers that turn raw
// environmental observations into 0-100 component scores: temperature,
// light, stagnation, and nutrients. All functions are pure; degraded inputs
// fall back to documented neutral values instead of failing.
package features

import (
	"fmt"
	"math"

	"bloomwatch/internal/types"
)

// seasonalOmega is the angular frequency of the annual cycle.
const seasonalOmega = 2 * math.Pi / 365.25

// minBaselinePoints is the minimum number of valid (doy, temp) pairs for a
// harmonic fit; below it the baseline degrades to the flat series mean.
const minBaselinePoints = 10

// EstimateWaterTemp estimates surface water temperature from air temperature
// using the Livingstone & Lotter (1998) empirical formula, clamped at 0
// and rounded to 0.1 degree. Monotonic non-decreasing and never negative.
func EstimateWaterTemp(airTempC float64) float64 {
	return math.Max(0, math.Round((0.97*airTempC-3.24)*10)/10)
}

// SeasonalBaseline fits an ordinary-least-squares harmonic regression
//
//	temp ~ b0 + sum_{k=1..n} (a_k sin(k*omega*doy) + b_k cos(k*omega*doy))
//
// over historical (day-of-year, temperature) pairs, with NaN pairs removed,
// and returns the fitted value for every input day-of-year. If fewer than
// minBaselinePoints valid pairs remain or the normal equations are singular,
// every output is the mean of the valid temperatures (a flat baseline, not
// an error). Mismatched input lengths are the caller's bug and are reported.
func SeasonalBaseline(dayOfYear, temp []float64, nHarmonics int) ([]float64, error) {
	if len(dayOfYear) != len(temp) {
		return nil, fmt.Errorf("seasonal baseline: doy length %d != temp length %d", len(dayOfYear), len(temp))
	}
	if nHarmonics < 1 {
		nHarmonics = 1
	}

	var doyClean, yClean []float64
	for i := range temp {
		if math.IsNaN(dayOfYear[i]) || math.IsNaN(temp[i]) {
			continue
		}
		doyClean = append(doyClean, dayOfYear[i])
		yClean = append(yClean, temp[i])
	}

	flat := func() []float64 {
		m := mean(yClean)
		out := make([]float64, len(temp))
		for i := range out {
			out[i] = m
		}
		return out
	}

	if len(yClean) < minBaselinePoints {
		return flat(), nil
	}

	p := 1 + 2*nHarmonics
	row := func(doy float64) []float64 {
		r := make([]float64, p)
		r[0] = 1
		for k := 1; k <= nHarmonics; k++ {
			r[2*k-1] = math.Sin(float64(k) * seasonalOmega * doy)
			r[2*k] = math.Cos(float64(k) * seasonalOmega * doy)
		}
		return r
	}

	// Normal equations: (X'X) beta = X'y.
	xtx := make([][]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	xty := make([]float64, p)
	for i, doy := range doyClean {
		r := row(doy)
		for a := 0; a < p; a++ {
			xty[a] += r[a] * yClean[i]
			for b := 0; b < p; b++ {
				xtx[a][b] += r[a] * r[b]
			}
		}
	}

	beta, ok := solveLinearSystem(xtx, xty)
	if !ok {
		return flat(), nil
	}

	out := make([]float64, len(dayOfYear))
	for i, doy := range dayOfYear {
		if math.IsNaN(doy) {
			out[i] = mean(yClean)
			continue
		}
		r := row(doy)
		var v float64
		for a := 0; a < p; a++ {
			v += r[a] * beta[a]
		}
		out[i] = v
	}
	return out, nil
}

// solveLinearSystem solves a small dense system via Gaussian elimination
// with partial pivoting. Returns ok=false when the matrix is singular.
func solveLinearSystem(m [][]float64, rhs []float64) ([]float64, bool) {
	n := len(rhs)
	a := make([][]float64, n)
	for i := range a {
		a[i] = append(append([]float64{}, m[i]...), rhs[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c <= n; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		v := a[i][n]
		for j := i + 1; j < n; j++ {
			v -= a[i][j] * x[j]
		}
		x[i] = v / a[i][i]
	}
	return x, true
}

// ComputeAnomalies returns the z-score of each observed value relative to
// the baseline: residual divided by the population standard deviation of the
// residuals (NaNs excluded from the std). When the std is 0 or undefined the
// result is all zeros. NaN residuals stay NaN for the percentile stage.
func ComputeAnomalies(observed, baseline []float64) ([]float64, error) {
	if len(observed) != len(baseline) {
		return nil, fmt.Errorf("anomalies: observed length %d != baseline length %d", len(observed), len(baseline))
	}

	residuals := make([]float64, len(observed))
	for i := range observed {
		residuals[i] = observed[i] - baseline[i]
	}

	std := popStd(residuals)
	out := make([]float64, len(residuals))
	if std == 0 || math.IsNaN(std) {
		return out, nil
	}
	for i, r := range residuals {
		out[i] = r / std
	}
	return out, nil
}

// PercentileRanking converts each anomaly into the percentage of all valid
// anomalies less than or equal to it (inclusive). NaN inputs rank as the
// neutral 50.0, as does an all-NaN series.
func PercentileRanking(anomalies []float64) []float64 {
	var valid []float64
	for _, a := range anomalies {
		if !math.IsNaN(a) {
			valid = append(valid, a)
		}
	}

	out := make([]float64, len(anomalies))
	if len(valid) == 0 {
		for i := range out {
			out[i] = 50.0
		}
		return out
	}

	for i, a := range anomalies {
		if math.IsNaN(a) {
			out[i] = 50.0
			continue
		}
		var le int
		for _, v := range valid {
			if v <= a {
				le++
			}
		}
		out[i] = 100.0 * float64(le) / float64(len(valid))
	}
	return out
}

// TrendSlope7Day returns the OLS slope over the last up-to-7 non-NaN values,
// in degrees per day. Fewer than 3 valid points yields 0.
func TrendSlope7Day(temps []float64) float64 {
	start := len(temps) - 7
	if start < 0 {
		start = 0
	}
	var recent []float64
	for _, t := range temps[start:] {
		if !math.IsNaN(t) {
			recent = append(recent, t)
		}
	}
	if len(recent) < 3 {
		return 0.0
	}

	n := float64(len(recent))
	var xMean float64
	for i := range recent {
		xMean += float64(i)
	}
	xMean /= n
	yMean := mean(recent)

	var ssXY, ssXX float64
	for i, y := range recent {
		dx := float64(i) - xMean
		ssXY += dx * (y - yMean)
		ssXX += dx * dx
	}
	if ssXX == 0 {
		return 0.0
	}
	return ssXY / ssXX
}

// CompositeRiskScore combines anomaly magnitude, 7-day trend slope, and
// estimated water temperature into a 0-100 temperature stress score. The
// sigmoid midpoint at 25 C is the literature bloom threshold.
func CompositeRiskScore(anomalyZ, trendSlope, waterTempC float64) float64 {
	anomalyScore := math.Min(40, math.Abs(anomalyZ)*20)
	trendScore := math.Min(20, math.Max(0, trendSlope*20))
	wtScore := 40.0 / (1.0 + math.Exp(-0.3*(waterTempC-25.0)))
	return clamp(anomalyScore+trendScore+wtScore, 0, 100)
}

// TemperatureFeatures is the full extractor output for one site.
type TemperatureFeatures struct {
	SeasonalBaselineC float64
	AnomalyZ          float64
	AnomalyC          float64
	PercentileRank    float64
	TrendSlope7d      float64
	WaterTempC        float64
	CompositeRisk     float64

	BaselineSeries   []float64
	AnomalySeries    []float64
	PercentileSeries []float64
}

// ExtractTemperatureFeatures runs the whole temperature chain on a
// historical series plus the current air temperature. A series below the
// activation threshold yields the neutral degraded result: baseline equals
// the current reading, anomaly zero, percentile 50.
func ExtractTemperatureFeatures(history types.HistoricalSeries, currentAirTempC float64) TemperatureFeatures {
	neutral := TemperatureFeatures{
		SeasonalBaselineC: round1(currentAirTempC),
		PercentileRank:    50.0,
		WaterTempC:        EstimateWaterTemp(currentAirTempC),
	}
	neutral.CompositeRisk = round1(CompositeRiskScore(0, 0, neutral.WaterTempC))
	if !history.Sufficient() {
		return neutral
	}

	temps := history.Temps()
	doys := history.DaysOfYear()

	baseline, err := SeasonalBaseline(doys, temps, 2)
	if err != nil {
		return neutral
	}
	anomalies, err := ComputeAnomalies(temps, baseline)
	if err != nil {
		return neutral
	}
	percentiles := PercentileRanking(anomalies)
	slope := TrendSlope7Day(temps)
	waterTemp := EstimateWaterTemp(currentAirTempC)

	last := len(temps) - 1
	f := TemperatureFeatures{
		SeasonalBaselineC: round1(baseline[last]),
		AnomalyZ:          anomalies[last],
		AnomalyC:          round1(currentAirTempC - baseline[last]),
		PercentileRank:    round1(percentiles[last]),
		TrendSlope7d:      slope,
		WaterTempC:        waterTemp,
		BaselineSeries:    baseline,
		AnomalySeries:     anomalies,
		PercentileSeries:  percentiles,
	}
	f.CompositeRisk = round1(CompositeRiskScore(f.AnomalyZ, slope, waterTemp))
	return f
}

// TemperatureScoreInputs are the fields the temperature scorer consumes from
// the assembled feature vector.
type TemperatureScoreInputs struct {
	WaterTempC    float64
	AnomalyC      float64
	DiurnalRangeC float64
	Baseline      TemperatureFeatures
	Factors       []string
}

// ScoreTemperature produces the temperature sub-score: the composite risk
// from an anomaly-derived z and trend approximation, plus a diurnal-range
// bonus (low diurnal range means stable stratification).
func ScoreTemperature(in TemperatureScoreInputs) types.TemperatureDetail {
	var anomalyZ float64
	if in.AnomalyC != 0 {
		anomalyZ = in.AnomalyC / 3.0 // typical residual std ~3 C
	}
	var trendSlope float64
	if in.AnomalyC > 0 {
		trendSlope = in.AnomalyC / 7.0
	}

	base := CompositeRiskScore(anomalyZ, trendSlope, in.WaterTempC)
	diurnalBonus := clamp((12-in.DiurnalRangeC)*1.5, 0, 15)
	total := round1(clamp(base+diurnalBonus, 0, 100))

	return types.TemperatureDetail{
		SubScore: types.SubScore{
			Score:   total,
			Factors: in.Factors,
		},
		WaterTempC:       in.WaterTempC,
		AnomalyC:         in.AnomalyC,
		DiurnalRangeC:    in.DiurnalRangeC,
		CompositeRisk:    round1(base),
		DiurnalBonus:     round1(diurnalBonus),
		SeasonalBaseline: in.Baseline.SeasonalBaselineC,
		PercentileRank:   in.Baseline.PercentileRank,
		TrendSlope7d:     in.Baseline.TrendSlope7d,
	}
}
