package pipeline

import (
	"time"

	"bloomwatch/internal/analysis"
	"bloomwatch/internal/features"
	"bloomwatch/internal/model"
	"bloomwatch/internal/types"
)

// Analyze runs the full risk chain for one site: feature assembly, the four
// sub-scorers, Monod growth kinetics, both risk aggregators, the 7-day
// forecast with bands, trend diagnostics over the stored risk history,
// predictive alerts, and the historical comparison.
//
// Analyze is pure: it owns no state, performs no I/O, and can be invoked
// concurrently for independent sites.
func Analyze(in types.AnalysisInputs, now time.Time) types.AnalysisResult {
	fv := BuildFeatureVector(in)

	tempDetail := features.ScoreTemperature(features.TemperatureScoreInputs{
		WaterTempC:    fv.WaterTempC,
		AnomalyC:      fv.Temp.AnomalyC,
		DiurnalRangeC: fv.DiurnalRangeC,
		Baseline:      fv.Temp,
		Factors:       fv.TempFactors,
	})
	nutrientDetail := features.ScoreNutrients(features.NutrientInputs{
		AgriculturalPct: fv.AgriculturalPct,
		UrbanPct:        fv.UrbanPct,
		ForestPct:       fv.ForestPct,
		WetlandPct:      fv.WetlandPct,
		Factors:         fv.NutrientFactors,
	})
	stagnationDetail := features.ScoreStagnation(features.StagnationInputs{
		AvgWind7dKmh:         fv.AvgWind7dKmh,
		RainfallDeficit30dMM: fv.RainfallDeficit30dMM,
		DiurnalRangeC:        fv.DiurnalRangeC,
		WaterTempC:           fv.WaterTempC,
		Factors:              fv.StagFactors,
	})
	lightDetail := features.ScoreLight(features.LightInputs{
		UVIndex:     fv.UVIndex,
		CloudCover:  fv.CloudCover,
		LatitudeDeg: fv.Latitude,
		DayOfYear:   fv.DayOfYear,
		Factors:     fv.LightFactors,
	})

	growth := model.ComputeGrowthRate(
		tempDetail.Score,
		nutrientDetail.Score,
		lightDetail.Score,
		stagnationDetail.Score,
		fv.WaterTempC,
	)

	risk := model.ComputeBloomProbability(
		tempDetail.Score,
		nutrientDetail.Score,
		stagnationDetail.Score,
		lightDetail.Score,
		growth,
		in.Satellite,
		in.Confidence,
	)
	geoRisk := model.CalculateBloomRisk(
		tempDetail.Score,
		nutrientDetail.Score,
		stagnationDetail.Score,
		lightDetail.Score,
		growth.MuPerDay,
	)

	forecast := analysis.BuildForecast(in.Forecast, risk.RiskScore, in.Confidence, now)
	alerts := analysis.BuildPredictiveAlerts(forecast, risk.RiskScore)

	trend := analysis.ComputeTrend(in.RiskHistory)
	mk := analysis.MannKendall(in.RiskHistory)
	var sen types.SenSlopeResult
	if len(in.RiskHistory) >= 2 {
		// Error only occurs below 2 points, which is guarded here; the
		// degraded case keeps the zero-value estimate.
		sen, _ = analysis.SenSlope(in.RiskHistory)
	}

	historical := analysis.BuildHistoricalComparison(in.History, fv.AirTempC)

	return types.AnalysisResult{
		Location:   in.Observation.Location,
		AnalyzedAt: now,
		Confidence: in.Confidence,
		Components: types.ComponentDetails{
			Temperature: tempDetail,
			Nutrients:   nutrientDetail,
			Stagnation:  stagnationDetail,
			Light:       lightDetail,
		},
		GrowthRate:  growth,
		Risk:        risk,
		GeoRisk:     geoRisk,
		Forecast:    forecast,
		Trend:       trend,
		MannKendall: mk,
		SenSlope:    sen,
		Alerts:      alerts,
		Historical:  historical,
	}
}
