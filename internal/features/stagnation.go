package features

import "bloomwatch/internal/types"

// Stagnation index weights: wind mixing 40%, hydrological 30%,
// stratification 30%.
const (
	stagnationWindWeight  = 0.4
	stagnationHydroWeight = 0.3
	stagnationStratWeight = 0.3
)

// WindMixingScore inversely scales 7-day average wind speed onto [0,100]:
// <= 1 m/s is maximum stagnation, >= 5 m/s is fully mixed.
//
// The thresholds are in m/s. Callers measuring wind in km/h (the rest of the
// pipeline does) must convert before calling; the feature assembly divides
// by 3.6 at the boundary.
func WindMixingScore(wind7dAvgMS float64) float64 {
	switch {
	case wind7dAvgMS <= 1:
		return 100
	case wind7dAvgMS >= 5:
		return 0
	default:
		return 100 * (5 - wind7dAvgMS) / 4
	}
}

// HydrologicalStagnation linearly scales a 30-day rainfall deficit in mm
// onto [0,100]; 100mm or more of deficit is full stagnation.
func HydrologicalStagnation(rainfallDeficit30dMM float64) float64 {
	switch {
	case rainfallDeficit30dMM <= 0:
		return 0
	case rainfallDeficit30dMM >= 100:
		return 100
	default:
		return rainfallDeficit30dMM
	}
}

// StratificationProxy estimates thermal stratification strength from diurnal
// temperature range (0-10 C mapped to 0-60) and water temperature (0-30 C
// mapped to 0-40).
func StratificationProxy(diurnalRangeC, waterTempC float64) float64 {
	dtrScore := clamp(6*diurnalRangeC, 0, 60)
	tempScore := clamp(waterTempC/30*40, 0, 40)
	return dtrScore + tempScore
}

// StagnationInputs are the feature-vector fields the stagnation scorer
// consumes. AvgWind7dKmh is in km/h; conversion to the m/s mixing scale
// happens inside the scorer.
type StagnationInputs struct {
	AvgWind7dKmh         float64
	RainfallDeficit30dMM float64
	DiurnalRangeC        float64
	WaterTempC           float64
	Factors              []string
}

// ScoreStagnation combines the three stagnation proxies into a weighted
// 0-100 index.
func ScoreStagnation(in StagnationInputs) types.StagnationDetail {
	windSc := WindMixingScore(in.AvgWind7dKmh / 3.6)
	hydroSc := HydrologicalStagnation(in.RainfallDeficit30dMM)
	stratSc := clamp(StratificationProxy(in.DiurnalRangeC, in.WaterTempC), 0, 100)

	combined := stagnationWindWeight*windSc + stagnationHydroWeight*hydroSc + stagnationStratWeight*stratSc
	score := round1(clamp(combined, 0, 100))

	return types.StagnationDetail{
		SubScore: types.SubScore{
			Score:   score,
			Factors: in.Factors,
		},
		WindScore:           round1(windSc),
		HydroScore:          round1(hydroSc),
		StratificationScore: round1(stratSc),
		AvgWind7dKmh:        in.AvgWind7dKmh,
		RainfallDeficit30d:  in.RainfallDeficit30dMM,
	}
}
