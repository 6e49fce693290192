package features

import "bloomwatch/internal/types"

// NutrientInputs are land-use percentages (0-100) around the water body,
// used as proxies for nutrient loading.
type NutrientInputs struct {
	AgriculturalPct float64
	UrbanPct        float64
	ForestPct       float64
	WetlandPct      float64
	Factors         []string
}

// ScoreNutrients scores nutrient loading risk from land-use proxies.
// Agricultural runoff is the primary phosphorus/nitrogen source; urban
// runoff adds nutrients and pollutants; forest and wetland buffer the load.
// Each term is capped independently before they are combined.
func ScoreNutrients(in NutrientInputs) types.NutrientDetail {
	agScore := clamp(in.AgriculturalPct*1.2, 0, 50)
	urbanScore := clamp(in.UrbanPct*1.5, 0, 30)
	bufferReduction := clamp((in.ForestPct+in.WetlandPct)*0.3, 0, 20)

	total := round1(clamp(agScore+urbanScore-bufferReduction, 0, 100))

	return types.NutrientDetail{
		SubScore: types.SubScore{
			Score:   total,
			Factors: in.Factors,
		},
		AgriculturalPct: in.AgriculturalPct,
		UrbanPct:        in.UrbanPct,
		ForestPct:       in.ForestPct,
		WetlandPct:      in.WetlandPct,
		AgricultureSub:  round1(agScore),
		UrbanSub:        round1(urbanScore),
		BufferReduction: round1(bufferReduction),
	}
}
