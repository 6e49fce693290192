package pipeline

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"bloomwatch/internal/types"
)

// SiteInputs pairs a site identifier with its analysis inputs.
type SiteInputs struct {
	SiteID string
	Inputs types.AnalysisInputs
}

// RadarAxes are the normalized 0-100 axes used for side-by-side site
// comparison charts.
type RadarAxes struct {
	TemperatureRisk float64 `json:"temperature_risk"`
	NutrientLoad    float64 `json:"nutrient_load"`
	Stagnation      float64 `json:"stagnation"`
	LightUV         float64 `json:"light_uv"`
	GrowthRate      float64 `json:"growth_rate"`
}

// SiteComparison is one site's summary row in a multi-site comparison.
type SiteComparison struct {
	SiteID     string           `json:"site_id"`
	RiskScore  float64          `json:"risk_score"`
	RiskLevel  types.RiskLevel  `json:"risk_level"`
	WaterTempC float64          `json:"water_temp_c"`
	AirTempC   float64          `json:"air_temp_c"`
	AvgWindKmh float64          `json:"avg_wind_kmh"`
	Rainfall7d float64          `json:"rainfall_7d_mm"`
	MuPerDay   float64          `json:"mu_per_day"`
	Trend      types.TrendDirection `json:"trend"`
	Confidence types.Confidence `json:"confidence"`
	Radar      RadarAxes        `json:"radar"`
}

// Ranking is one row of the risk-ordered site ranking.
type Ranking struct {
	Rank      int             `json:"rank"`
	SiteID    string          `json:"site_id"`
	RiskScore float64         `json:"risk_score"`
	RiskLevel types.RiskLevel `json:"risk_level"`
}

// ComparisonResult is the multi-site comparison output.
type ComparisonResult struct {
	Available bool             `json:"available"`
	Sites     []SiteComparison `json:"sites"`
	Ranking   []Ranking        `json:"ranking"`
	Results   map[string]types.AnalysisResult `json:"-"`
}

// CompareSites analyzes each site concurrently and ranks them by risk score.
// Each analysis is an independent pure-function invocation; ctx cancellation
// abandons remaining work.
func CompareSites(ctx context.Context, sites []SiteInputs, now time.Time) (ComparisonResult, error) {
	if len(sites) == 0 {
		return ComparisonResult{}, nil
	}

	results := make([]types.AnalysisResult, len(sites))
	g, ctx := errgroup.WithContext(ctx)
	for i, site := range sites {
		i, site := i, site
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := Analyze(site.Inputs, now)
			r.SiteID = site.SiteID
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ComparisonResult{}, err
	}

	out := ComparisonResult{
		Available: true,
		Results:   make(map[string]types.AnalysisResult, len(sites)),
	}
	for i, site := range sites {
		r := results[i]
		fv := BuildFeatureVector(site.Inputs)
		out.Results[site.SiteID] = r
		out.Sites = append(out.Sites, SiteComparison{
			SiteID:     site.SiteID,
			RiskScore:  r.Risk.RiskScore,
			RiskLevel:  r.Risk.RiskLevel,
			WaterTempC: fv.WaterTempC,
			AirTempC:   fv.AirTempC,
			AvgWindKmh: fv.AvgWind7dKmh,
			Rainfall7d: fv.Rainfall7dMM,
			MuPerDay:   r.GrowthRate.MuPerDay,
			Trend:      r.Trend.Trend,
			Confidence: r.Confidence,
			Radar:      radarAxes(fv, r),
		})
	}

	ranked := append([]SiteComparison{}, out.Sites...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RiskScore > ranked[j].RiskScore })
	for i, s := range ranked {
		out.Ranking = append(out.Ranking, Ranking{
			Rank:      i + 1,
			SiteID:    s.SiteID,
			RiskScore: s.RiskScore,
			RiskLevel: s.RiskLevel,
		})
	}

	return out, nil
}

func radarAxes(fv FeatureVector, r types.AnalysisResult) RadarAxes {
	return RadarAxes{
		TemperatureRisk: clamp100((fv.WaterTempC - 10) / 25 * 100),
		NutrientLoad:    math.Min(100, fv.AgriculturalPct*1.25),
		Stagnation:      clamp100((1 - fv.AvgWind7dKmh/30) * 100),
		LightUV:         math.Min(100, fv.UVIndex/12*100),
		GrowthRate:      math.Min(100, r.GrowthRate.MuPerDay/1.2*100),
	}
}

func clamp100(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
