package features

import (
	"math"

	"bloomwatch/internal/types"
)

// maxUVIndex is the typical maximum UV index used to normalize readings.
const maxUVIndex = 11.0

// NormalizeUV maps a UV index reading onto [0,1].
func NormalizeUV(uvIndex float64) float64 {
	return clamp(uvIndex/maxUVIndex, 0, 1)
}

// Photoperiod returns the approximate day length in hours for a latitude and
// day of year, via the standard solar-declination / hour-angle approximation.
// The hour-angle cosine is clamped to [-1,1] so polar day and polar night do
// not leave the arccos domain.
func Photoperiod(latitudeDeg float64, dayOfYear int) float64 {
	latRad := latitudeDeg * math.Pi / 180

	declDeg := 23.44 * math.Cos(float64(172-dayOfYear)*360/365*math.Pi/180)
	declRad := declDeg * math.Pi / 180

	cosHA := clamp(-math.Tan(latRad)*math.Tan(declRad), -1, 1)
	ha := math.Acos(cosHA)

	return 24 * ha / math.Pi
}

// CloudSuppression returns the light transmission factor in [0,1] for a
// cloud cover reading: values <= 1 are treated as fractions, larger values
// as percentages.
func CloudSuppression(cloudCover float64) float64 {
	frac := cloudCover
	if cloudCover > 1 {
		frac = cloudCover / 100
	}
	return clamp(1-frac, 0, 1)
}

// LightInputs are the observation fields the light scorer consumes.
// Missing values should be defaulted by the caller to climatological
// midpoints (UV 3.0, cloud 50%, latitude 45, day 180).
type LightInputs struct {
	UVIndex     float64
	CloudCover  float64
	LatitudeDeg float64
	DayOfYear   int
	Factors     []string
}

// ScoreLight combines normalized UV, normalized photoperiod, and cloud
// suppression multiplicatively into a 0-100 light availability score.
func ScoreLight(in LightInputs) types.LightDetail {
	uvNorm := NormalizeUV(in.UVIndex)
	dayLen := Photoperiod(in.LatitudeDeg, in.DayOfYear)
	dayLenNorm := clamp(dayLen/24, 0, 1)
	cloudFactor := CloudSuppression(in.CloudCover)

	score := round1(clamp(uvNorm*dayLenNorm*cloudFactor*100, 0, 100))

	return types.LightDetail{
		SubScore: types.SubScore{
			Score:   score,
			Factors: in.Factors,
		},
		UVNorm:      math.Round(uvNorm*1000) / 1000,
		DayLengthH:  round1(dayLen),
		CloudFactor: math.Round(cloudFactor*1000) / 1000,
	}
}
