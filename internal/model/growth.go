// Package model implements the biological risk models: Monod growth
// kinetics and the two risk aggregators (weighted sum and weighted
// geometric mean). Everything here is a pure function over its inputs.
package model

import (
	"math"

	"bloomwatch/internal/types"
)

// MuMax is the maximum specific growth rate for Microcystis aeruginosa,
// roughly 1.2 per day at optimum conditions.
const MuMax = 1.2

// Cardinal temperatures for the Rosso et al. (1993) correction.
const (
	cardinalTOpt = 28.0
	cardinalTMin = 5.0
	cardinalTMax = 40.0
)

// fractionFloor keeps every saturation fraction above zero so a single
// fully-limiting factor cannot collapse the multiplicative model to exactly
// zero.
const fractionFloor = 0.01

// muEpsilon is the growth rate below which doubling time is undefined.
const muEpsilon = 0.001

// TempCorrection computes the cardinal temperature correction factor,
// peaking near 28 C and floored at 0.01 outside [5 C, 40 C]. A zero
// denominator is guarded to the same floor.
func TempCorrection(waterTempC float64) float64 {
	if waterTempC <= cardinalTMin || waterTempC >= cardinalTMax {
		return fractionFloor
	}

	num := (waterTempC - cardinalTMax) * (waterTempC - cardinalTMin) * (waterTempC - cardinalTMin)
	den := (cardinalTOpt - cardinalTMin) * ((cardinalTOpt-cardinalTMin)*(waterTempC-cardinalTOpt) -
		(cardinalTOpt-cardinalTMax)*(cardinalTOpt+cardinalTMin-2*waterTempC))
	if den == 0 {
		return fractionFloor
	}
	return clamp(num/den, fractionFloor, 1.0)
}

// ComputeGrowthRate combines the four sub-scores and the cardinal
// temperature correction into a specific growth rate per the Monod model:
//
//	mu = MuMax * f_T * f_N * f_L * f_S * tempCorrection
//
// Each factor is its score normalized to [0.01, 1.0]. The limiting factor
// is the minimum of the four raw fractions (the temperature correction does
// not compete). The biomass trajectory has 8 points starting at 1.0.
func ComputeGrowthRate(tScore, nScore, lScore, sScore, waterTempC float64) types.GrowthRateResult {
	fT := clamp(tScore/100, fractionFloor, 1.0)
	fN := clamp(nScore/100, fractionFloor, 1.0)
	fL := clamp(lScore/100, fractionFloor, 1.0)
	fS := clamp(sScore/100, fractionFloor, 1.0)

	correction := TempCorrection(waterTempC)

	mu := clamp(MuMax*fT*fN*fL*fS*correction, 0, MuMax)

	var doubling *float64
	if mu > muEpsilon {
		h := math.Ln2 / mu * 24
		h = math.Round(h*10) / 10
		doubling = &h
	}

	trajectory := make([]float64, 0, 8)
	trajectory = append(trajectory, 1.0)
	biomass := 1.0
	for day := 0; day < 7; day++ {
		biomass *= math.Exp(mu)
		trajectory = append(trajectory, math.Round(biomass*1000)/1000)
	}

	limiting := types.FactorTemperature
	minFrac := fT
	for _, c := range []struct {
		factor types.LimitingFactor
		frac   float64
	}{
		{types.FactorNutrients, fN},
		{types.FactorLight, fL},
		{types.FactorStagnation, fS},
	} {
		if c.frac < minFrac {
			minFrac = c.frac
			limiting = c.factor
		}
	}

	return types.GrowthRateResult{
		MuPerDay:          math.Round(mu*10000) / 10000,
		DoublingTimeHours: doubling,
		LimitingFactor:    limiting,
		FactorValues: types.FactorFractions{
			Temperature: round3(fT),
			Nutrients:   round3(fN),
			Light:       round3(fL),
			Stagnation:  round3(fS),
		},
		BiomassTrajectory: trajectory,
		TempCorrection:    round3(correction),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
