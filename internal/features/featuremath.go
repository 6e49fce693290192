package features

import "math"

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// round1 rounds to one decimal place, matching the precision the scorers
// report to consumers.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// mean returns the arithmetic mean of the non-NaN values, or NaN for an
// empty or all-NaN slice.
func mean(vals []float64) float64 {
	var sum float64
	var n int
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// popStd returns the population standard deviation of the non-NaN values.
func popStd(vals []float64) float64 {
	m := mean(vals)
	if math.IsNaN(m) {
		return math.NaN()
	}
	var ss float64
	var n int
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		d := v - m
		ss += d * d
		n++
	}
	return math.Sqrt(ss / float64(n))
}
