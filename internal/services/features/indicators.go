package features

import "math"

const (
	minShortWindow = 3
	minLongWindow  = 8

	// SlopeLookback is the number of trailing samples the trend slope is fitted on.
	SlopeLookback = 60
)

// ShortWindow returns the fast SMA window for a series of length n:
// max(3, round(0.03*n)).
func ShortWindow(n int) int {
	w := int(math.Round(0.03 * float64(n)))
	if w < minShortWindow {
		return minShortWindow
	}
	return w
}

// LongWindow returns the slow SMA window for a series of length n:
// max(8, round(0.10*n)).
func LongWindow(n int) int {
	w := int(math.Round(0.10 * float64(n)))
	if w < minLongWindow {
		return minLongWindow
	}
	return w
}

// SMA computes the trailing simple moving average of series over window.
// The i-th output is the mean of series[i : i+window], i.e. it ends at
// index window-1+i. Returns nil when the series is shorter than window.
func SMA(series []int, window int) []float64 {
	if window <= 0 || len(series) < window {
		return nil
	}
	out := make([]float64, 0, len(series)-window+1)
	sum := 0.0
	for i, v := range series {
		sum += float64(v)
		if i >= window {
			sum -= float64(series[i-window])
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// LinearSlope fits y = a + b*x by ordinary least squares over the last
// min(len(series), lookback) samples, x being the sample index, and returns b.
// Returns 0 for fewer than two samples.
func LinearSlope(series []int, lookback int) float64 {
	n := len(series)
	if lookback > 0 && n > lookback {
		series = series[n-lookback:]
		n = lookback
	}
	if n < 2 {
		return 0
	}

	var sumX, sumY float64
	for i, v := range series {
		sumX += float64(i)
		sumY += float64(v)
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX float64
	for i, v := range series {
		dx := float64(i) - meanX
		cov += dx * (float64(v) - meanY)
		varX += dx * dx
	}
	if varX == 0 {
		return 0
	}
	return cov / varX
}

// Last returns the final element of xs and whether there was one.
func Last(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return xs[len(xs)-1], true
}
