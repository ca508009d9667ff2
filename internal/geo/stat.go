package geo

import "gonum.org/v1/gonum/stat"

// meanOf wraps gonum's stat.Mean with uniform weights, used by
// MeanLatLon to average multiple reference points into one origin.
func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
