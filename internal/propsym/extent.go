package propsym

import "math"

// Extent is the value range used to size the legend circles.
// Mean is the midpoint of Min and Max, not the average of the values.
type Extent struct {
	Min  float64
	Max  float64
	Mean float64
}

// ComputeExtent scans values for their extremes. NaN entries never compare
// and are skipped. ok is false when no value was usable.
func ComputeExtent(values []float64) (ext Extent, ok bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo > hi {
		return Extent{}, false
	}
	return Extent{Min: lo, Max: hi, Mean: (hi + lo) / 2}, true
}
