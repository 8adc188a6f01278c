package stats

import (
	"math"
	"sort"
)

// Summary holds order statistics over a set of RTT values in milliseconds.
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

// Summarize computes Summary over vals. The second return is false when vals
// is empty.
func Summarize(vals []float64) (Summary, bool) {
	if len(vals) == 0 {
		return Summary{}, false
	}

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   sum / float64(len(sorted)),
		Median: medianSorted(sorted),
	}, true
}

// Median returns the median of vals, averaging the two middle values for
// even-length input. It returns 0 for empty input.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return medianSorted(sorted)
}

func medianSorted(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MeanAbsDeviation returns mean(|v - center|) over vals.
func MeanAbsDeviation(vals []float64, center float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += math.Abs(v - center)
	}
	return sum / float64(len(vals))
}

// Round rounds v to the given number of decimal places, with exact halves
// going to the even neighbour.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

// LossPercent returns the percentage of sent probes that were not received,
// rounded to one decimal place.
func LossPercent(sent, received int) float64 {
	if sent <= 0 {
		return 0
	}
	lost := max(sent-received, 0)
	return Round(float64(lost)/float64(sent)*100, 1)
}
