// Package buildstats summarizes the step-count distribution of a build
// run for the end-of-run report.
package buildstats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of episode step counts.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
	P90    float64
}

// Summarize computes distribution statistics over episode step counts.
// An empty input yields a zero Summary.
func Summarize(stepCounts []float64) Summary {
	if len(stepCounts) == 0 {
		return Summary{}
	}

	sorted := append([]float64(nil), stepCounts...)
	sort.Float64s(sorted)

	s := Summary{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

func (s Summary) String() string {
	if s.Count == 0 {
		return "no episodes"
	}
	return fmt.Sprintf("%d episodes, steps mean=%.1f stddev=%.1f min=%d max=%d median=%d p90=%d",
		s.Count, s.Mean, s.StdDev,
		int(math.Round(s.Min)), int(math.Round(s.Max)),
		int(math.Round(s.Median)), int(math.Round(s.P90)))
}
