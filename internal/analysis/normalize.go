package analysis

import (
	"math"

	"github.com/ldevries/kamervote/internal/errors"
)

// WeightStats holds the distribution parameters used for a normalization
type WeightStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// weightStats computes mean and sample standard deviation (n-1) over the
// current edge weights
func (n *Network) weightStats() WeightStats {
	count := len(n.Edges)
	if count == 0 {
		return WeightStats{}
	}

	sum := 0.0
	for _, edge := range n.Edges {
		sum += edge.Weight
	}
	mean := sum / float64(count)

	if count < 2 {
		return WeightStats{Mean: mean, Count: count}
	}

	sumSq := 0.0
	for _, edge := range n.Edges {
		d := edge.Weight - mean
		sumSq += d * d
	}

	return WeightStats{
		Mean:   mean,
		StdDev: math.Sqrt(sumSq / float64(count-1)),
		Count:  count,
	}
}

// Normalize rescales the network's edge weights to z-scores in place,
// making weights comparable across periods in relative terms only. The raw
// agreement count survives on each edge as RawWeight.
//
// A zero-edge network is a no-op: mean and deviation are undefined for an
// empty sample, and there is nothing to rescale. A zero-variance weight set
// (including a single edge) is an explicit degenerate-statistic error, never
// a silent NaN.
func (n *Network) Normalize() (WeightStats, error) {
	stats := n.weightStats()

	if stats.Count == 0 {
		return stats, nil
	}

	if stats.StdDev == 0 {
		return stats, errors.NewDegenerateStatisticError(
			"z_score",
			"edge weights have zero variance; z-scores are undefined",
		)
	}

	for _, edge := range n.Edges {
		edge.Weight = (edge.Weight - stats.Mean) / stats.StdDev
	}

	n.Normalized = true
	n.refreshStrength()

	return stats, nil
}
