package analysis

import (
	"github.com/ldevries/kamervote/internal/types"
)

// PeriodSummary pairs a period with its network statistics
type PeriodSummary struct {
	Period types.Period `json:"period"`
	Stats  NetworkStats `json:"stats"`
}

// ComparisonRow is one metric across all periods. Values, AbsChanges and
// PctChanges use nil for undefined entries: a missing mean path length, or
// a percent change against a zero baseline.
type ComparisonRow struct {
	Metric     string     `json:"metric"`
	Values     []*float64 `json:"values"`
	AbsChanges []*float64 `json:"abs_changes"`
	PctChanges []*float64 `json:"pct_changes"`
}

// Comparison is the cross-period statistics table. Change columns compare
// consecutive periods, so their length is one less than Labels.
type Comparison struct {
	Labels []string        `json:"labels"`
	Rows   []ComparisonRow `json:"rows"`
}

// comparisonMetrics fixes the row order of the comparison table
var comparisonMetrics = []struct {
	name  string
	value func(NetworkStats) *float64
}{
	{"node_count", func(s NetworkStats) *float64 { return floatPtr(float64(s.NodeCount)) }},
	{"edge_count", func(s NetworkStats) *float64 { return floatPtr(float64(s.EdgeCount)) }},
	{"density", func(s NetworkStats) *float64 { return floatPtr(s.Density) }},
	{"mean_degree", func(s NetworkStats) *float64 { return floatPtr(s.MeanDegree) }},
	{"transitivity", func(s NetworkStats) *float64 { return floatPtr(s.Transitivity) }},
	{"components", func(s NetworkStats) *float64 { return floatPtr(float64(s.Components)) }},
	{"mean_path_length", func(s NetworkStats) *float64 { return s.MeanPathLength }},
	{"communities", func(s NetworkStats) *float64 { return floatPtr(float64(s.Communities)) }},
	{"modularity", func(s NetworkStats) *float64 { return floatPtr(s.Modularity) }},
}

// Compare builds the comparison table for two or more period summaries in
// the order given. With a single summary the change columns are empty.
func Compare(summaries []PeriodSummary) Comparison {
	comparison := Comparison{
		Labels: make([]string, 0, len(summaries)),
	}
	for _, summary := range summaries {
		comparison.Labels = append(comparison.Labels, summary.Period.Label)
	}

	for _, metric := range comparisonMetrics {
		row := ComparisonRow{Metric: metric.name}

		for _, summary := range summaries {
			row.Values = append(row.Values, metric.value(summary.Stats))
		}

		for i := 1; i < len(row.Values); i++ {
			prev, curr := row.Values[i-1], row.Values[i]

			if prev == nil || curr == nil {
				row.AbsChanges = append(row.AbsChanges, nil)
				row.PctChanges = append(row.PctChanges, nil)
				continue
			}

			row.AbsChanges = append(row.AbsChanges, floatPtr(*curr-*prev))

			// Percent change against a zero baseline is undefined, not Inf
			if *prev == 0 {
				row.PctChanges = append(row.PctChanges, nil)
			} else {
				row.PctChanges = append(row.PctChanges, floatPtr((*curr-*prev)/(*prev)*100))
			}
		}

		comparison.Rows = append(comparison.Rows, row)
	}

	return comparison
}

func floatPtr(v float64) *float64 { return &v }
