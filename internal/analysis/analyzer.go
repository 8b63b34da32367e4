package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ldevries/kamervote/internal/monitoring"
	"github.com/ldevries/kamervote/internal/types"
)

// VoteSource supplies the raw vote records for one aggregation window
type VoteSource interface {
	VotesBetween(ctx context.Context, from, to time.Time) ([]types.VoteRecord, error)
}

// PeriodResult is everything derived for a single period
type PeriodResult struct {
	Period  types.Period   `json:"period"`
	Votes   int            `json:"votes"`
	Table   AgreementTable `json:"agreement_table"`
	Network *Network       `json:"network"`
	Stats   NetworkStats   `json:"stats"`
	Weights *WeightStats   `json:"weights,omitempty"`
}

// StudyResult is the output of a full study run
type StudyResult struct {
	RunID      string          `json:"run_id"`
	Normalized bool            `json:"normalized"`
	Periods    []*PeriodResult `json:"periods"`
	Comparison Comparison      `json:"comparison"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// PeriodResultByLabel returns the result for a period label, or nil
func (r *StudyResult) PeriodResultByLabel(label string) *PeriodResult {
	for _, period := range r.Periods {
		if period.Period.Label == label {
			return period
		}
	}
	return nil
}

// Analyzer orchestrates the full pipeline: clean, aggregate, build the
// network, normalize when configured, and derive statistics. One analyzer
// serves every period of a study; periods differ only in their window
// parameters.
type Analyzer struct {
	preprocessor *Preprocessor
	aggregator   *Aggregator
	config       *StudyConfig
	ideology     IdeologyTable
	logger       *monitoring.Logger
}

// NewAnalyzer creates an analyzer for a study configuration
func NewAnalyzer(config *StudyConfig, logger *monitoring.Logger) *Analyzer {
	if config == nil {
		config = DefaultStudyConfig()
	}
	if logger == nil {
		logger = monitoring.NewLogger()
	}

	return &Analyzer{
		preprocessor: NewPreprocessor(),
		aggregator:   NewAggregator(config.MinSharedVotes),
		config:       config,
		ideology:     config.IdeologyTable(),
		logger:       logger,
	}
}

// AnalyzePeriod runs the pipeline over one period's raw records. An empty
// record set is valid and produces an edgeless network over zero nodes.
func (a *Analyzer) AnalyzePeriod(records []types.VoteRecord, period types.Period, normalize bool) (*PeriodResult, error) {
	start := time.Now()

	cleaned := a.preprocessor.Clean(records)
	parties := a.preprocessor.ActiveParties(cleaned)
	table := a.aggregator.Aggregate(cleaned)
	network := BuildNetwork(period.Label, table, parties, a.ideology)

	result := &PeriodResult{
		Period:  period,
		Votes:   len(cleaned),
		Table:   table,
		Network: network,
	}

	if normalize && network.EdgeCount() > 0 {
		weights, err := network.Normalize()
		if err != nil {
			return nil, err
		}
		result.Weights = &weights
	}

	result.Stats = ComputeStats(network)

	a.logger.StudyLogger(period.Label, result.Votes, network.NodeCount(), network.EdgeCount(),
		network.Normalized, time.Since(start))

	return result, nil
}

// AnalyzeStudy runs every configured period against the vote source.
// Periods are independent, so they run concurrently; results keep the
// configured period order.
func (a *Analyzer) AnalyzeStudy(ctx context.Context, runID string, source VoteSource, normalize bool) (*StudyResult, error) {
	periods, err := a.config.PeriodList()
	if err != nil {
		return nil, err
	}

	result := &StudyResult{
		RunID:      runID,
		Normalized: normalize,
		Periods:    make([]*PeriodResult, len(periods)),
		StartedAt:  time.Now(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, period := range periods {
		g.Go(func() error {
			records, err := source.VotesBetween(gctx, period.Start, period.End)
			if err != nil {
				return err
			}

			periodResult, err := a.AnalyzePeriod(records, period, normalize)
			if err != nil {
				return err
			}

			result.Periods[i] = periodResult
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]PeriodSummary, 0, len(result.Periods))
	for _, periodResult := range result.Periods {
		summaries = append(summaries, PeriodSummary{
			Period: periodResult.Period,
			Stats:  periodResult.Stats,
		})
	}
	result.Comparison = Compare(summaries)
	result.FinishedAt = time.Now()

	return result, nil
}
