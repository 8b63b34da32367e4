package database

import (
	"context"
	"time"

	"github.com/ldevries/kamervote/internal/monitoring"
	"github.com/ldevries/kamervote/internal/types"
)

// VoteFetcher fetches vote records from the upstream API
type VoteFetcher interface {
	FetchVotes(ctx context.Context, from, to time.Time) ([]types.VoteRecord, error)
}

// VoteService serves vote records from the local cache, fetching from the
// upstream API the first time a window is requested
type VoteService struct {
	repo    *Repository
	fetcher VoteFetcher
	logger  *monitoring.Logger
}

// NewVoteService creates a vote service
func NewVoteService(repo *Repository, fetcher VoteFetcher, logger *monitoring.Logger) *VoteService {
	if logger == nil {
		logger = monitoring.NewLogger()
	}

	return &VoteService{
		repo:    repo,
		fetcher: fetcher,
		logger:  logger,
	}
}

// VotesBetween returns the votes for a window, from cache when the window
// was fetched before. A fetch failure midway keeps whatever pages arrived:
// the partial rows are cached and served, the window stays unmarked so the
// next request completes it, and the analysis proceeds on partial data as
// long as any rows exist.
func (s *VoteService) VotesBetween(ctx context.Context, from, to time.Time) ([]types.VoteRecord, error) {
	fetched, err := s.repo.WindowFetched(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if fetched {
		return s.repo.VotesBetween(ctx, from, to)
	}

	records, fetchErr := s.fetcher.FetchVotes(ctx, from, to)

	if len(records) > 0 {
		if _, err := s.repo.SaveVotes(ctx, records); err != nil {
			return nil, err
		}
	}

	if fetchErr != nil {
		if len(records) == 0 {
			return nil, fetchErr
		}

		s.logger.Warn("Fetch stopped early, continuing with partial window",
			"window_start", from,
			"window_end", to,
			"rows", len(records),
			"error", fetchErr.Error(),
		)
	} else {
		if err := s.repo.MarkWindowFetched(ctx, from, to, len(records)); err != nil {
			return nil, err
		}
	}

	return s.repo.VotesBetween(ctx, from, to)
}

// Refetch forces a fresh fetch of a window, replacing cached rows so votes
// removed upstream disappear from the cache too. A failed fetch leaves the
// existing cache untouched apart from upserting the rows that did arrive.
func (s *VoteService) Refetch(ctx context.Context, from, to time.Time) (int, error) {
	records, fetchErr := s.fetcher.FetchVotes(ctx, from, to)

	if fetchErr != nil {
		saved := 0
		if len(records) > 0 {
			var err error
			saved, err = s.repo.SaveVotes(ctx, records)
			if err != nil {
				return saved, err
			}
		}
		return saved, fetchErr
	}

	if _, err := s.repo.DeleteVotesBetween(ctx, from, to); err != nil {
		return 0, err
	}

	saved := 0
	if len(records) > 0 {
		var err error
		saved, err = s.repo.SaveVotes(ctx, records)
		if err != nil {
			return saved, err
		}
	}

	if err := s.repo.MarkWindowFetched(ctx, from, to, saved); err != nil {
		return saved, err
	}

	return saved, nil
}
