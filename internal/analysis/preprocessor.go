package analysis

import (
	"sort"

	"github.com/ldevries/kamervote/internal/types"
)

// Preprocessor handles data-quality cleaning of raw vote records before
// aggregation
type Preprocessor struct{}

// NewPreprocessor creates a new preprocessor
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Clean applies the cleaning rules in order:
//   - drop records with a missing party or motion identifier
//   - drop abstentions and any other non For/Against direction
//   - collapse repeated votes by the same party on the same motion to a
//     single observation (first occurrence wins)
//
// The result is sorted by timestamp for deterministic downstream grouping.
func (p *Preprocessor) Clean(records []types.VoteRecord) []types.VoteRecord {
	sorted := append([]types.VoteRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	cleaned := make([]types.VoteRecord, 0, len(sorted))
	seen := make(map[voteKey]bool, len(sorted))
	for _, record := range sorted {
		if record.PartyID == "" || record.MotionID == "" {
			continue
		}

		if record.Direction != types.DirectionFor && record.Direction != types.DirectionAgainst {
			continue
		}

		key := voteKey{party: record.PartyID, motion: record.MotionID}
		if seen[key] {
			continue
		}
		seen[key] = true

		cleaned = append(cleaned, record)
	}

	return cleaned
}

// ActiveParties returns the distinct party ids present in the records,
// sorted for stable node ordering.
func (p *Preprocessor) ActiveParties(records []types.VoteRecord) []string {
	set := make(map[string]bool)
	for _, record := range records {
		if record.PartyID != "" {
			set[record.PartyID] = true
		}
	}

	parties := make([]string, 0, len(set))
	for party := range set {
		parties = append(parties, party)
	}
	sort.Strings(parties)

	return parties
}

type voteKey struct {
	party  string
	motion string
}
