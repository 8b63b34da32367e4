package analysis

import (
	"sort"

	"github.com/ldevries/kamervote/internal/types"
)

// DefaultMinSharedVotes is the minimum number of motions two parties must
// both have voted on before their pair is kept.
const DefaultMinSharedVotes = 5

// AgreementPair holds the co-voting record for one unordered party pair.
// PartyA sorts lexicographically before PartyB so that (A,B) and (B,A)
// always land on the same entry.
type AgreementPair struct {
	PartyA        string  `json:"party_a"`
	PartyB        string  `json:"party_b"`
	SharedVotes   int     `json:"shared_votes"`
	Agreements    int     `json:"agreements"`
	AgreementRate float64 `json:"agreement_rate"`
}

// AgreementTable is the filtered pairwise agreement table for one period,
// sorted by (PartyA, PartyB).
type AgreementTable []AgreementPair

// Aggregator turns cleaned vote records into an agreement table
type Aggregator struct {
	minSharedVotes int
}

// NewAggregator creates an aggregator with the given co-occurrence threshold.
// A threshold below 1 falls back to DefaultMinSharedVotes.
func NewAggregator(minSharedVotes int) *Aggregator {
	if minSharedVotes < 1 {
		minSharedVotes = DefaultMinSharedVotes
	}
	return &Aggregator{minSharedVotes: minSharedVotes}
}

// Aggregate produces the agreement table for a set of cleaned records.
// Records are grouped by motion; every motion with at least two distinct
// parties contributes one shared vote per unordered pair, and one agreement
// when both directions match exactly. Pairs below the shared-vote threshold
// are dropped, not zero-filled. An empty input yields an empty table.
func (a *Aggregator) Aggregate(records []types.VoteRecord) AgreementTable {
	byMotion := make(map[string]map[string]types.Direction)
	for _, record := range records {
		if record.PartyID == "" || record.MotionID == "" {
			continue
		}

		motion, ok := byMotion[record.MotionID]
		if !ok {
			motion = make(map[string]types.Direction)
			byMotion[record.MotionID] = motion
		}

		// The preprocessor already deduplicates; a stray duplicate here
		// keeps the first observation
		if _, dup := motion[record.PartyID]; !dup {
			motion[record.PartyID] = record.Direction
		}
	}

	counts := make(map[pairKey]*AgreementPair)
	for _, motion := range byMotion {
		if len(motion) < 2 {
			continue
		}

		parties := make([]string, 0, len(motion))
		for party := range motion {
			parties = append(parties, party)
		}
		sort.Strings(parties)

		for i := 0; i < len(parties); i++ {
			for j := i + 1; j < len(parties); j++ {
				key := pairKey{a: parties[i], b: parties[j]}

				pair, ok := counts[key]
				if !ok {
					pair = &AgreementPair{PartyA: key.a, PartyB: key.b}
					counts[key] = pair
				}

				pair.SharedVotes++
				if motion[parties[i]] == motion[parties[j]] {
					pair.Agreements++
				}
			}
		}
	}

	table := make(AgreementTable, 0, len(counts))
	for _, pair := range counts {
		if pair.SharedVotes < a.minSharedVotes {
			continue
		}

		pair.AgreementRate = float64(pair.Agreements) / float64(pair.SharedVotes)
		table = append(table, *pair)
	}

	sort.Slice(table, func(i, j int) bool {
		if table[i].PartyA != table[j].PartyA {
			return table[i].PartyA < table[j].PartyA
		}
		return table[i].PartyB < table[j].PartyB
	})

	return table
}

// pairKey is the canonical unordered party pair, a < b
type pairKey struct {
	a string
	b string
}

// newPairKey builds the canonical key regardless of input order
func newPairKey(x, y string) pairKey {
	if x <= y {
		return pairKey{a: x, b: y}
	}
	return pairKey{a: y, b: x}
}
