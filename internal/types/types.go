package types

import "time"

// Direction is the recorded stance of a party on a motion. The values are the
// literal tokens used by the Tweede Kamer OData API.
type Direction string

const (
	DirectionFor     Direction = "Voor"
	DirectionAgainst Direction = "Tegen"
	DirectionAbstain Direction = "Onthouding"
)

// VoteRecord represents a single party-level vote on a motion
type VoteRecord struct {
	PartyID   string    `json:"party_id"`
	MotionID  string    `json:"motion_id"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

// SignatureRole distinguishes the first signer of a motion document from
// the members who co-signed it.
type SignatureRole string

const (
	SignatureRoleFirstSigner SignatureRole = "first"
	SignatureRoleCoSigner    SignatureRole = "co"
)

// SignatureRecord is one signer relationship on a motion document
type SignatureRecord struct {
	PartyID  string        `json:"party_id"`
	Actor    string        `json:"actor"`
	MotionID string        `json:"motion_id"`
	Title    string        `json:"title"`
	Role     SignatureRole `json:"role"`
	SignedAt time.Time     `json:"signed_at"`
}

// Period describes one aggregation window of the study
type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period (inclusive bounds).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// AnalyzeRequest represents the request structure for the analyze endpoint
type AnalyzeRequest struct {
	Normalize bool `json:"normalize"`
	Refetch   bool `json:"refetch"`
}
