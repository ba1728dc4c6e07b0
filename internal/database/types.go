package database

import (
	"time"
)

// CandidateStatus is the lifecycle state of a selfie submission.
// A candidate starts pending and transitions to matched exactly once,
// for both parties of a found match; it never reverts. Expiry is lazy:
// nothing ever writes an "expired" state, eligibility queries simply
// stop returning old rows.
type CandidateStatus string

const (
	StatusPending CandidateStatus = "pending"
	StatusMatched CandidateStatus = "matched"
)

// SelfieCandidate represents a selfie submission awaiting a match.
type SelfieCandidate struct {
	ID        string
	UserID    string
	Embedding []float32 // unit-normalized, fixed dim per configured model
	Status    CandidateStatus
	Latitude  *float64 // stored for future filtering, not read by matching
	Longitude *float64
	CreatedAt time.Time
}
