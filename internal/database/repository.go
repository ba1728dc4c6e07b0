package database

import (
	"context"
	"time"
)

// CandidateStore provides access to the pool of selfie candidates.
// Implementations must guarantee per-row update atomicity and
// read-after-write visibility of inserts; the matcher relies on both
// and on nothing stronger (no cross-row transactions).
type CandidateStore interface {
	// Insert stores a new candidate and returns its assigned ID.
	Insert(ctx context.Context, candidate *SelfieCandidate) (string, error)

	// FindEligible returns pending candidates created at or after since,
	// excluding those submitted by excludeUserID, in stable creation order
	// (oldest first). The order is part of the contract: the matcher's
	// tie-break depends on it.
	FindEligible(ctx context.Context, excludeUserID string, since time.Time) ([]SelfieCandidate, error)

	// MarkMatched transitions all pending candidates of userID to matched.
	MarkMatched(ctx context.Context, userID string) error
}
