// Package mock provides an in-memory CandidateStore for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/vibe-matcher/internal/database"
)

// CandidateStore is an in-memory implementation of database.CandidateStore.
// Candidates are kept in insertion order, which doubles as the stable query
// order the matcher's tie-break depends on.
type CandidateStore struct {
	mu         sync.Mutex
	candidates []*database.SelfieCandidate

	// Error injection
	InsertError      error
	FindError        error
	MarkMatchedError error

	// BeforeFindEligible, when set, runs at the start of every FindEligible
	// call, outside the store lock. Tests use it to interleave a competing
	// submission between a caller's insert and its pool query.
	BeforeFindEligible func()
}

// NewCandidateStore creates an empty in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{}
}

// Insert stores a new candidate and returns its assigned ID.
func (s *CandidateStore) Insert(ctx context.Context, candidate *database.SelfieCandidate) (string, error) {
	if s.InsertError != nil {
		return "", s.InsertError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *candidate
	stored.ID = uuid.NewString()
	stored.Embedding = append([]float32(nil), candidate.Embedding...)
	s.candidates = append(s.candidates, &stored)
	return stored.ID, nil
}

// FindEligible returns pending candidates created at or after since,
// excluding excludeUserID, in insertion order.
func (s *CandidateStore) FindEligible(ctx context.Context, excludeUserID string, since time.Time) ([]database.SelfieCandidate, error) {
	if s.FindError != nil {
		return nil, s.FindError
	}
	if s.BeforeFindEligible != nil {
		s.BeforeFindEligible()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []database.SelfieCandidate
	for _, c := range s.candidates {
		if c.Status != database.StatusPending {
			continue
		}
		if c.UserID == excludeUserID {
			continue
		}
		if c.CreatedAt.Before(since) {
			continue
		}
		results = append(results, *c)
	}
	return results, nil
}

// MarkMatched transitions all pending candidates of userID to matched.
func (s *CandidateStore) MarkMatched(ctx context.Context, userID string) error {
	if s.MarkMatchedError != nil {
		return s.MarkMatchedError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.candidates {
		if c.UserID == userID && c.Status == database.StatusPending {
			c.Status = database.StatusMatched
		}
	}
	return nil
}

// Get returns a stored candidate by ID, or nil if not found.
func (s *CandidateStore) Get(id string) *database.SelfieCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.candidates {
		if c.ID == id {
			copied := *c
			return &copied
		}
	}
	return nil
}

// StatusOf returns the status of the newest candidate submitted by userID,
// or the empty string if the user has no candidates.
func (s *CandidateStore) StatusOf(userID string) database.CandidateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.candidates) - 1; i >= 0; i-- {
		if s.candidates[i].UserID == userID {
			return s.candidates[i].Status
		}
	}
	return ""
}

// Count returns the number of stored candidates.
func (s *CandidateStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidates)
}

var _ database.CandidateStore = (*CandidateStore)(nil)
