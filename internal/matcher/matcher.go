// Package matcher implements the mutual-match decision logic: direct
// two-image comparison and the pool scan that pairs recent selfie uploads.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/vibe-matcher/internal/config"
	"github.com/kozaktomas/vibe-matcher/internal/database"
	"github.com/kozaktomas/vibe-matcher/internal/embedding"
	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned by ProcessSelfie when the service runs in
// standalone mode without a configured candidate store.
var ErrStoreUnavailable = errors.New("candidate store is not configured")

// Embedder turns raw image bytes into a vector.
type Embedder interface {
	Embed(ctx context.Context, imageData []byte) ([]float32, error)
}

// Matcher coordinates the embedder and the candidate store.
type Matcher struct {
	embedder Embedder
	store    database.CandidateStore // nil in standalone mode
	cfg      config.MatchConfig
	logger   *zap.Logger

	now func() time.Time
}

// New creates a Matcher. store may be nil; Compare still works, ProcessSelfie
// reports ErrStoreUnavailable.
func New(embedder Embedder, store database.CandidateStore, cfg config.MatchConfig, logger *zap.Logger) *Matcher {
	return &Matcher{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		logger:   logger.Named("matcher"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ComparisonResult is the outcome of a direct two-image comparison.
type ComparisonResult struct {
	Similarity float64 `json:"similarity"`
	MatchFound bool    `json:"match_found"`
}

// MatchResult is the outcome of processing a selfie against the pool.
type MatchResult struct {
	MatchFound      bool    `json:"match_found"`
	MatchedUserID   string  `json:"matched_user_id,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
	UserID          string  `json:"user_id,omitempty"`
	Message         string  `json:"message,omitempty"`
}

// Compare embeds both images and reports their cosine similarity. Unlike the
// pool scan, a similarity exactly equal to the threshold counts as a match.
func (m *Matcher) Compare(ctx context.Context, image1, image2 []byte, threshold float64) (*ComparisonResult, error) {
	vec1, err := m.embedder.Embed(ctx, image1)
	if err != nil {
		return nil, fmt.Errorf("embed first image: %w", err)
	}
	vec2, err := m.embedder.Embed(ctx, image2)
	if err != nil {
		return nil, fmt.Errorf("embed second image: %w", err)
	}

	similarity, err := embedding.CosineSimilarity(embedding.Normalize(vec1), embedding.Normalize(vec2))
	if err != nil {
		return nil, fmt.Errorf("compare embeddings: %w", err)
	}

	return &ComparisonResult{
		Similarity: similarity,
		MatchFound: similarity >= threshold,
	}, nil
}

// ProcessSelfie stores the uploaded selfie as a pending candidate, scans
// other pending candidates from the recent window for the best partner, and
// on success marks both users matched.
//
// The insert always happens first, so the selfie stays in the pool even when
// no partner is found. Any failure after the insert fails the whole request;
// the stored candidate remains pending and a later upload can still pair
// with it.
func (m *Matcher) ProcessSelfie(ctx context.Context, image []byte, userID string, latitude, longitude *float64) (*MatchResult, error) {
	if m.store == nil {
		return nil, ErrStoreUnavailable
	}

	vec, err := m.embedder.Embed(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("embed selfie: %w", err)
	}
	vec = embedding.Normalize(vec)

	now := m.now()
	candidateID, err := m.store.Insert(ctx, &database.SelfieCandidate{
		UserID:    userID,
		Embedding: vec,
		Status:    database.StatusPending,
		Latitude:  latitude,
		Longitude: longitude,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("store selfie candidate: %w", err)
	}

	pool, err := m.store.FindEligible(ctx, userID, now.Add(-m.cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("query candidate pool: %w", err)
	}

	m.logger.Info("scanning candidate pool",
		zap.String("user_id", userID),
		zap.String("candidate_id", candidateID),
		zap.Int("pool_size", len(pool)),
	)

	// Starting at the threshold with a strict comparison means only scores
	// above MinScore qualify, and among equal best scores the earliest
	// candidate in the stable pool order wins.
	bestScore := m.cfg.MinScore
	var best *database.SelfieCandidate
	for i := range pool {
		similarity, err := embedding.CosineSimilarity(vec, pool[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("score candidate %s: %w", pool[i].ID, err)
		}
		m.logger.Debug("scored candidate",
			zap.String("candidate_user_id", pool[i].UserID),
			zap.Float64("similarity", similarity),
		)
		if similarity > bestScore {
			bestScore = similarity
			best = &pool[i]
		}
	}

	if best == nil {
		m.logger.Info("no match found", zap.String("user_id", userID))
		return &MatchResult{
			MatchFound: false,
			UserID:     userID,
			Message:    "Selfie processed and stored. No matches found.",
		}, nil
	}

	// Two independent writes. A crash between them leaves a one-sided match;
	// an error on either fails the request instead of hiding the half-done
	// state from the caller.
	if err := m.store.MarkMatched(ctx, userID); err != nil {
		return nil, fmt.Errorf("mark submitter matched: %w", err)
	}
	if err := m.store.MarkMatched(ctx, best.UserID); err != nil {
		return nil, fmt.Errorf("mark partner matched: %w", err)
	}

	m.logger.Info("match found",
		zap.String("user_id", userID),
		zap.String("matched_user_id", best.UserID),
		zap.Float64("similarity", bestScore),
	)

	return &MatchResult{
		MatchFound:      true,
		MatchedUserID:   best.UserID,
		SimilarityScore: bestScore,
	}, nil
}
