package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/vibe-matcher/internal/database"
	"github.com/pgvector/pgvector-go"
)

// CandidateRepository provides PostgreSQL-backed candidate storage.
type CandidateRepository struct {
	pool *Pool
}

// NewCandidateRepository creates a new PostgreSQL candidate repository.
func NewCandidateRepository(pool *Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// Insert stores a new candidate and returns its assigned ID.
func (r *CandidateRepository) Insert(ctx context.Context, candidate *database.SelfieCandidate) (string, error) {
	query := `
		INSERT INTO selfie_candidates (user_id, embedding, status, latitude, longitude, created_at)
		VALUES ($1, $2::vector, $3, $4, $5, $6)
		RETURNING id
	`

	createdAt := candidate.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id string
	vec := pgvector.NewVector(candidate.Embedding)
	err := r.pool.QueryRow(ctx, query,
		candidate.UserID,
		vec,
		string(candidate.Status),
		nullFloat(candidate.Latitude),
		nullFloat(candidate.Longitude),
		createdAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert candidate: %w", err)
	}
	return id, nil
}

// FindEligible returns pending candidates created at or after since,
// excluding the given submitter, oldest first. The ORDER BY makes the
// scan order stable so the matcher's first-seen tie-break is deterministic.
func (r *CandidateRepository) FindEligible(ctx context.Context, excludeUserID string, since time.Time) ([]database.SelfieCandidate, error) {
	query := `
		SELECT id, user_id, embedding, status, latitude, longitude, created_at
		FROM selfie_candidates
		WHERE status = $1
		  AND created_at >= $2
		  AND user_id != $3
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, string(database.StatusPending), since, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("query eligible candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// MarkMatched transitions all pending candidates of userID to matched.
// Per-row update atomicity comes from Postgres; there is no cross-row
// transaction with the partner's update.
func (r *CandidateRepository) MarkMatched(ctx context.Context, userID string) error {
	query := `
		UPDATE selfie_candidates
		SET status = $1
		WHERE user_id = $2 AND status = $3
	`

	_, err := r.pool.Exec(ctx, query, string(database.StatusMatched), userID, string(database.StatusPending))
	if err != nil {
		return fmt.Errorf("mark candidate matched: %w", err)
	}
	return nil
}

// DeleteOlderThan removes candidates created before cutoff, at most limit
// rows per call. Used by the prune command; the service itself never
// deletes (expiry is purely query-time filtering).
func (r *CandidateRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `
		DELETE FROM selfie_candidates
		WHERE id IN (
			SELECT id FROM selfie_candidates
			WHERE created_at < $1
			ORDER BY created_at
			LIMIT $2
		)
	`

	result, err := r.pool.Exec(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("delete stale candidates: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted candidates: %w", err)
	}
	return deleted, nil
}

// CountOlderThan returns the number of candidates created before cutoff.
func (r *CandidateRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM selfie_candidates WHERE created_at < $1", cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stale candidates: %w", err)
	}
	return count, nil
}

func scanCandidates(rows *sql.Rows) ([]database.SelfieCandidate, error) {
	var candidates []database.SelfieCandidate

	for rows.Next() {
		var c database.SelfieCandidate
		var vec pgvector.Vector
		var status string
		var lat, lon sql.NullFloat64

		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&vec,
			&status,
			&lat,
			&lon,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		c.Embedding = vec.Slice()
		c.Status = database.CandidateStatus(status)
		if lat.Valid {
			v := lat.Float64
			c.Latitude = &v
		}
		if lon.Valid {
			v := lon.Float64
			c.Longitude = &v
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return candidates, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// Verify interface compliance
var _ database.CandidateStore = (*CandidateRepository)(nil)
