//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/vibe-matcher/internal/config"
	"github.com/kozaktomas/vibe-matcher/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = seed / float32(dim)
	}
	return v
}

func TestCandidateRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewCandidateRepository(pool)
	now := time.Now().UTC()

	t.Run("InsertAndFindEligible", func(t *testing.T) {
		lat := 50.087
		lon := 14.421
		id, err := repo.Insert(ctx, &database.SelfieCandidate{
			UserID:    "alice",
			Embedding: testEmbedding(512, 1),
			Status:    database.StatusPending,
			Latitude:  &lat,
			Longitude: &lon,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("Failed to insert candidate: %v", err)
		}
		if id == "" {
			t.Fatal("Expected a generated ID")
		}

		got, err := repo.FindEligible(ctx, "bob", now.Add(-5*time.Minute))
		if err != nil {
			t.Fatalf("Failed to query candidates: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 candidate, got %d", len(got))
		}
		if got[0].UserID != "alice" {
			t.Errorf("Expected user 'alice', got '%s'", got[0].UserID)
		}
		if len(got[0].Embedding) != 512 {
			t.Errorf("Expected 512-dim embedding, got %d", len(got[0].Embedding))
		}
		if got[0].Latitude == nil || *got[0].Latitude != lat {
			t.Errorf("Expected latitude %f, got %v", lat, got[0].Latitude)
		}
	})

	t.Run("SelfExclusion", func(t *testing.T) {
		got, err := repo.FindEligible(ctx, "alice", now.Add(-5*time.Minute))
		if err != nil {
			t.Fatalf("Failed to query candidates: %v", err)
		}
		for _, c := range got {
			if c.UserID == "alice" {
				t.Error("Submitter's own candidate must be excluded")
			}
		}
	})

	t.Run("WindowBoundary", func(t *testing.T) {
		// Exactly at the window edge: included.
		edge := now.Add(-5 * time.Minute)
		if _, err := repo.Insert(ctx, &database.SelfieCandidate{
			UserID:    "edge-user",
			Embedding: testEmbedding(512, 2),
			Status:    database.StatusPending,
			CreatedAt: edge,
		}); err != nil {
			t.Fatalf("Failed to insert candidate: %v", err)
		}
		// One second earlier: excluded.
		if _, err := repo.Insert(ctx, &database.SelfieCandidate{
			UserID:    "stale-user",
			Embedding: testEmbedding(512, 3),
			Status:    database.StatusPending,
			CreatedAt: edge.Add(-time.Second),
		}); err != nil {
			t.Fatalf("Failed to insert candidate: %v", err)
		}

		got, err := repo.FindEligible(ctx, "nobody", edge)
		if err != nil {
			t.Fatalf("Failed to query candidates: %v", err)
		}
		var sawEdge, sawStale bool
		for _, c := range got {
			switch c.UserID {
			case "edge-user":
				sawEdge = true
			case "stale-user":
				sawStale = true
			}
		}
		if !sawEdge {
			t.Error("Candidate created exactly at the window edge should be eligible")
		}
		if sawStale {
			t.Error("Candidate created before the window should be excluded")
		}
	})

	t.Run("StableOrder", func(t *testing.T) {
		got, err := repo.FindEligible(ctx, "nobody", now.Add(-10*time.Minute))
		if err != nil {
			t.Fatalf("Failed to query candidates: %v", err)
		}
		for i := 1; i < len(got); i++ {
			if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
				t.Fatal("Candidates must be returned oldest first")
			}
		}
	})

	t.Run("MarkMatchedExclusivity", func(t *testing.T) {
		if err := repo.MarkMatched(ctx, "alice"); err != nil {
			t.Fatalf("Failed to mark matched: %v", err)
		}

		got, err := repo.FindEligible(ctx, "bob", now.Add(-10*time.Minute))
		if err != nil {
			t.Fatalf("Failed to query candidates: %v", err)
		}
		for _, c := range got {
			if c.UserID == "alice" {
				t.Error("Matched candidate must never be eligible again")
			}
		}
	})

	t.Run("PruneStale", func(t *testing.T) {
		count, err := repo.CountOlderThan(ctx, now.Add(-5*time.Minute))
		if err != nil {
			t.Fatalf("Failed to count stale candidates: %v", err)
		}
		if count != 1 {
			t.Fatalf("Expected 1 stale candidate, got %d", count)
		}

		deleted, err := repo.DeleteOlderThan(ctx, now.Add(-5*time.Minute), 100)
		if err != nil {
			t.Fatalf("Failed to delete stale candidates: %v", err)
		}
		if deleted != 1 {
			t.Errorf("Expected 1 deleted candidate, got %d", deleted)
		}
	})
}
