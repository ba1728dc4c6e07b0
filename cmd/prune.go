package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/vibe-matcher/internal/config"
	"github.com/kozaktomas/vibe-matcher/internal/constants"
	"github.com/kozaktomas/vibe-matcher/internal/database/postgres"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete candidates older than the retention period",
	Long: `Delete selfie candidates created before the retention cutoff.
The matching window already excludes stale candidates at query time, so
pruning only reclaims storage. Deletion runs in batches to keep row locks
short on a live database.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().String("older-than", "24h", "Delete candidates older than this duration")
	pruneCmd.Flags().Int("batch", constants.DefaultPruneBatchSize, "Maximum rows deleted per batch")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	retention, err := time.ParseDuration(mustGetString(cmd, "older-than"))
	if err != nil {
		return fmt.Errorf("invalid --older-than value: %w", err)
	}
	batchSize := mustGetInt(cmd, "batch")
	if batchSize <= 0 {
		return errors.New("--batch must be positive")
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close() //nolint:errcheck

	repo := postgres.NewCandidateRepository(pool)
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-retention)

	total, err := repo.CountOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to count stale candidates: %w", err)
	}
	if total == 0 {
		fmt.Println("Nothing to prune")
		return nil
	}

	bar := progressbar.NewOptions(int(total),
		progressbar.OptionSetDescription("Pruning candidates"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var deleted int64
	for {
		n, err := repo.DeleteOlderThan(ctx, cutoff, batchSize)
		if err != nil {
			return fmt.Errorf("failed to delete stale candidates: %w", err)
		}
		if n == 0 {
			break
		}
		deleted += n
		bar.Add(int(n)) //nolint:errcheck
	}

	fmt.Printf("\nPruned %d candidates older than %s\n", deleted, retention)
	return nil
}
