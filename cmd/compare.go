package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/vibe-matcher/internal/config"
	"github.com/kozaktomas/vibe-matcher/internal/constants"
	"github.com/kozaktomas/vibe-matcher/internal/embedding"
	"github.com/kozaktomas/vibe-matcher/internal/matcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compareCmd = &cobra.Command{
	Use:   "compare <image1> <image2>",
	Short: "Compare two images for visual similarity",
	Long: `Compare two local image files and print their cosine similarity.
Requires a running embedding service; no database is needed.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Float64("threshold", constants.DefaultCompareThreshold, "Similarity threshold for reporting a match")
}

func readImageFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the CLI user
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	prepared, err := embedding.PrepareUpload(data, constants.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", path, err)
	}
	return prepared, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	threshold := mustGetFloat64(cmd, "threshold")

	image1, err := readImageFile(args[0])
	if err != nil {
		return err
	}
	image2, err := readImageFile(args[1])
	if err != nil {
		return err
	}

	client := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Dim)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("embedding service unavailable: %w", err)
	}

	m := matcher.New(client, nil, cfg.Match, zap.NewNop())
	result, err := m.Compare(ctx, image1, image2, threshold)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	fmt.Printf("Similarity: %.4f\n", result.Similarity)
	if result.MatchFound {
		fmt.Printf("Match (threshold %.2f)\n", threshold)
	} else {
		fmt.Printf("No match (threshold %.2f)\n", threshold)
	}
	return nil
}
