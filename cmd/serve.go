package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kozaktomas/vibe-matcher/internal/cache"
	"github.com/kozaktomas/vibe-matcher/internal/config"
	"github.com/kozaktomas/vibe-matcher/internal/database"
	"github.com/kozaktomas/vibe-matcher/internal/database/postgres"
	"github.com/kozaktomas/vibe-matcher/internal/embedding"
	"github.com/kozaktomas/vibe-matcher/internal/logging"
	"github.com/kozaktomas/vibe-matcher/internal/matcher"
	"github.com/kozaktomas/vibe-matcher/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the matching service",
	Long: `Start the Vibe Matcher web server.
The server exposes POST /process-selfie for pool matching, POST /compare for
direct two-image comparison and GET /health. Without DATABASE_URL the server
runs in standalone mode where only /compare and /health are functional.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// buildEmbedder creates the embedding client, verifies the embedding service
// is reachable and optionally wraps the client with a Redis cache.
func buildEmbedder(cfg *config.Config, logger *zap.Logger) (matcher.Embedder, error) {
	client := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Dim)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("embedding service unavailable: %w", err)
	}
	logger.Info("embedding service ready",
		zap.String("model", client.Model()),
		zap.Int("dim", cfg.Embedding.Dim),
	)

	if cfg.Redis.URL == "" {
		return client, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, embedding cache disabled", zap.Error(err))
		return client, nil
	}
	logger.Info("embedding cache enabled")
	return cache.NewCachedEmbedder(client, cache.NewRedisStore(redisClient), logger), nil
}

// buildStore connects to PostgreSQL when configured. A nil store means
// standalone mode.
func buildStore(cfg *config.Config, logger *zap.Logger) (database.CandidateStore, error) {
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, running in standalone mode, selfie matching is disabled")
		return nil, nil
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL")
	return postgres.NewCandidateRepository(postgres.GetGlobalPool()), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.Load()

	// The embedder is essential; refuse to start without it.
	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return err
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}

	m := matcher.New(embedder, store, cfg.Match, logger)
	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(m, port, host, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
		if pool := postgres.GetGlobalPool(); pool != nil {
			pool.Close() //nolint:errcheck
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
