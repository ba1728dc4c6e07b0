package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vibe-matcher",
	Short: "A selfie matching service built on visual embeddings",
	Long: `Vibe Matcher pairs users who upload visually similar selfies within a
short time window. It embeds images with a CLIP model served over HTTP,
stores pending candidates in PostgreSQL and exposes a small JSON API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
