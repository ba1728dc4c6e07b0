// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum accepted multipart request body (32 MB)
	MaxUploadSize = 32 << 20

	// MaxImageSize is the maximum dimension (width or height) an upload is
	// downscaled to before it is sent to the embedding server
	MaxImageSize = 1024
)

// Comparison constants
const (
	// DefaultCompareThreshold is the similarity threshold used by the direct
	// two-image comparison when the caller does not supply one.
	// The comparison uses >= against this value; the pool scan in the matcher
	// uses a strict > against config.MatchConfig.MinScore instead.
	DefaultCompareThreshold = 0.9
)

// Retention constants
const (
	// DefaultPruneBatchSize is the number of stale candidates deleted per
	// statement by the prune command
	DefaultPruneBatchSize = 1000
)
