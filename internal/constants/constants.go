// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Pagination constants
const (
	// DefaultPageSize is the default number of items to fetch per API page
	DefaultPageSize = 1000
)

// Face matching constants
const (
	// IoUThreshold is the minimum Intersection over Union required to consider
	// a marker as matching a detected face
	IoUThreshold = 0.1
)

// Processing constants
const (
	// DefaultConcurrency is the number of photos analyzed or scored in parallel
	DefaultConcurrency = 5

	// MaxImageSize is the maximum dimension (width or height) sent to vision providers
	MaxImageSize = 1920

	// CompositeJPEGQuality is the encoder quality of synthesized composites
	CompositeJPEGQuality = 92
)

// Recommendation constants
const (
	// DefaultRecommendationCount is used when the caller does not ask for a count
	DefaultRecommendationCount = 10

	// MaxRecommendationCount caps a single recommendation request
	MaxRecommendationCount = 500
)
