package types

import "errors"

// Domain errors for type validation
var (
	// Search result errors
	ErrInvalidVideoID        = errors.New("invalid video ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrInvalidCoverage       = errors.New("coverage must be between 0 and 1")
	ErrEmptySnippet          = errors.New("snippet cannot be empty")

	// Query validation errors
	ErrEmptyQuery    = errors.New("query cannot be empty")
	ErrUnknownField  = errors.New("unknown source field")
	ErrUnknownSortBy = errors.New("unknown sort order")
)
