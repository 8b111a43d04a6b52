package types

import "time"

// SearchResult represents a single search hit with relevance information.
// One result is produced per matching video; SourceField and Snippet come
// from the best-scoring entry for that video.
type SearchResult struct {
	// Identification
	VideoID  int64
	VideoKey string
	Title    string
	Rank     int // Position in result set (1-based)

	// Scoring
	RelevanceScore  float64 // Coverage-weighted average across matched keywords
	Coverage        float64 // matched keywords / total keywords
	MatchedKeywords []string

	// Presentation
	SourceField      SourceField
	Snippet          string // Excerpt with surrounding context
	TimestampSeconds *int   // Timeline position for transcript/ocr hits, nil otherwise
	Tags             []string

	// Video metadata for sorting and display
	DurationSeconds int
	CreatedAt       time.Time
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.VideoID == 0 {
		return ErrInvalidVideoID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Coverage < 0 || sr.Coverage > 1 {
		return ErrInvalidCoverage
	}

	if sr.Snippet == "" {
		return ErrEmptySnippet
	}

	return nil
}
