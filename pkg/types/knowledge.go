package types

import "time"

// TagSource records whether a tag was attached by extraction or by hand.
type TagSource string

const (
	TagAuto   TagSource = "auto"
	TagManual TagSource = "manual"
)

// Tag is a global label shared across videos. Names are unique
// case-insensitively; UsageCount tracks how many videos currently link it.
type Tag struct {
	ID         int64
	Name       string
	Category   string
	UsageCount int
}

// VideoTag links a video to a tag with provenance.
type VideoTag struct {
	VideoID    int64
	TagID      int64
	Source     TagSource
	Confidence float64
	CreatedAt  time.Time
}

// Topic is one chapter-like segment extracted from an analysis report.
// Sequence is contiguous from 0 within a video. StartTime/EndTime are in
// seconds and nil when the report carried no time range for the heading.
type Topic struct {
	ID        int64
	VideoID   int64
	Title     string
	Summary   string
	StartTime *int
	EndTime   *int
	Keywords  []string
	Sequence  int
	CreatedAt time.Time
}

// Extraction is the structured knowledge pulled out of one analysis report.
// All fields may be zero when the report matched nothing; Warnings records
// which extraction steps fell through to a fallback or gave up.
type Extraction struct {
	Summary  string
	Tags     []string
	Topics   []Topic
	Warnings []string
}

// IndexEntry is one searchable row: the projection of a single artifact (or
// of all topics combined) for one video. Exactly one entry exists per
// (video, source field) pair with non-empty content.
type IndexEntry struct {
	ID          int64
	VideoID     int64
	SourceField SourceField
	Title       string
	Content     string
	Tags        string // space-joined tag names, denormalized for FTS
	CreatedAt   time.Time
}
