package types

import "time"

// SourceType identifies where a video record originated.
type SourceType string

const (
	SourceBilibili SourceType = "bilibili"
	SourceYouTube  SourceType = "youtube"
	SourceWebpage  SourceType = "webpage"
	SourceLocal    SourceType = "local"
)

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceBilibili, SourceYouTube, SourceWebpage, SourceLocal:
		return true
	}
	return false
}

// Video is the metadata owner for one processed video or webpage. Every
// artifact, tag, topic, and index entry hangs off its ID.
type Video struct {
	ID              int64
	VideoKey        string // external identifier (BV id, URL, file path)
	Title           string
	SourceType      SourceType
	SourceURL       string
	DurationSeconds int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ArtifactType identifies which processing stage produced an artifact.
type ArtifactType string

const (
	ArtifactTranscript ArtifactType = "transcript"
	ArtifactOCR        ArtifactType = "ocr"
	ArtifactReport     ArtifactType = "report"
)

// Artifact is one block of derived text for a video: a transcript, the
// aggregated OCR text, or an analysis report. At most one artifact of each
// type exists per video; reprocessing replaces it wholesale.
type Artifact struct {
	ID        int64
	VideoID   int64
	Type      ArtifactType
	Content   string
	ModelName string // model that produced the text, empty for raw captures
	CreatedAt time.Time
}

// Valid reports whether t is one of the known artifact types.
func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactTranscript, ArtifactOCR, ArtifactReport:
		return true
	}
	return false
}
