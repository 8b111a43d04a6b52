package storage

import (
	"context"
	"time"

	"github.com/Catherina0/MemoryIndex/pkg/types"
)

// Storage defines the interface for persisting and querying the knowledge index
type Storage interface {
	// Video operations
	CreateVideo(ctx context.Context, video *types.Video) error
	GetVideo(ctx context.Context, videoID int64) (*types.Video, error)
	GetVideoByKey(ctx context.Context, videoKey string) (*types.Video, error)
	UpdateVideo(ctx context.Context, video *types.Video) error
	DeleteVideo(ctx context.Context, videoID int64) error
	ListVideos(ctx context.Context, limit, offset int) ([]*types.Video, error)

	// Artifact operations
	UpsertArtifact(ctx context.Context, artifact *types.Artifact) error
	GetArtifact(ctx context.Context, videoID int64, artifactType types.ArtifactType) (*types.Artifact, error)
	ListArtifactsByVideo(ctx context.Context, videoID int64) ([]*types.Artifact, error)
	DeleteArtifactsByVideo(ctx context.Context, videoID int64) error

	// Tag operations
	GetOrCreateTag(ctx context.Context, name, category string) (*types.Tag, error)
	GetTagByName(ctx context.Context, name string) (*types.Tag, error)
	LinkTag(ctx context.Context, link *types.VideoTag) error
	UnlinkTagsByVideo(ctx context.Context, videoID int64, source types.TagSource) error
	ListTagsByVideo(ctx context.Context, videoID int64) ([]*types.Tag, error)
	ListPopularTags(ctx context.Context, limit int) ([]*types.Tag, error)
	SuggestTags(ctx context.Context, prefix string, limit int) ([]*types.Tag, error)

	// Topic operations
	ReplaceTopics(ctx context.Context, videoID int64, topics []types.Topic) error
	ListTopicsByVideo(ctx context.Context, videoID int64) ([]*types.Topic, error)

	// Timeline operations
	InsertTimelineEntries(ctx context.Context, videoID int64, entries []TimelineEntry) error
	FindTimestamp(ctx context.Context, videoID int64, field types.SourceField, text string) (*int, error)
	DeleteTimelineByVideo(ctx context.Context, videoID int64) error

	// Index entry operations
	ReplaceIndexEntries(ctx context.Context, videoID int64, entries []types.IndexEntry) error
	ListIndexEntriesByVideo(ctx context.Context, videoID int64) ([]*types.IndexEntry, error)
	CountIndexEntries(ctx context.Context) (int, error)

	// Search operations
	SearchTokens(ctx context.Context, keyword string, prefix bool, filters *SearchFilters) ([]KeywordHit, error)
	SearchSubstring(ctx context.Context, keyword string, filters *SearchFilters) ([]KeywordHit, error)

	// Status operations
	GetStatus(ctx context.Context) (*IndexStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// TimelineEntry is one per-timestamp snapshot of transcript and OCR text
type TimelineEntry struct {
	ID               int64
	VideoID          int64
	TimestampSeconds int
	FrameNumber      int
	TranscriptText   string
	OCRText          string
}

// SearchFilters contains filters for narrowing per-keyword search
type SearchFilters struct {
	Field types.SourceField // FieldAll means no field restriction
	Tags  []string          // Videos must carry every listed tag
	Limit int               // Per-keyword candidate cap
}

// KeywordHit is one index entry matched by a single keyword, with the video
// metadata the aggregator needs attached
type KeywordHit struct {
	EntryID         int64
	VideoID         int64
	VideoKey        string
	VideoTitle      string
	SourceField     types.SourceField
	EntryTitle      string
	Content         string
	Score           float64 // Normalized to [0, 1]
	DurationSeconds int
	CreatedAt       time.Time
}

// IndexStatus contains statistics about the knowledge index
type IndexStatus struct {
	SchemaVersion  string
	VideosCount    int
	ArtifactsCount int
	TagsCount      int
	TopicsCount    int
	EntriesCount   int
	IndexSizeMB    float64
	Health         HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexBuilt      bool
	EntriesConsistent  bool
}
