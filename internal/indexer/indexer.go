package indexer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Catherina0/MemoryIndex/internal/extractor"
	"github.com/Catherina0/MemoryIndex/internal/storage"
	"github.com/Catherina0/MemoryIndex/pkg/types"
)

// ErrRebuildInProgress is returned when a full rebuild is already running
var ErrRebuildInProgress = errors.New("index rebuild already in progress")

// autoTagConfidence is assigned to tags recovered by extraction, as opposed
// to tags attached by hand
const autoTagConfidence = 0.9

// Indexer coordinates the indexing pipeline: extract -> record -> project.
// Every write path runs delete-then-insert inside a single transaction, so a
// failure leaves the previous index state untouched.
type Indexer struct {
	extractor *extractor.Extractor
	storage   storage.Storage

	// Worker pool configuration
	workers int

	rebuildLock rebuildGate
}

// Config contains configuration for full rebuilds
type Config struct {
	Workers   int // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize int // Number of videos to commit per transaction (default: 20)
}

// Statistics contains statistics about a full rebuild
type Statistics struct {
	VideosRebuilt  int
	VideosFailed   int
	EntriesWritten int
	Duration       time.Duration
	ErrorMessages  []string
}

// New creates a new Indexer instance
func New(store storage.Storage) *Indexer {
	return &Indexer{
		extractor: extractor.New(),
		storage:   store,
		workers:   runtime.NumCPU(),
	}
}

// IngestReport stores an analysis report, extracts its knowledge, records
// tags and topics, and rebuilds the video's index entries. Everything runs
// in one transaction. The extraction is returned so callers can surface its
// warnings.
func (idx *Indexer) IngestReport(ctx context.Context, videoID int64, report, modelName string) (*types.Extraction, error) {
	ex := idx.extractor.Extract(report)

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.GetVideo(ctx, videoID); err != nil {
		return nil, fmt.Errorf("video %d: %w", videoID, err)
	}

	artifact := &types.Artifact{
		VideoID:   videoID,
		Type:      types.ArtifactReport,
		Content:   report,
		ModelName: modelName,
	}
	if err := tx.UpsertArtifact(ctx, artifact); err != nil {
		return nil, err
	}

	// Re-ingesting a report replaces the previous extraction's tags
	if err := tx.UnlinkTagsByVideo(ctx, videoID, types.TagAuto); err != nil {
		return nil, err
	}
	if err := idx.recordTagsWithStore(ctx, tx, videoID, ex.Tags, types.TagAuto, autoTagConfidence); err != nil {
		return nil, err
	}
	if err := tx.ReplaceTopics(ctx, videoID, ex.Topics); err != nil {
		return nil, err
	}
	if err := idx.rebuildWithStore(ctx, tx, videoID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &ex, nil
}

// IngestArtifact stores a transcript or OCR artifact and rebuilds the
// video's index entries in the same transaction
func (idx *Indexer) IngestArtifact(ctx context.Context, artifact *types.Artifact) error {
	if !artifact.Type.Valid() {
		return fmt.Errorf("unknown artifact type %q", artifact.Type)
	}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.GetVideo(ctx, artifact.VideoID); err != nil {
		return fmt.Errorf("video %d: %w", artifact.VideoID, err)
	}
	if err := tx.UpsertArtifact(ctx, artifact); err != nil {
		return err
	}
	if err := idx.rebuildWithStore(ctx, tx, artifact.VideoID); err != nil {
		return err
	}

	return tx.Commit()
}

// IngestTimeline replaces the per-timestamp timeline for a video
func (idx *Indexer) IngestTimeline(ctx context.Context, videoID int64, entries []storage.TimelineEntry) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.DeleteTimelineByVideo(ctx, videoID); err != nil {
		return err
	}
	if err := tx.InsertTimelineEntries(ctx, videoID, entries); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordTags links tag names to a video and refreshes the video's index
// entries, which carry the tag names denormalized
func (idx *Indexer) RecordTags(ctx context.Context, videoID int64, tags []string, source types.TagSource, confidence float64) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := idx.recordTagsWithStore(ctx, tx, videoID, tags, source, confidence); err != nil {
		return err
	}
	if err := idx.rebuildWithStore(ctx, tx, videoID); err != nil {
		return err
	}
	return tx.Commit()
}

// recordTagsWithStore is the internal implementation that runs against a
// storage handle, usually a transaction
func (idx *Indexer) recordTagsWithStore(ctx context.Context, store storage.Storage, videoID int64, tags []string, source types.TagSource, confidence float64) error {
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := store.GetOrCreateTag(ctx, name, "")
		if err != nil {
			return fmt.Errorf("failed to record tag %q: %w", name, err)
		}
		link := &types.VideoTag{
			VideoID:    videoID,
			TagID:      tag.ID,
			Source:     source,
			Confidence: confidence,
		}
		if err := store.LinkTag(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

// RecordTopics replaces a video's topic list and refreshes its index entries
func (idx *Indexer) RecordTopics(ctx context.Context, videoID int64, topics []types.Topic) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ReplaceTopics(ctx, videoID, topics); err != nil {
		return err
	}
	if err := idx.rebuildWithStore(ctx, tx, videoID); err != nil {
		return err
	}
	return tx.Commit()
}

// Rebuild rebuilds the index entries for a single video in one transaction
func (idx *Indexer) Rebuild(ctx context.Context, videoID int64) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := idx.rebuildWithStore(ctx, tx, videoID); err != nil {
		return err
	}
	return tx.Commit()
}

// rebuildWithStore projects a video's artifacts, topics, and tags into
// index entries against a storage handle, usually a transaction
func (idx *Indexer) rebuildWithStore(ctx context.Context, store storage.Storage, videoID int64) error {
	video, err := store.GetVideo(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to rebuild video %d: %w", videoID, err)
	}

	entries, err := buildEntries(ctx, store, video)
	if err != nil {
		return fmt.Errorf("failed to rebuild video %d: %w", videoID, err)
	}

	if err := store.ReplaceIndexEntries(ctx, videoID, entries); err != nil {
		return fmt.Errorf("failed to rebuild video %d: %w", videoID, err)
	}
	return nil
}

// buildEntries computes the searchable projection for one video: one entry
// per artifact with content, plus one combined entry for all topics
func buildEntries(ctx context.Context, store storage.Storage, video *types.Video) ([]types.IndexEntry, error) {
	tags, err := store.ListTagsByVideo(ctx, video.ID)
	if err != nil {
		return nil, err
	}
	tagNames := make([]string, 0, len(tags))
	for _, tag := range tags {
		tagNames = append(tagNames, tag.Name)
	}
	tagText := strings.Join(tagNames, " ")

	artifacts, err := store.ListArtifactsByVideo(ctx, video.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]types.IndexEntry, 0, len(artifacts)+1)
	for _, artifact := range artifacts {
		field, ok := fieldForArtifact(artifact.Type)
		if !ok || strings.TrimSpace(artifact.Content) == "" {
			continue
		}
		entries = append(entries, types.IndexEntry{
			SourceField: field,
			Title:       video.Title,
			Content:     artifact.Content,
			Tags:        tagText,
		})
	}

	topics, err := store.ListTopicsByVideo(ctx, video.ID)
	if err != nil {
		return nil, err
	}
	if topicText := joinTopics(topics); topicText != "" {
		entries = append(entries, types.IndexEntry{
			SourceField: types.FieldTopic,
			Title:       video.Title,
			Content:     topicText,
			Tags:        tagText,
		})
	}

	return entries, nil
}

// fieldForArtifact maps an artifact type to its index source field
func fieldForArtifact(t types.ArtifactType) (types.SourceField, bool) {
	switch t {
	case types.ArtifactReport:
		return types.FieldReport, true
	case types.ArtifactTranscript:
		return types.FieldTranscript, true
	case types.ArtifactOCR:
		return types.FieldOCR, true
	}
	return "", false
}

// joinTopics flattens all topics into the single topic entry's content
func joinTopics(topics []*types.Topic) string {
	parts := make([]string, 0, len(topics))
	for _, topic := range topics {
		text := topic.Title
		if topic.Summary != "" {
			text += "\n" + topic.Summary
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// RebuildAll rebuilds the index entries for every video. Batches commit in
// their own transactions so one broken video does not abort the rest.
func (idx *Indexer) RebuildAll(ctx context.Context, config *Config) (*Statistics, error) {
	if !idx.rebuildLock.tryAcquire() {
		return nil, ErrRebuildInProgress
	}
	defer idx.rebuildLock.release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	videos, err := idx.listAllVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	var (
		rebuilt int32
		failed  int32
		mu      sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < len(videos); i += batchSize {
		end := i + batchSize
		if end > len(videos) {
			end = len(videos)
		}
		batch := videos[i:end]

		g.Go(func() error {
			return idx.rebuildBatch(gctx, batch, &rebuilt, &failed, &mu, stats)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.VideosRebuilt = int(rebuilt)
	stats.VideosFailed = int(failed)
	entries, err := idx.storage.CountIndexEntries(ctx)
	if err != nil {
		return nil, err
	}
	stats.EntriesWritten = entries
	stats.Duration = time.Since(startTime)
	return stats, nil
}

// rebuildBatch rebuilds a batch of videos within one transaction
func (idx *Indexer) rebuildBatch(ctx context.Context, videos []*types.Video,
	rebuilt, failed *int32, mu *sync.Mutex, stats *Statistics) error {

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, video := range videos {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := idx.rebuildWithStore(ctx, tx, video.ID); err != nil {
			atomic.AddInt32(failed, 1)
			mu.Lock()
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", video.VideoKey, err))
			mu.Unlock()
			// Continue with other videos
			continue
		}
		atomic.AddInt32(rebuilt, 1)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// listAllVideos pages through the video table
func (idx *Indexer) listAllVideos(ctx context.Context) ([]*types.Video, error) {
	const pageSize = 500
	all := make([]*types.Video, 0)
	for offset := 0; ; offset += pageSize {
		page, err := idx.storage.ListVideos(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}
