package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catherina0/MemoryIndex/internal/storage"
	"github.com/Catherina0/MemoryIndex/pkg/types"
)

func setupIndexer(t *testing.T) (*Indexer, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store), store
}

func makeVideo(t *testing.T, store *storage.SQLiteStorage, key, title string) *types.Video {
	t.Helper()
	video := &types.Video{
		VideoKey:        key,
		Title:           title,
		SourceType:      types.SourceBilibili,
		DurationSeconds: 600,
	}
	require.NoError(t, store.CreateVideo(context.Background(), video))
	return video
}

const testReport = `# 人格类型解析

## 摘要

本期视频介绍 INTP 与 INTJ 的核心差异。

## 标签

MBTI, INTP, 认知功能

## 开场介绍 [00:10 - 02:00]

主讲人说明本期结构。

## 核心差异 [02:00 - 08:30]

Ti 主导与 Ni 主导在决策上的不同。
`

func TestIngestReport(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	extraction, err := idx.IngestReport(ctx, video.ID, testReport, "gpt-4o")
	require.NoError(t, err)
	require.NotNil(t, extraction)
	assert.Empty(t, extraction.Warnings)
	assert.Equal(t, []string{"MBTI", "INTP", "认知功能"}, extraction.Tags)

	// The report artifact is stored
	artifact, err := store.GetArtifact(ctx, video.ID, types.ArtifactReport)
	require.NoError(t, err)
	assert.Equal(t, testReport, artifact.Content)
	assert.Equal(t, "gpt-4o", artifact.ModelName)

	// Tags are linked with auto source
	tags, err := store.ListTagsByVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 3)

	// Topics are recorded in order
	topics, err := store.ListTopicsByVideo(ctx, video.ID)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "开场介绍", topics[0].Title)
	assert.Equal(t, "核心差异", topics[1].Title)

	// Index entries cover report and topic fields
	entries, err := store.ListIndexEntriesByVideo(ctx, video.ID)
	require.NoError(t, err)
	fields := entryFields(entries)
	assert.Contains(t, fields, types.FieldReport)
	assert.Contains(t, fields, types.FieldTopic)
}

func TestIngestReport_ReplacesAutoTags(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	_, err := idx.IngestReport(ctx, video.ID, testReport, "gpt-4o")
	require.NoError(t, err)

	// Manual tag survives re-ingestion, auto tags are replaced
	require.NoError(t, idx.RecordTags(ctx, video.ID, []string{"收藏"}, types.TagManual, 1.0))

	updated := "# 其他\n\n## 摘要\n\n换了主题。\n\n## 标签\n\n心理学\n"
	_, err = idx.IngestReport(ctx, video.ID, updated, "gpt-4o")
	require.NoError(t, err)

	tags, err := store.ListTagsByVideo(ctx, video.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"收藏", "心理学"}, names)
}

func TestIngestReport_UnknownVideo(t *testing.T) {
	idx, _ := setupIndexer(t)

	_, err := idx.IngestReport(context.Background(), 9999, testReport, "gpt-4o")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngestArtifact(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	artifact := &types.Artifact{
		VideoID: video.ID,
		Type:    types.ArtifactTranscript,
		Content: "大家好，今天我们聊认知功能。",
	}
	require.NoError(t, idx.IngestArtifact(ctx, artifact))

	entries, err := store.ListIndexEntriesByVideo(ctx, video.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.FieldTranscript, entries[0].SourceField)
	assert.Equal(t, "人格类型解析", entries[0].Title)
}

func TestIngestArtifact_InvalidType(t *testing.T) {
	idx, store := setupIndexer(t)
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	err := idx.IngestArtifact(context.Background(), &types.Artifact{
		VideoID: video.ID,
		Type:    "thumbnail",
		Content: "x",
	})
	require.Error(t, err)
}

func TestRecordTags_RefreshesEntries(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	require.NoError(t, idx.IngestArtifact(ctx, &types.Artifact{
		VideoID: video.ID,
		Type:    types.ArtifactTranscript,
		Content: "聊认知功能。",
	}))
	require.NoError(t, idx.RecordTags(ctx, video.ID, []string{"MBTI", "心理学"}, types.TagManual, 1.0))

	entries, err := store.ListIndexEntriesByVideo(ctx, video.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Tags, "MBTI")
	assert.Contains(t, entries[0].Tags, "心理学")
}

func TestRecordTags_SkipsBlankNames(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	require.NoError(t, idx.RecordTags(ctx, video.ID, []string{" ", "", "MBTI"}, types.TagManual, 1.0))

	tags, err := store.ListTagsByVideo(ctx, video.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "MBTI", tags[0].Name)
}

func TestRecordTopics(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	topics := []types.Topic{
		{Title: "开场", Summary: "结构说明"},
		{Title: "正题", Summary: "认知功能对比"},
	}
	require.NoError(t, idx.RecordTopics(ctx, video.ID, topics))

	entries, err := store.ListIndexEntriesByVideo(ctx, video.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.FieldTopic, entries[0].SourceField)
	assert.Contains(t, entries[0].Content, "开场\n结构说明")
	assert.Contains(t, entries[0].Content, "正题\n认知功能对比")
}

func TestRebuild_RemovesStaleEntries(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	require.NoError(t, idx.IngestArtifact(ctx, &types.Artifact{
		VideoID: video.ID,
		Type:    types.ArtifactOCR,
		Content: "屏幕文字",
	}))

	// Wiping the artifact and rebuilding drops its projection
	require.NoError(t, store.DeleteArtifactsByVideo(ctx, video.ID))
	require.NoError(t, idx.Rebuild(ctx, video.ID))

	entries, err := store.ListIndexEntriesByVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRebuildAll(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		video := makeVideo(t, store, fmt.Sprintf("BV%03d", i), fmt.Sprintf("视频 %d", i))
		require.NoError(t, idx.IngestArtifact(ctx, &types.Artifact{
			VideoID: video.ID,
			Type:    types.ArtifactTranscript,
			Content: fmt.Sprintf("第 %d 期的转写内容", i),
		}))
	}

	stats, err := idx.RebuildAll(ctx, &Config{Workers: 2, BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.VideosRebuilt)
	assert.Equal(t, 0, stats.VideosFailed)
	assert.Equal(t, 5, stats.EntriesWritten)
	assert.Empty(t, stats.ErrorMessages)
	assert.Greater(t, stats.Duration.Nanoseconds(), int64(0))
}

func TestRebuildAll_Empty(t *testing.T) {
	idx, _ := setupIndexer(t)

	stats, err := idx.RebuildAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.VideosRebuilt)
	assert.Equal(t, 0, stats.EntriesWritten)
}

func TestIngestTimeline(t *testing.T) {
	idx, store := setupIndexer(t)
	ctx := context.Background()
	video := makeVideo(t, store, "BV1xx411c7mD", "人格类型解析")

	entries := []storage.TimelineEntry{
		{TimestampSeconds: 10, TranscriptText: "开场白"},
		{TimestampSeconds: 120, TranscriptText: "进入正题", OCRText: "第一章"},
	}
	require.NoError(t, idx.IngestTimeline(ctx, video.ID, entries))

	ts, err := store.FindTimestamp(ctx, video.ID, types.FieldTranscript, "正题")
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, 120, *ts)

	// Re-ingesting replaces the previous timeline
	require.NoError(t, idx.IngestTimeline(ctx, video.ID, []storage.TimelineEntry{
		{TimestampSeconds: 30, TranscriptText: "重新剪辑的正题"},
	}))
	ts, err = store.FindTimestamp(ctx, video.ID, types.FieldTranscript, "正题")
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, 30, *ts)
}

func TestRebuildGate(t *testing.T) {
	var gate rebuildGate
	require.True(t, gate.tryAcquire())
	assert.False(t, gate.tryAcquire())
	gate.release()
	assert.True(t, gate.tryAcquire())
}

func entryFields(entries []*types.IndexEntry) []types.SourceField {
	fields := make([]types.SourceField, 0, len(entries))
	for _, entry := range entries {
		fields = append(fields, entry.SourceField)
	}
	return fields
}
