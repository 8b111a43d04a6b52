package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Catherina0/MemoryIndex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Video operations

// createVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createVideoWithQuerier(ctx context.Context, q querier, video *types.Video) error {
	query := `
		INSERT INTO videos (video_key, title, source_type, source_url, duration_seconds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		video.VideoKey, video.Title, string(video.SourceType), video.SourceURL,
		video.DurationSeconds, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("video %s: %w", video.VideoKey, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create video: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	video.ID = id
	video.CreatedAt = now
	video.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateVideo(ctx context.Context, video *types.Video) error {
	return s.createVideoWithQuerier(ctx, s.querier(), video)
}

const videoColumns = `id, video_key, title, source_type, source_url, duration_seconds, created_at, updated_at`

func scanVideo(row interface{ Scan(...interface{}) error }) (*types.Video, error) {
	var video types.Video
	var sourceType, sourceURL sql.NullString
	err := row.Scan(
		&video.ID, &video.VideoKey, &video.Title, &sourceType, &sourceURL,
		&video.DurationSeconds, &video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	video.SourceType = types.SourceType(sourceType.String)
	video.SourceURL = sourceURL.String
	return &video, nil
}

// getVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getVideoWithQuerier(ctx context.Context, q querier, videoID int64) (*types.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = ?`
	video, err := scanVideo(q.QueryRowContext(ctx, query, videoID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return video, nil
}

func (s *SQLiteStorage) GetVideo(ctx context.Context, videoID int64) (*types.Video, error) {
	return s.getVideoWithQuerier(ctx, s.querier(), videoID)
}

// getVideoByKeyWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getVideoByKeyWithQuerier(ctx context.Context, q querier, videoKey string) (*types.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_key = ?`
	video, err := scanVideo(q.QueryRowContext(ctx, query, videoKey))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return video, nil
}

func (s *SQLiteStorage) GetVideoByKey(ctx context.Context, videoKey string) (*types.Video, error) {
	return s.getVideoByKeyWithQuerier(ctx, s.querier(), videoKey)
}

// updateVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateVideoWithQuerier(ctx context.Context, q querier, video *types.Video) error {
	query := `
		UPDATE videos
		SET title = ?, source_type = ?, source_url = ?, duration_seconds = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		video.Title, string(video.SourceType), video.SourceURL,
		video.DurationSeconds, now, video.ID)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	video.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateVideo(ctx context.Context, video *types.Video) error {
	return s.updateVideoWithQuerier(ctx, s.querier(), video)
}

// deleteVideoWithQuerier is the internal implementation that uses a querier.
// Linked tags lose a usage count before the cascade removes the links.
func (s *SQLiteStorage) deleteVideoWithQuerier(ctx context.Context, q querier, videoID int64) error {
	decrement := `
		UPDATE tags SET usage_count = usage_count - 1
		WHERE id IN (SELECT tag_id FROM video_tags WHERE video_id = ?)
	`
	if _, err := q.ExecContext(ctx, decrement, videoID); err != nil {
		return fmt.Errorf("failed to release tags: %w", err)
	}
	_, err := q.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, videoID)
	return err
}

func (s *SQLiteStorage) DeleteVideo(ctx context.Context, videoID int64) error {
	return s.deleteVideoWithQuerier(ctx, s.querier(), videoID)
}

// listVideosWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listVideosWithQuerier(ctx context.Context, q querier, limit, offset int) ([]*types.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	videos := make([]*types.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

func (s *SQLiteStorage) ListVideos(ctx context.Context, limit, offset int) ([]*types.Video, error) {
	return s.listVideosWithQuerier(ctx, s.querier(), limit, offset)
}

// Artifact operations

// upsertArtifactWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertArtifactWithQuerier(ctx context.Context, q querier, artifact *types.Artifact) error {
	// Use atomic INSERT ... ON CONFLICT so reprocessing replaces wholesale
	query := `
		INSERT INTO artifacts (video_id, artifact_type, content, model_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(video_id, artifact_type)
		DO UPDATE SET
			content = excluded.content,
			model_name = excluded.model_name,
			created_at = excluded.created_at
		RETURNING id, created_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		artifact.VideoID, string(artifact.Type), artifact.Content, artifact.ModelName, now,
	).Scan(&artifact.ID, &artifact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert artifact: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertArtifact(ctx context.Context, artifact *types.Artifact) error {
	return s.upsertArtifactWithQuerier(ctx, s.querier(), artifact)
}

// getArtifactWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getArtifactWithQuerier(ctx context.Context, q querier, videoID int64, artifactType types.ArtifactType) (*types.Artifact, error) {
	query := `
		SELECT id, video_id, artifact_type, content, model_name, created_at
		FROM artifacts
		WHERE video_id = ? AND artifact_type = ?
	`
	var artifact types.Artifact
	var artType string
	var modelName sql.NullString
	err := q.QueryRowContext(ctx, query, videoID, string(artifactType)).Scan(
		&artifact.ID, &artifact.VideoID, &artType, &artifact.Content,
		&modelName, &artifact.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	artifact.Type = types.ArtifactType(artType)
	artifact.ModelName = modelName.String
	return &artifact, nil
}

func (s *SQLiteStorage) GetArtifact(ctx context.Context, videoID int64, artifactType types.ArtifactType) (*types.Artifact, error) {
	return s.getArtifactWithQuerier(ctx, s.querier(), videoID, artifactType)
}

// listArtifactsByVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listArtifactsByVideoWithQuerier(ctx context.Context, q querier, videoID int64) ([]*types.Artifact, error) {
	query := `
		SELECT id, video_id, artifact_type, content, model_name, created_at
		FROM artifacts
		WHERE video_id = ?
		ORDER BY artifact_type
	`
	rows, err := q.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	artifacts := make([]*types.Artifact, 0)
	for rows.Next() {
		var artifact types.Artifact
		var artType string
		var modelName sql.NullString
		err := rows.Scan(
			&artifact.ID, &artifact.VideoID, &artType, &artifact.Content,
			&modelName, &artifact.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		artifact.Type = types.ArtifactType(artType)
		artifact.ModelName = modelName.String
		artifacts = append(artifacts, &artifact)
	}
	return artifacts, rows.Err()
}

func (s *SQLiteStorage) ListArtifactsByVideo(ctx context.Context, videoID int64) ([]*types.Artifact, error) {
	return s.listArtifactsByVideoWithQuerier(ctx, s.querier(), videoID)
}

// deleteArtifactsByVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteArtifactsByVideoWithQuerier(ctx context.Context, q querier, videoID int64) error {
	query := `DELETE FROM artifacts WHERE video_id = ?`
	_, err := q.ExecContext(ctx, query, videoID)
	return err
}

func (s *SQLiteStorage) DeleteArtifactsByVideo(ctx context.Context, videoID int64) error {
	return s.deleteArtifactsByVideoWithQuerier(ctx, s.querier(), videoID)
}

// Tag operations

// getOrCreateTagWithQuerier is the internal implementation that uses a querier.
// Lookup is case-insensitive; the stored casing of an existing tag wins.
func (s *SQLiteStorage) getOrCreateTagWithQuerier(ctx context.Context, q querier, name, category string) (*types.Tag, error) {
	query := `
		INSERT INTO tags (name, category, usage_count)
		VALUES (?, ?, 0)
		ON CONFLICT(name) DO UPDATE SET
			category = COALESCE(NULLIF(excluded.category, ''), tags.category)
		RETURNING id, name, category, usage_count
	`
	var tag types.Tag
	var cat sql.NullString
	err := q.QueryRowContext(ctx, query, name, category).Scan(
		&tag.ID, &tag.Name, &cat, &tag.UsageCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create tag %q: %w", name, err)
	}
	tag.Category = cat.String
	return &tag, nil
}

func (s *SQLiteStorage) GetOrCreateTag(ctx context.Context, name, category string) (*types.Tag, error) {
	return s.getOrCreateTagWithQuerier(ctx, s.querier(), name, category)
}

// getTagByNameWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getTagByNameWithQuerier(ctx context.Context, q querier, name string) (*types.Tag, error) {
	query := `SELECT id, name, category, usage_count FROM tags WHERE name = ? COLLATE NOCASE`
	var tag types.Tag
	var cat sql.NullString
	err := q.QueryRowContext(ctx, query, name).Scan(&tag.ID, &tag.Name, &cat, &tag.UsageCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tag.Category = cat.String
	return &tag, nil
}

func (s *SQLiteStorage) GetTagByName(ctx context.Context, name string) (*types.Tag, error) {
	return s.getTagByNameWithQuerier(ctx, s.querier(), name)
}

// linkTagWithQuerier is the internal implementation that uses a querier.
// usage_count moves only when a new link is actually created.
func (s *SQLiteStorage) linkTagWithQuerier(ctx context.Context, q querier, link *types.VideoTag) error {
	query := `
		INSERT INTO video_tags (video_id, tag_id, source, confidence, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(video_id, tag_id) DO NOTHING
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		link.VideoID, link.TagID, string(link.Source), link.Confidence, now)
	if err != nil {
		return fmt.Errorf("failed to link tag: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if inserted > 0 {
		_, err = q.ExecContext(ctx, `UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?`, link.TagID)
		if err != nil {
			return fmt.Errorf("failed to bump tag usage: %w", err)
		}
		link.CreatedAt = now
	}
	return nil
}

func (s *SQLiteStorage) LinkTag(ctx context.Context, link *types.VideoTag) error {
	return s.linkTagWithQuerier(ctx, s.querier(), link)
}

// unlinkTagsByVideoWithQuerier is the internal implementation that uses a querier.
// An empty source removes links from every source.
func (s *SQLiteStorage) unlinkTagsByVideoWithQuerier(ctx context.Context, q querier, videoID int64, source types.TagSource) error {
	decrement := `
		UPDATE tags SET usage_count = usage_count - 1
		WHERE id IN (SELECT tag_id FROM video_tags WHERE video_id = ?`
	del := `DELETE FROM video_tags WHERE video_id = ?`
	args := []interface{}{videoID}
	if source != "" {
		decrement += ` AND source = ?`
		del += ` AND source = ?`
		args = append(args, string(source))
	}
	decrement += `)`

	if _, err := q.ExecContext(ctx, decrement, args...); err != nil {
		return fmt.Errorf("failed to release tags: %w", err)
	}
	if _, err := q.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("failed to unlink tags: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UnlinkTagsByVideo(ctx context.Context, videoID int64, source types.TagSource) error {
	return s.unlinkTagsByVideoWithQuerier(ctx, s.querier(), videoID, source)
}

// listTagsByVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listTagsByVideoWithQuerier(ctx context.Context, q querier, videoID int64) ([]*types.Tag, error) {
	query := `
		SELECT t.id, t.name, t.category, t.usage_count
		FROM tags t
		JOIN video_tags vt ON t.id = vt.tag_id
		WHERE vt.video_id = ?
		ORDER BY t.name
	`
	return s.collectTags(ctx, q, query, videoID)
}

func (s *SQLiteStorage) ListTagsByVideo(ctx context.Context, videoID int64) ([]*types.Tag, error) {
	return s.listTagsByVideoWithQuerier(ctx, s.querier(), videoID)
}

// listPopularTagsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listPopularTagsWithQuerier(ctx context.Context, q querier, limit int) ([]*types.Tag, error) {
	query := `
		SELECT id, name, category, usage_count
		FROM tags
		WHERE usage_count > 0
		ORDER BY usage_count DESC, name
		LIMIT ?
	`
	return s.collectTags(ctx, q, query, limit)
}

func (s *SQLiteStorage) ListPopularTags(ctx context.Context, limit int) ([]*types.Tag, error) {
	return s.listPopularTagsWithQuerier(ctx, s.querier(), limit)
}

// suggestTagsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) suggestTagsWithQuerier(ctx context.Context, q querier, prefix string, limit int) ([]*types.Tag, error) {
	query := `
		SELECT id, name, category, usage_count
		FROM tags
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY usage_count DESC, name
		LIMIT ?
	`
	return s.collectTags(ctx, q, query, escapeLike(prefix)+"%", limit)
}

func (s *SQLiteStorage) SuggestTags(ctx context.Context, prefix string, limit int) ([]*types.Tag, error) {
	return s.suggestTagsWithQuerier(ctx, s.querier(), prefix, limit)
}

// collectTags runs a tag query and scans the rows
func (s *SQLiteStorage) collectTags(ctx context.Context, q querier, query string, args ...interface{}) ([]*types.Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tags := make([]*types.Tag, 0)
	for rows.Next() {
		var tag types.Tag
		var cat sql.NullString
		if err := rows.Scan(&tag.ID, &tag.Name, &cat, &tag.UsageCount); err != nil {
			return nil, err
		}
		tag.Category = cat.String
		tags = append(tags, &tag)
	}
	return tags, rows.Err()
}

// Topic operations

// replaceTopicsWithQuerier is the internal implementation that uses a querier.
// Reprocessing replaces the whole chapter list; sequence is reassigned from 0.
func (s *SQLiteStorage) replaceTopicsWithQuerier(ctx context.Context, q querier, videoID int64, topics []types.Topic) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM topics WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("failed to clear topics: %w", err)
	}

	query := `
		INSERT INTO topics (video_id, title, summary, start_time, end_time, keywords, sequence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for i := range topics {
		topic := &topics[i]
		var keywords interface{}
		if len(topic.Keywords) > 0 {
			blob, err := json.Marshal(topic.Keywords)
			if err != nil {
				return fmt.Errorf("failed to encode keywords: %w", err)
			}
			keywords = string(blob)
		}

		result, err := q.ExecContext(ctx, query,
			videoID, topic.Title, topic.Summary,
			nullableInt(topic.StartTime), nullableInt(topic.EndTime),
			keywords, i, now)
		if err != nil {
			return fmt.Errorf("failed to insert topic %d: %w", i, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		topic.ID = id
		topic.VideoID = videoID
		topic.Sequence = i
		topic.CreatedAt = now
	}
	return nil
}

func (s *SQLiteStorage) ReplaceTopics(ctx context.Context, videoID int64, topics []types.Topic) error {
	return s.replaceTopicsWithQuerier(ctx, s.querier(), videoID, topics)
}

// listTopicsByVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listTopicsByVideoWithQuerier(ctx context.Context, q querier, videoID int64) ([]*types.Topic, error) {
	query := `
		SELECT id, video_id, title, summary, start_time, end_time, keywords, sequence, created_at
		FROM topics
		WHERE video_id = ?
		ORDER BY sequence
	`
	rows, err := q.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	topics := make([]*types.Topic, 0)
	for rows.Next() {
		var topic types.Topic
		var summary, keywords sql.NullString
		var startTime, endTime sql.NullInt64
		err := rows.Scan(
			&topic.ID, &topic.VideoID, &topic.Title, &summary,
			&startTime, &endTime, &keywords, &topic.Sequence, &topic.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		topic.Summary = summary.String
		if startTime.Valid {
			v := int(startTime.Int64)
			topic.StartTime = &v
		}
		if endTime.Valid {
			v := int(endTime.Int64)
			topic.EndTime = &v
		}
		if keywords.Valid && keywords.String != "" {
			if err := json.Unmarshal([]byte(keywords.String), &topic.Keywords); err != nil {
				return nil, fmt.Errorf("failed to decode keywords: %w", err)
			}
		}
		topics = append(topics, &topic)
	}
	return topics, rows.Err()
}

func (s *SQLiteStorage) ListTopicsByVideo(ctx context.Context, videoID int64) ([]*types.Topic, error) {
	return s.listTopicsByVideoWithQuerier(ctx, s.querier(), videoID)
}

// Timeline operations

// insertTimelineEntriesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertTimelineEntriesWithQuerier(ctx context.Context, q querier, videoID int64, entries []TimelineEntry) error {
	query := `
		INSERT INTO timeline_entries (video_id, timestamp_seconds, frame_number, transcript_text, ocr_text)
		VALUES (?, ?, ?, ?, ?)
	`
	for i := range entries {
		entry := &entries[i]
		result, err := q.ExecContext(ctx, query,
			videoID, entry.TimestampSeconds, entry.FrameNumber,
			entry.TranscriptText, entry.OCRText)
		if err != nil {
			return fmt.Errorf("failed to insert timeline entry: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		entry.ID = id
		entry.VideoID = videoID
	}
	return nil
}

func (s *SQLiteStorage) InsertTimelineEntries(ctx context.Context, videoID int64, entries []TimelineEntry) error {
	return s.insertTimelineEntriesWithQuerier(ctx, s.querier(), videoID, entries)
}

// findTimestampWithQuerier is the internal implementation that uses a querier.
// Only transcript and ocr hits have a timeline position; other fields return nil.
func (s *SQLiteStorage) findTimestampWithQuerier(ctx context.Context, q querier, videoID int64, field types.SourceField, text string) (*int, error) {
	var column string
	switch field {
	case types.FieldTranscript:
		column = "transcript_text"
	case types.FieldOCR:
		column = "ocr_text"
	default:
		return nil, nil
	}
	if text == "" {
		return nil, nil
	}

	query := `
		SELECT timestamp_seconds
		FROM timeline_entries
		WHERE video_id = ? AND ` + column + ` LIKE ? ESCAPE '\'
		ORDER BY timestamp_seconds
		LIMIT 1
	`
	var ts int
	err := q.QueryRowContext(ctx, query, videoID, "%"+escapeLike(text)+"%").Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func (s *SQLiteStorage) FindTimestamp(ctx context.Context, videoID int64, field types.SourceField, text string) (*int, error) {
	return s.findTimestampWithQuerier(ctx, s.querier(), videoID, field, text)
}

// deleteTimelineByVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteTimelineByVideoWithQuerier(ctx context.Context, q querier, videoID int64) error {
	query := `DELETE FROM timeline_entries WHERE video_id = ?`
	_, err := q.ExecContext(ctx, query, videoID)
	return err
}

func (s *SQLiteStorage) DeleteTimelineByVideo(ctx context.Context, videoID int64) error {
	return s.deleteTimelineByVideoWithQuerier(ctx, s.querier(), videoID)
}

// Index entry operations

// isStorableField reports whether entries may be stored under the field.
// FieldAll is a search filter value and never reaches the table.
func isStorableField(field types.SourceField) bool {
	for _, f := range types.StorableFields() {
		if field == f {
			return true
		}
	}
	return false
}

// replaceIndexEntriesWithQuerier is the internal implementation that uses a querier.
// Delete-then-insert keeps the one-entry-per-(video, field) invariant; the FTS
// triggers track both halves.
func (s *SQLiteStorage) replaceIndexEntriesWithQuerier(ctx context.Context, q querier, videoID int64, entries []types.IndexEntry) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM index_entries WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("failed to clear index entries: %w", err)
	}

	query := `
		INSERT INTO index_entries (video_id, source_field, title, content, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for i := range entries {
		entry := &entries[i]
		if entry.Content == "" {
			continue
		}
		if !isStorableField(entry.SourceField) {
			return fmt.Errorf("source field %q cannot be stored", entry.SourceField)
		}
		result, err := q.ExecContext(ctx, query,
			videoID, string(entry.SourceField), entry.Title, entry.Content, entry.Tags, now)
		if err != nil {
			return fmt.Errorf("failed to insert index entry %s: %w", entry.SourceField, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		entry.ID = id
		entry.VideoID = videoID
		entry.CreatedAt = now
	}
	return nil
}

func (s *SQLiteStorage) ReplaceIndexEntries(ctx context.Context, videoID int64, entries []types.IndexEntry) error {
	return s.replaceIndexEntriesWithQuerier(ctx, s.querier(), videoID, entries)
}

// listIndexEntriesByVideoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listIndexEntriesByVideoWithQuerier(ctx context.Context, q querier, videoID int64) ([]*types.IndexEntry, error) {
	query := `
		SELECT id, video_id, source_field, title, content, tags, created_at
		FROM index_entries
		WHERE video_id = ?
		ORDER BY source_field
	`
	rows, err := q.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*types.IndexEntry, 0)
	for rows.Next() {
		var entry types.IndexEntry
		var field string
		var title, tags sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.VideoID, &field, &title, &entry.Content, &tags, &entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entry.SourceField = types.SourceField(field)
		entry.Title = title.String
		entry.Tags = tags.String
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStorage) ListIndexEntriesByVideo(ctx context.Context, videoID int64) ([]*types.IndexEntry, error) {
	return s.listIndexEntriesByVideoWithQuerier(ctx, s.querier(), videoID)
}

// countIndexEntriesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countIndexEntriesWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_entries`).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountIndexEntries(ctx context.Context) (int, error) {
	return s.countIndexEntriesWithQuerier(ctx, s.querier())
}

// Search operations

func (s *SQLiteStorage) SearchTokens(ctx context.Context, keyword string, prefix bool, filters *SearchFilters) ([]KeywordHit, error) {
	// Implementation moved to separate file for clarity
	return searchTokens(ctx, s.querier(), keyword, prefix, filters)
}

func (s *SQLiteStorage) SearchSubstring(ctx context.Context, keyword string, filters *SearchFilters) ([]KeywordHit, error) {
	// Implementation moved to separate file for clarity
	return searchSubstring(ctx, s.querier(), keyword, filters)
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier.
// The pool holds a single connection, so the tx path must not touch s.db.
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*IndexStatus, error) {
	status := &IndexStatus{SchemaVersion: CurrentSchemaVersion}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM videos", &status.VideosCount},
		{"SELECT COUNT(*) FROM artifacts", &status.ArtifactsCount},
		{"SELECT COUNT(*) FROM tags WHERE usage_count > 0", &status.TagsCount},
		{"SELECT COUNT(*) FROM topics", &status.TopicsCount},
		{"SELECT COUNT(*) FROM index_entries", &status.EntriesCount},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	// Calculate database size
	var pageCount, pageSize int
	err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	// FTS table presence
	var ftsName string
	ftsErr := q.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='index_fts'").Scan(&ftsName)

	// Stored entries must all carry content
	var emptyEntries int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM index_entries WHERE content = ''").Scan(&emptyEntries); err != nil {
		return nil, err
	}

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexBuilt:      ftsErr == nil,
		EntriesConsistent:  emptyEntries == 0,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// nullableInt converts an optional int to a SQL argument
func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Transaction implementations - delegate to main storage

// Write operations use the internal helper that takes a querier so they run
// inside the transaction; read-only helpers do the same for consistency.

func (t *sqliteTx) CreateVideo(ctx context.Context, video *types.Video) error {
	return t.storage.createVideoWithQuerier(ctx, t.querier(), video)
}

func (t *sqliteTx) GetVideo(ctx context.Context, videoID int64) (*types.Video, error) {
	return t.storage.getVideoWithQuerier(ctx, t.querier(), videoID)
}

func (t *sqliteTx) GetVideoByKey(ctx context.Context, videoKey string) (*types.Video, error) {
	return t.storage.getVideoByKeyWithQuerier(ctx, t.querier(), videoKey)
}

func (t *sqliteTx) UpdateVideo(ctx context.Context, video *types.Video) error {
	return t.storage.updateVideoWithQuerier(ctx, t.querier(), video)
}

func (t *sqliteTx) DeleteVideo(ctx context.Context, videoID int64) error {
	return t.storage.deleteVideoWithQuerier(ctx, t.querier(), videoID)
}

func (t *sqliteTx) ListVideos(ctx context.Context, limit, offset int) ([]*types.Video, error) {
	return t.storage.listVideosWithQuerier(ctx, t.querier(), limit, offset)
}

func (t *sqliteTx) UpsertArtifact(ctx context.Context, artifact *types.Artifact) error {
	return t.storage.upsertArtifactWithQuerier(ctx, t.querier(), artifact)
}

func (t *sqliteTx) GetArtifact(ctx context.Context, videoID int64, artifactType types.ArtifactType) (*types.Artifact, error) {
	return t.storage.getArtifactWithQuerier(ctx, t.querier(), videoID, artifactType)
}

func (t *sqliteTx) ListArtifactsByVideo(ctx context.Context, videoID int64) ([]*types.Artifact, error) {
	return t.storage.listArtifactsByVideoWithQuerier(ctx, t.querier(), videoID)
}

func (t *sqliteTx) DeleteArtifactsByVideo(ctx context.Context, videoID int64) error {
	return t.storage.deleteArtifactsByVideoWithQuerier(ctx, t.querier(), videoID)
}

func (t *sqliteTx) GetOrCreateTag(ctx context.Context, name, category string) (*types.Tag, error) {
	return t.storage.getOrCreateTagWithQuerier(ctx, t.querier(), name, category)
}

func (t *sqliteTx) GetTagByName(ctx context.Context, name string) (*types.Tag, error) {
	return t.storage.getTagByNameWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) LinkTag(ctx context.Context, link *types.VideoTag) error {
	return t.storage.linkTagWithQuerier(ctx, t.querier(), link)
}

func (t *sqliteTx) UnlinkTagsByVideo(ctx context.Context, videoID int64, source types.TagSource) error {
	return t.storage.unlinkTagsByVideoWithQuerier(ctx, t.querier(), videoID, source)
}

func (t *sqliteTx) ListTagsByVideo(ctx context.Context, videoID int64) ([]*types.Tag, error) {
	return t.storage.listTagsByVideoWithQuerier(ctx, t.querier(), videoID)
}

func (t *sqliteTx) ListPopularTags(ctx context.Context, limit int) ([]*types.Tag, error) {
	return t.storage.listPopularTagsWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) SuggestTags(ctx context.Context, prefix string, limit int) ([]*types.Tag, error) {
	return t.storage.suggestTagsWithQuerier(ctx, t.querier(), prefix, limit)
}

func (t *sqliteTx) ReplaceTopics(ctx context.Context, videoID int64, topics []types.Topic) error {
	return t.storage.replaceTopicsWithQuerier(ctx, t.querier(), videoID, topics)
}

func (t *sqliteTx) ListTopicsByVideo(ctx context.Context, videoID int64) ([]*types.Topic, error) {
	return t.storage.listTopicsByVideoWithQuerier(ctx, t.querier(), videoID)
}

func (t *sqliteTx) InsertTimelineEntries(ctx context.Context, videoID int64, entries []TimelineEntry) error {
	return t.storage.insertTimelineEntriesWithQuerier(ctx, t.querier(), videoID, entries)
}

func (t *sqliteTx) FindTimestamp(ctx context.Context, videoID int64, field types.SourceField, text string) (*int, error) {
	return t.storage.findTimestampWithQuerier(ctx, t.querier(), videoID, field, text)
}

func (t *sqliteTx) DeleteTimelineByVideo(ctx context.Context, videoID int64) error {
	return t.storage.deleteTimelineByVideoWithQuerier(ctx, t.querier(), videoID)
}

func (t *sqliteTx) ReplaceIndexEntries(ctx context.Context, videoID int64, entries []types.IndexEntry) error {
	return t.storage.replaceIndexEntriesWithQuerier(ctx, t.querier(), videoID, entries)
}

func (t *sqliteTx) ListIndexEntriesByVideo(ctx context.Context, videoID int64) ([]*types.IndexEntry, error) {
	return t.storage.listIndexEntriesByVideoWithQuerier(ctx, t.querier(), videoID)
}

func (t *sqliteTx) CountIndexEntries(ctx context.Context) (int, error) {
	return t.storage.countIndexEntriesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) SearchTokens(ctx context.Context, keyword string, prefix bool, filters *SearchFilters) ([]KeywordHit, error) {
	return searchTokens(ctx, t.querier(), keyword, prefix, filters)
}

func (t *sqliteTx) SearchSubstring(ctx context.Context, keyword string, filters *SearchFilters) ([]KeywordHit, error) {
	return searchSubstring(ctx, t.querier(), keyword, filters)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	// We return an error to prevent accidental misuse
	// If savepoints are needed in the future, implement here
	return nil, errors.New("nested transactions not supported")
}
