// Package storage provides SQLite-based persistence for the knowledge index.
//
// The storage layer manages:
//   - Video metadata
//   - Derived text artifacts (transcript, OCR, analysis report)
//   - Tags and video-tag links with usage counts
//   - Extracted topics
//   - Timeline entries with per-timestamp text
//   - Index entries and their FTS5 full-text index
//
// # Database Schema
//
// Tables:
//   - videos: Video metadata (key, title, source, duration)
//   - artifacts: Derived text, one row per (video, type)
//   - tags: Global labels, unique case-insensitively
//   - video_tags: Video-tag links with provenance
//   - topics: Chapter segments from analysis reports
//   - timeline_entries: Per-timestamp transcript/OCR snapshots
//   - index_entries: Searchable projection, one row per (video, field)
//   - index_fts: FTS5 external-content index over index_entries
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.memoryindex/memoryindex.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	video := &types.Video{VideoKey: "BV1xx411c7mD", Title: "MBTI 解析"}
//	if err := db.CreateVideo(ctx, video); err != nil {
//	    log.Fatal(err)
//	}
//
// # Transactions
//
// Use transactions for atomic operations. Index rebuilds in particular must
// run delete-then-insert inside one transaction so a failure leaves the old
// entries in place:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.ReplaceTopics(ctx, videoID, topics)
//	_ = tx.ReplaceIndexEntries(ctx, videoID, entries)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Full-Text Search
//
// Query using BM25 ranking, one keyword at a time:
//
//	hits, err := db.SearchTokens(ctx, "authentication", false, nil)
//	for _, hit := range hits {
//	    fmt.Printf("Video %d (%s): score %.3f\n",
//	        hit.VideoID, hit.SourceField, hit.Score)
//	}
//
// BM25 scores are normalized to [0, 1]. The FTS5 index is maintained by
// triggers whenever index entries change.
//
// CJK keywords go through SearchSubstring instead, which scans with LIKE and
// assigns a fixed baseline score:
//
//	hits, err := db.SearchSubstring(ctx, "人格类型", nil)
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (sqlite_fts tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Native FTS5 tokenization, fastest queries
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_fts,fts5"
//
// Pure Go Build (purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Built-in FTS5, no C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
