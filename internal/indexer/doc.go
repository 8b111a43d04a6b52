// Package indexer coordinates the indexing pipeline for the video knowledge
// base.
//
// The indexer sits between ingestion and search: it stores raw artifacts
// (reports, transcripts, OCR dumps), extracts structured knowledge from
// analysis reports, and projects everything into the flat index_entries
// table that the search layer queries.
//
// # Basic Usage
//
//	idx := indexer.New(store)
//
//	extraction, err := idx.IngestReport(ctx, videoID, reportText, "gpt-4o")
//	for _, warning := range extraction.Warnings {
//	    log.Printf("extraction warning: %s", warning)
//	}
//
// # Indexing Pipeline
//
// IngestReport executes a multi-stage pipeline inside one transaction:
//
//  1. Store: Upsert the report artifact for the video
//  2. Extract: Pull summary, tags, and topics out of the report text
//  3. Record: Link extracted tags, replace the topic list
//  4. Project: Rebuild the video's index entries
//
// A failure at any stage rolls the whole transaction back, so the previous
// index state survives intact.
//
// # Index Projection
//
// Each video projects to at most one index entry per source field:
//
//	report     -> full report text
//	transcript -> full transcript text
//	ocr        -> full OCR text
//	topic      -> all topic titles and summaries, joined
//
// Entries carry the video title and the video's tag names denormalized, so
// a single table scan can match against any of them. RecordTags and
// RecordTopics refresh the projection in the same transaction that changes
// the underlying rows.
//
// # Full Rebuilds
//
// RebuildAll reprojects every video using a worker pool:
//
//	stats, err := idx.RebuildAll(ctx, &indexer.Config{Workers: 8})
//	fmt.Printf("rebuilt %d videos in %v\n", stats.VideosRebuilt, stats.Duration)
//
// Batches of videos commit in their own transactions, so one broken video
// fails alone and is reported in Statistics.ErrorMessages rather than
// aborting the run. Only one full rebuild may run at a time; a concurrent
// call returns ErrRebuildInProgress immediately.
package indexer
