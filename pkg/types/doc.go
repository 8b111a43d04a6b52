// Package types provides shared type definitions for the MemoryIndex server.
//
// This package defines domain types used across multiple components of
// MemoryIndex, including videos, artifacts, tags, topics, index entries, and
// search results.
//
// # Core Types
//
// Video is the metadata owner for one processed video or webpage:
//
//	video := &types.Video{
//	    VideoKey:   "BV1xx411c7mD",
//	    Title:      "MBTI 十六型人格解析",
//	    SourceType: types.SourceBilibili,
//	}
//
// Artifact is one block of derived text (transcript, OCR, or analysis
// report); Extraction is the structured knowledge pulled out of a report:
//
//	ex := extractor.Extract(report)
//	// ex.Summary, ex.Tags, ex.Topics, ex.Warnings
//
// # Source Fields
//
// SourceField is a closed enum naming the searchable projections of a video:
// report, transcript, ocr, and topic, plus the FieldAll filter value. External
// input goes through ParseSourceField so an unknown name fails at the boundary
// instead of silently matching nothing:
//
//	field, err := types.ParseSourceField("transcript")
//
// # Validation
//
// Result and enum types implement validation to ensure data integrity:
//
//	if err := result.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Search Results
//
// SearchResult combines video metadata with relevance scoring. One result is
// produced per matching video; the snippet comes from the best-scoring entry:
//
//	result := &types.SearchResult{
//	    VideoID:        123,
//	    Rank:           1,
//	    RelevanceScore: 0.92,
//	    Coverage:       1.0,
//	    SourceField:    types.FieldTranscript,
//	    Snippet:        "...认知功能的判断依据...",
//	}
//
// Relevance scores are normalized to [0, 1] range, with higher values
// indicating better matches.
package types
