// Package searcher implements keyword search over the video knowledge index.
//
// The searcher splits a query into keywords, picks a match strategy per
// keyword, fans out to the index, and merges per-entry hits into one ranked
// result per video.
//
// # Basic Usage
//
//	srch := searcher.NewSearcher(store)
//
//	response, err := srch.Search(ctx, searcher.SearchRequest{
//	    Query: "INTP 认知功能",
//	    Limit: 10,
//	})
//
//	for _, result := range response.Results {
//	    fmt.Printf("%d. %s (%.2f)\n", result.Rank, result.Title, result.RelevanceScore)
//	}
//
// # Keyword Strategies
//
// Each whitespace-separated keyword is matched independently:
//
//   - Short keywords containing CJK ideographs use a substring scan (LIKE).
//     The unicode61 tokenizer indexes each ideograph as its own token, so
//     MATCH cannot find multi-rune CJK words.
//   - Everything else uses FTS5 MATCH with bm25 ranking. With Fuzzy set, the
//     keyword widens to a prefix match ("int" also finds "INTP", "INTJ",
//     and "introduction", but never "print" or "hint").
//
// # Ranking
//
// Hits merge per video. A keyword matching several entries of the same video
// counts once, at its best score. The relevance score weights the average
// keyword score by coverage:
//
//	final = avg(scores) * (0.7 + 0.3 * matched/total)
//
// so a video matching every keyword outranks one matching a single keyword
// slightly better. MatchAll drops videos with partial coverage entirely, and
// MinRelevance filters low scores before pagination.
//
// SortBy switches between relevance (default), date, duration, and title
// ordering; every mode tiebreaks on recency.
//
// # Presentation
//
// Each result carries a rune-safe snippet built around the best-scoring hit,
// the video's tag names, and, for transcript and OCR hits, the timeline
// timestamp where the keyword occurs.
//
// # Caching
//
// Responses are cached in an LRU keyed by a hash of the full request, with a
// one hour default TTL. InvalidateCache purges everything after index
// writes.
package searcher
