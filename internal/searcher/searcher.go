package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Catherina0/MemoryIndex/internal/storage"
	"github.com/Catherina0/MemoryIndex/pkg/types"
)

// coverageFloor is the fixed portion of the relevance score; the remaining
// weight scales with keyword coverage
const (
	coverageFloor  = 0.7
	coverageWeight = 0.3
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query        string
	Tags         []string          // Videos must carry every listed tag
	Field        types.SourceField // FieldAll searches everything
	SortBy       types.SortBy
	Limit        int
	Offset       int
	MatchAll     bool    // Drop videos that miss any keyword
	Fuzzy        bool    // Widen token keywords to prefix matches
	MinRelevance float64 // Drop results scoring below this
	UseCache     bool
	CacheTTL     time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalMatches int // Matches before limit/offset
	Keywords     []string
	Duration     time.Duration
	CacheHit     bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher coordinates keyword search: it plans a strategy per keyword, fans
// out to the index, and aggregates hits into per-video results
type Searcher struct {
	storage storage.Storage
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage) *Searcher {
	// Create LRU cache with 1000 entry limit
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage: store,
		cache:   cache,
	}
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	keywords, err := planQuery(req.Query)
	if err != nil {
		return nil, err
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	aggregates, err := s.collectHits(ctx, keywords, &req)
	if err != nil {
		return nil, err
	}

	ranked := rankAggregates(aggregates, len(keywords), &req)
	total := len(ranked)
	ranked = paginate(ranked, req.Limit, req.Offset)

	results, err := s.buildResults(ctx, ranked, req.Offset)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Results:      results,
		TotalMatches: total,
		Keywords:     keywordTexts(keywords),
		Duration:     time.Since(startTime),
	}

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// videoAggregate accumulates keyword hits for one video
type videoAggregate struct {
	videoID         int64
	videoKey        string
	title           string
	durationSeconds int
	createdAt       time.Time

	// Best score per matched keyword, in query order via matched
	scores  map[string]float64
	matched []string

	// Highest-scoring hit overall, supplies field and snippet
	best        storage.KeywordHit
	bestKeyword string

	finalScore float64
	coverage   float64
}

// collectHits runs every keyword against the index and merges hits by video
func (s *Searcher) collectHits(ctx context.Context, keywords []plannedKeyword, req *SearchRequest) (map[int64]*videoAggregate, error) {
	filters := &storage.SearchFilters{
		Field: req.Field,
		Tags:  req.Tags,
		Limit: req.Limit + req.Offset + candidateHeadroom,
	}

	aggregates := make(map[int64]*videoAggregate)
	for _, kw := range keywords {
		var hits []storage.KeywordHit
		var err error

		switch kw.strategy {
		case StrategySubstring:
			hits, err = s.storage.SearchSubstring(ctx, kw.text, filters)
		default:
			hits, err = s.storage.SearchTokens(ctx, kw.text, req.Fuzzy, filters)
		}
		if err != nil {
			return nil, fmt.Errorf("keyword %q: %w", kw.text, err)
		}

		for _, hit := range hits {
			agg, ok := aggregates[hit.VideoID]
			if !ok {
				agg = &videoAggregate{
					videoID:         hit.VideoID,
					videoKey:        hit.VideoKey,
					title:           hit.VideoTitle,
					durationSeconds: hit.DurationSeconds,
					createdAt:       hit.CreatedAt,
					scores:          make(map[string]float64),
				}
				aggregates[hit.VideoID] = agg
			}

			// A keyword matching several entries of the same video counts
			// once, at its best score
			if prev, seen := agg.scores[kw.text]; !seen || hit.Score > prev {
				agg.scores[kw.text] = hit.Score
				if !seen {
					agg.matched = append(agg.matched, kw.text)
				}
			}
			if hit.Score > agg.best.Score || agg.bestKeyword == "" {
				agg.best = hit
				agg.bestKeyword = kw.text
			}
		}
	}
	return aggregates, nil
}

// candidateHeadroom pads the per-keyword candidate cap so aggregation still
// has material after match-all and relevance filtering
const candidateHeadroom = 50

// rankAggregates scores, filters, and sorts the merged hits.
// The relevance score is the average of the per-keyword scores weighted by
// keyword coverage, so a video matching three of three keywords outranks one
// matching a single keyword slightly better.
func rankAggregates(aggregates map[int64]*videoAggregate, totalKeywords int, req *SearchRequest) []*videoAggregate {
	ranked := make([]*videoAggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		var sum float64
		for _, score := range agg.scores {
			sum += score
		}
		avg := sum / float64(len(agg.scores))
		agg.coverage = float64(len(agg.matched)) / float64(totalKeywords)
		agg.finalScore = avg * (coverageFloor + coverageWeight*agg.coverage)

		if req.MatchAll && agg.coverage < 1.0 {
			continue
		}
		if agg.finalScore < req.MinRelevance {
			continue
		}
		ranked = append(ranked, agg)
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch req.SortBy {
		case types.SortDate:
			if !a.createdAt.Equal(b.createdAt) {
				return a.createdAt.After(b.createdAt)
			}
		case types.SortDuration:
			if a.durationSeconds != b.durationSeconds {
				return a.durationSeconds > b.durationSeconds
			}
		case types.SortTitle:
			if a.title != b.title {
				return a.title < b.title
			}
		default:
			if a.finalScore != b.finalScore {
				return a.finalScore > b.finalScore
			}
		}
		// Tiebreak on recency, then ID for determinism
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.After(b.createdAt)
		}
		return a.videoID < b.videoID
	})

	return ranked
}

// paginate applies offset and limit to the ranked list
func paginate(ranked []*videoAggregate, limit, offset int) []*videoAggregate {
	if offset >= len(ranked) {
		return nil
	}
	ranked = ranked[offset:]
	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}

// buildResults converts aggregates into presentable results, attaching
// snippets, timeline timestamps, and tag names
func (s *Searcher) buildResults(ctx context.Context, ranked []*videoAggregate, offset int) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, len(ranked))
	for i, agg := range ranked {
		snippet := buildSnippet(agg.best.Content, agg.bestKeyword)

		result := types.SearchResult{
			VideoID:         agg.videoID,
			VideoKey:        agg.videoKey,
			Title:           agg.title,
			Rank:            offset + i + 1,
			RelevanceScore:  agg.finalScore,
			Coverage:        agg.coverage,
			MatchedKeywords: agg.matched,
			SourceField:     agg.best.SourceField,
			Snippet:         snippet,
			DurationSeconds: agg.durationSeconds,
			CreatedAt:       agg.createdAt,
		}

		// Timeline lookup only makes sense for time-coded fields
		if agg.best.SourceField == types.FieldTranscript || agg.best.SourceField == types.FieldOCR {
			ts, err := s.storage.FindTimestamp(ctx, agg.videoID, agg.best.SourceField, agg.bestKeyword)
			if err == nil && ts != nil {
				result.TimestampSeconds = ts
			}
		}

		tags, err := s.storage.ListTagsByVideo(ctx, agg.videoID)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			result.Tags = append(result.Tags, tag.Name)
		}

		results = append(results, result)
	}
	return results, nil
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return types.ErrEmptyQuery
	}

	if req.Limit <= 0 {
		req.Limit = 20 // Default limit
	}
	if req.Limit > 100 {
		req.Limit = 100 // Max limit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.Field == "" {
		req.Field = types.FieldAll
	}
	if req.SortBy == "" {
		req.SortBy = types.SortRelevance
	}

	if req.MinRelevance < 0 || req.MinRelevance > 1 {
		return fmt.Errorf("min relevance %.2f out of range [0, 1]", req.MinRelevance)
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour // Default TTL
	}

	return nil
}

// checkCache looks up a cached response, expiring stale entries
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	// Return a deep copy while still holding the read lock so the cached
	// entry cannot change mid-copy
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops all cached responses. Called after any index write;
// the LRU cache cannot be filtered by video, and invalidation only happens
// on reindexing, so a full purge is acceptable.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		TotalMatches: src.TotalMatches,
		Keywords:     append([]string(nil), src.Keywords...),
		Duration:     src.Duration,
		CacheHit:     src.CacheHit,
		Results:      make([]types.SearchResult, len(src.Results)),
	}

	for i, result := range src.Results {
		dst.Results[i] = result
		dst.Results[i].MatchedKeywords = append([]string(nil), result.MatchedKeywords...)
		dst.Results[i].Tags = append([]string(nil), result.Tags...)
		if result.TimestampSeconds != nil {
			ts := *result.TimestampSeconds
			dst.Results[i].TimestampSeconds = &ts
		}
	}

	return dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(strings.Join(req.Tags, ","))
	data.WriteString("|")
	data.WriteString(string(req.Field))
	data.WriteString("|")
	data.WriteString(string(req.SortBy))
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%d|%t|%t|%.2f", req.Limit, req.Offset, req.MatchAll, req.Fuzzy, req.MinRelevance)
	return sha256.Sum256([]byte(data.String()))
}

// keywordTexts extracts the keyword strings in query order
func keywordTexts(keywords []plannedKeyword) []string {
	texts := make([]string, len(keywords))
	for i, kw := range keywords {
		texts[i] = kw.text
	}
	return texts
}
