package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Catherina0/MemoryIndex/internal/indexer"
	"github.com/Catherina0/MemoryIndex/internal/searcher"
	"github.com/Catherina0/MemoryIndex/internal/storage"
	"github.com/Catherina0/MemoryIndex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeVideoNotFound     = -32001 // No video with the given key
	ErrorCodeRebuildInProgress = -32002 // Another full rebuild is already running
	ErrorCodeEmptyQuery        = -32004 // Query parameter is empty
)

// handleIngestReport handles the ingest_report tool invocation
func (s *Server) handleIngestReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	videoKey, ok := args["video_key"].(string)
	if !ok || videoKey == "" {
		return nil, missingParam("video_key")
	}
	report, ok := args["report"].(string)
	if !ok || strings.TrimSpace(report) == "" {
		return nil, missingParam("report")
	}

	video, err := s.storage.GetVideoByKey(ctx, videoKey)
	if errors.Is(err, storage.ErrNotFound) {
		// First ingest registers the video
		video, err = s.registerVideo(ctx, videoKey, args)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to resolve video", map[string]interface{}{
			"error": err.Error(),
		})
	}

	modelName := getStringDefault(args, "model_name", "")
	extraction, err := s.indexer.IngestReport(ctx, video.ID, report, modelName)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"video_id":  video.ID,
		"video_key": video.VideoKey,
		"summary":   extraction.Summary,
		"tags":      extraction.Tags,
		"topics":    len(extraction.Topics),
	}
	if len(extraction.Warnings) > 0 {
		response["warnings"] = extraction.Warnings
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// registerVideo creates the video record from ingest_report arguments
func (s *Server) registerVideo(ctx context.Context, videoKey string, args map[string]interface{}) (*types.Video, error) {
	title := getStringDefault(args, "title", videoKey)
	sourceType := types.SourceType(getStringDefault(args, "source_type", string(types.SourceWebpage)))
	if !sourceType.Valid() {
		return nil, fmt.Errorf("unknown source type %q", sourceType)
	}

	video := &types.Video{
		VideoKey:        videoKey,
		Title:           title,
		SourceType:      sourceType,
		SourceURL:       getStringDefault(args, "source_url", ""),
		DurationSeconds: getIntDefault(args, "duration_seconds", 0),
	}
	if err := s.storage.CreateVideo(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

// handleRecordTags handles the record_tags tool invocation
func (s *Server) handleRecordTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	video, mcpErr := s.resolveVideo(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	tags := getStringSlice(args, "tags")
	if len(tags) == 0 {
		return nil, missingParam("tags")
	}

	source := types.TagSource(getStringDefault(args, "source", string(types.TagManual)))
	if source != types.TagAuto && source != types.TagManual {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid source", map[string]interface{}{
			"param":   "source",
			"value":   string(source),
			"allowed": []string{"auto", "manual"},
		})
	}
	confidence := getFloatDefault(args, "confidence", 1.0)
	if confidence < 0 || confidence > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "confidence must be between 0.0 and 1.0", map[string]interface{}{
			"param": "confidence",
			"value": confidence,
		})
	}

	if err := s.indexer.RecordTags(ctx, video.ID, tags, source, confidence); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to record tags", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"video_key":     video.VideoKey,
		"tags_recorded": len(tags),
	})), nil
}

// handleRecordTopics handles the record_topics tool invocation
func (s *Server) handleRecordTopics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	video, mcpErr := s.resolveVideo(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	rawTopics, ok := args["topics"].([]interface{})
	if !ok {
		return nil, missingParam("topics")
	}
	topics, err := parseTopics(rawTopics)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid topics", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	if err := s.indexer.RecordTopics(ctx, video.ID, topics); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to record topics", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"video_key":       video.VideoKey,
		"topics_recorded": len(topics),
	})), nil
}

// parseTopics converts the raw JSON topic array into domain topics
func parseTopics(raw []interface{}) ([]types.Topic, error) {
	topics := make([]types.Topic, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("topic %d is not an object", i)
		}
		title, _ := obj["title"].(string)
		if strings.TrimSpace(title) == "" {
			return nil, fmt.Errorf("topic %d is missing a title", i)
		}
		topic := types.Topic{
			Title:    title,
			Summary:  getStringDefault(obj, "summary", ""),
			Keywords: getStringSlice(obj, "keywords"),
		}
		if v, ok := obj["start_time"].(float64); ok {
			start := int(v)
			topic.StartTime = &start
		}
		if v, ok := obj["end_time"].(float64); ok {
			end := int(v)
			topic.EndTime = &end
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

// handleRebuildIndex handles the rebuild_index tool invocation
func (s *Server) handleRebuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	// Single-video rebuild when a key is given
	if videoKey := getStringDefault(args, "video_key", ""); videoKey != "" {
		video, mcpErr := s.resolveVideo(ctx, args)
		if mcpErr != nil {
			return nil, mcpErr
		}
		if err := s.indexer.Rebuild(ctx, video.ID); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "rebuild failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		s.searcher.InvalidateCache()
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"rebuilt":   true,
			"video_key": video.VideoKey,
		})), nil
	}

	stats, err := s.indexer.RebuildAll(ctx, &indexer.Config{
		Workers: getIntDefault(args, "workers", 0),
	})
	if errors.Is(err, indexer.ErrRebuildInProgress) {
		return nil, newMCPError(ErrorCodeRebuildInProgress, "a full rebuild is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"rebuilt":         true,
		"videos_rebuilt":  stats.VideosRebuilt,
		"videos_failed":   stats.VideosFailed,
		"entries_written": stats.EntriesWritten,
		"duration_ms":     stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchVideos handles the search_videos tool invocation
func (s *Server) handleSearchVideos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	field, err := types.ParseSourceField(getStringDefault(args, "field", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid field", map[string]interface{}{
			"param":   "field",
			"allowed": []string{"all", "report", "transcript", "ocr", "topic"},
		})
	}
	sortBy, err := types.ParseSortBy(getStringDefault(args, "sort_by", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid sort_by", map[string]interface{}{
			"param":   "sort_by",
			"allowed": []string{"relevance", "date", "duration", "title"},
		})
	}

	minRelevance := getFloatDefault(args, "min_relevance", 0)
	if minRelevance < 0 || minRelevance > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_relevance must be between 0.0 and 1.0", map[string]interface{}{
			"param": "min_relevance",
			"value": minRelevance,
		})
	}

	response, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:        query,
		Tags:         getStringSlice(args, "tags"),
		Field:        field,
		SortBy:       sortBy,
		Limit:        limit,
		Offset:       getIntDefault(args, "offset", 0),
		MatchAll:     getBoolDefault(args, "match_all", false),
		Fuzzy:        getBoolDefault(args, "fuzzy", false),
		MinRelevance: minRelevance,
		UseCache:     true,
	})
	if err != nil {
		if errors.Is(err, types.ErrEmptyQuery) {
			return nil, newMCPError(ErrorCodeEmptyQuery, "query contains no keywords", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(response.Results))
	for _, r := range response.Results {
		result := map[string]interface{}{
			"rank":             r.Rank,
			"video_key":        r.VideoKey,
			"title":            r.Title,
			"relevance_score":  r.RelevanceScore,
			"coverage":         r.Coverage,
			"matched_keywords": r.MatchedKeywords,
			"source_field":     string(r.SourceField),
			"snippet":          r.Snippet,
			"tags":             r.Tags,
			"duration_seconds": r.DurationSeconds,
			"created_at":       r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if r.TimestampSeconds != nil {
			result["timestamp_seconds"] = *r.TimestampSeconds
		}
		results = append(results, result)
	}

	return mcp.NewToolResultText(formatJSONValue(map[string]interface{}{
		"results":       results,
		"total_matches": response.TotalMatches,
		"keywords":      response.Keywords,
		"duration_ms":   response.Duration.Milliseconds(),
		"cache_hit":     response.CacheHit,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"schema_version": status.SchemaVersion,
		"statistics": map[string]interface{}{
			"videos_count":    status.VideosCount,
			"artifacts_count": status.ArtifactsCount,
			"tags_count":      status.TagsCount,
			"topics_count":    status.TopicsCount,
			"entries_count":   status.EntriesCount,
			"index_size_mb":   fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_index_built":     status.Health.FTSIndexBuilt,
			"entries_consistent":  status.Health.EntriesConsistent,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListTags handles the list_tags tool invocation
func (s *Server) handleListTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	var tags []*types.Tag
	var err error
	if prefix := getStringDefault(args, "prefix", ""); prefix != "" {
		tags, err = s.storage.SuggestTags(ctx, prefix, limit)
	} else {
		tags, err = s.storage.ListPopularTags(ctx, limit)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list tags", map[string]interface{}{
			"error": err.Error(),
		})
	}

	list := make([]map[string]interface{}, 0, len(tags))
	for _, tag := range tags {
		entry := map[string]interface{}{
			"name":        tag.Name,
			"usage_count": tag.UsageCount,
		}
		if tag.Category != "" {
			entry["category"] = tag.Category
		}
		list = append(list, entry)
	}

	return mcp.NewToolResultText(formatJSONValue(map[string]interface{}{
		"tags": list,
	})), nil
}

// Helper functions

// resolveVideo looks up the video named by the video_key argument
func (s *Server) resolveVideo(ctx context.Context, args map[string]interface{}) (*types.Video, error) {
	videoKey, ok := args["video_key"].(string)
	if !ok || videoKey == "" {
		return nil, missingParam("video_key")
	}

	video, err := s.storage.GetVideoByKey(ctx, videoKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeVideoNotFound, "video not found", map[string]interface{}{
			"video_key": videoKey,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to look up video", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return video, nil
}

// missingParam builds the invalid-params error for a required argument
func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	return formatJSONValue(data)
}

// formatJSONValue formats any value as indented JSON
func formatJSONValue(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, dropping blanks
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
