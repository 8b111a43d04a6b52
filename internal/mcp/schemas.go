package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestReportTool returns the tool definition for ingest_report
func ingestReportTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_report",
		Description: "Store an analysis report for a video, extract its summary, tags, and topics, and index it for search. Creates the video record on first ingest.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"video_key": map[string]interface{}{
					"type":        "string",
					"description": "Stable external identifier (e.g. BV id, URL hash)",
				},
				"report": map[string]interface{}{
					"type":        "string",
					"description": "Full markdown analysis report text",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Video title, required when the video is not registered yet",
				},
				"source_type": map[string]interface{}{
					"type":        "string",
					"description": "Where the video came from",
					"enum":        []string{"bilibili", "youtube", "webpage", "local"},
					"default":     "webpage",
				},
				"source_url": map[string]interface{}{
					"type":        "string",
					"description": "Original URL of the video or page",
				},
				"duration_seconds": map[string]interface{}{
					"type":        "integer",
					"description": "Video duration in seconds",
					"minimum":     0,
				},
				"model_name": map[string]interface{}{
					"type":        "string",
					"description": "Model that produced the report",
				},
			},
			Required: []string{"video_key", "report"},
		},
	}
}

// recordTagsTool returns the tool definition for record_tags
func recordTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "record_tags",
		Description: "Attach tags to an indexed video",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"video_key": map[string]interface{}{
					"type":        "string",
					"description": "Stable external identifier of the video",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Tag names to attach",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Whether the tags were extracted automatically or added by hand",
					"enum":        []string{"auto", "manual"},
					"default":     "manual",
				},
				"confidence": map[string]interface{}{
					"type":        "number",
					"description": "Confidence score for the tag assignment (0.0-1.0)",
					"default":     1.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"video_key", "tags"},
		},
	}
}

// recordTopicsTool returns the tool definition for record_topics
func recordTopicsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "record_topics",
		Description: "Replace the topic list of an indexed video",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"video_key": map[string]interface{}{
					"type":        "string",
					"description": "Stable external identifier of the video",
				},
				"topics": map[string]interface{}{
					"type":        "array",
					"description": "Topics in presentation order",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"title": map[string]interface{}{
								"type":        "string",
								"description": "Topic heading",
							},
							"summary": map[string]interface{}{
								"type":        "string",
								"description": "Short topic summary",
							},
							"start_time": map[string]interface{}{
								"type":        "integer",
								"description": "Topic start in seconds from video start",
							},
							"end_time": map[string]interface{}{
								"type":        "integer",
								"description": "Topic end in seconds from video start",
							},
							"keywords": map[string]interface{}{
								"type": "array",
								"items": map[string]interface{}{
									"type": "string",
								},
							},
						},
						"required": []string{"title"},
					},
				},
			},
			Required: []string{"video_key", "topics"},
		},
	}
}

// rebuildIndexTool returns the tool definition for rebuild_index
func rebuildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rebuild_index",
		Description: "Rebuild search index entries from stored artifacts, topics, and tags. Rebuilds one video when video_key is given, otherwise everything.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"video_key": map[string]interface{}{
					"type":        "string",
					"description": "Limit the rebuild to this video",
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Concurrent workers for a full rebuild (default: CPU count)",
					"minimum":     1,
				},
			},
		},
	}
}

// searchVideosTool returns the tool definition for search_videos
func searchVideosTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_videos",
		Description: "Search the video knowledge index with keyword queries (CJK and Latin)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Whitespace-separated keywords",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to skip, for pagination",
					"default":     0,
					"minimum":     0,
				},
				"field": map[string]interface{}{
					"type":        "string",
					"description": "Restrict matching to one source field",
					"enum":        []string{"all", "report", "transcript", "ocr", "topic"},
					"default":     "all",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Only return videos carrying every listed tag",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"sort_by": map[string]interface{}{
					"type":        "string",
					"description": "Result ordering",
					"enum":        []string{"relevance", "date", "duration", "title"},
					"default":     "relevance",
				},
				"match_all": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, only return videos matching every keyword",
					"default":     false,
				},
				"fuzzy": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, widen keywords to prefix matches",
					"default":     false,
				},
				"min_relevance": map[string]interface{}{
					"type":        "number",
					"description": "Minimum relevance score threshold (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query index statistics and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// listTagsTool returns the tool definition for list_tags
func listTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_tags",
		Description: "List popular tags, or suggest tags matching a prefix",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "Return tags starting with this prefix instead of the most used ones",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of tags to return",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}
