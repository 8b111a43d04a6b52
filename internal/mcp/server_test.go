package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catherina0/MemoryIndex/internal/storage"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newServerWithStorage(store)
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultJSON decodes the text payload of a tool result
func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

const toolTestReport = `# 深度学习入门

## 摘要

本期讲解神经网络的基础概念。

## 标签

深度学习, 神经网络, 入门

## 什么是神经网络 [00:30 - 05:00]

从感知机讲起。
`

func ingestTestVideo(t *testing.T, s *Server) {
	t.Helper()
	_, err := s.handleIngestReport(context.Background(), toolRequest(map[string]interface{}{
		"video_key":        "BV1dl4y1c7mE",
		"title":            "深度学习入门",
		"source_type":      "bilibili",
		"duration_seconds": float64(930),
		"report":           toolTestReport,
		"model_name":       "gpt-4o",
	}))
	require.NoError(t, err)
}

func TestIngestReportTool(t *testing.T) {
	s := setupServer(t)

	result, err := s.handleIngestReport(context.Background(), toolRequest(map[string]interface{}{
		"video_key": "BV1dl4y1c7mE",
		"title":     "深度学习入门",
		"report":    toolTestReport,
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, "BV1dl4y1c7mE", response["video_key"])
	assert.Equal(t, float64(1), response["topics"])
	assert.Len(t, response["tags"], 3)
	assert.NotContains(t, response, "warnings")

	// Re-ingesting the same key must not create a second video
	_, err = s.handleIngestReport(context.Background(), toolRequest(map[string]interface{}{
		"video_key": "BV1dl4y1c7mE",
		"report":    toolTestReport,
	}))
	require.NoError(t, err)

	status, err := s.handleGetStatus(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	stats := resultJSON(t, status)["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["videos_count"])
}

func TestIngestReportTool_InvalidParams(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	_, err := s.handleIngestReport(ctx, toolRequest(map[string]interface{}{
		"report": toolTestReport,
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleIngestReport(ctx, toolRequest(map[string]interface{}{
		"video_key": "BVx",
		"report":    "   ",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestRecordTagsTool(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()
	ingestTestVideo(t, s)

	result, err := s.handleRecordTags(ctx, toolRequest(map[string]interface{}{
		"video_key": "BV1dl4y1c7mE",
		"tags":      []interface{}{"收藏", "教程"},
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(2), resultJSON(t, result)["tags_recorded"])

	// Unknown video
	_, err = s.handleRecordTags(ctx, toolRequest(map[string]interface{}{
		"video_key": "missing",
		"tags":      []interface{}{"x"},
	}))
	requireMCPError(t, err, ErrorCodeVideoNotFound)

	// Bad source value
	_, err = s.handleRecordTags(ctx, toolRequest(map[string]interface{}{
		"video_key": "BV1dl4y1c7mE",
		"tags":      []interface{}{"x"},
		"source":    "guessed",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestRecordTopicsTool(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()
	ingestTestVideo(t, s)

	result, err := s.handleRecordTopics(ctx, toolRequest(map[string]interface{}{
		"video_key": "BV1dl4y1c7mE",
		"topics": []interface{}{
			map[string]interface{}{
				"title":      "反向传播",
				"summary":    "梯度如何流动",
				"start_time": float64(300),
				"end_time":   float64(600),
			},
			map[string]interface{}{
				"title": "总结",
			},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(2), resultJSON(t, result)["topics_recorded"])

	// Topic without a title is rejected
	_, err = s.handleRecordTopics(ctx, toolRequest(map[string]interface{}{
		"video_key": "BV1dl4y1c7mE",
		"topics": []interface{}{
			map[string]interface{}{"summary": "no title"},
		},
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestRebuildIndexTool(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()
	ingestTestVideo(t, s)

	// Single video
	result, err := s.handleRebuildIndex(ctx, toolRequest(map[string]interface{}{
		"video_key": "BV1dl4y1c7mE",
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["rebuilt"])

	// Full rebuild
	result, err = s.handleRebuildIndex(ctx, toolRequest(nil))
	require.NoError(t, err)
	response := resultJSON(t, result)
	assert.Equal(t, float64(1), response["videos_rebuilt"])
	assert.Equal(t, float64(0), response["videos_failed"])
}

func TestSearchVideosTool(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()
	ingestTestVideo(t, s)

	result, err := s.handleSearchVideos(ctx, toolRequest(map[string]interface{}{
		"query": "神经网络",
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, float64(1), response["total_matches"])
	results := response["results"].([]interface{})
	require.Len(t, results, 1)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "BV1dl4y1c7mE", first["video_key"])
	assert.Equal(t, float64(1), first["rank"])
	assert.Contains(t, first["snippet"], "神经网络")
	assert.NotEmpty(t, first["matched_keywords"])
}

func TestSearchVideosTool_InvalidParams(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	_, err := s.handleSearchVideos(ctx, toolRequest(map[string]interface{}{
		"query": "  ",
	}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)

	_, err = s.handleSearchVideos(ctx, toolRequest(map[string]interface{}{
		"query": "x",
		"field": "thumbnails",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchVideos(ctx, toolRequest(map[string]interface{}{
		"query": "x",
		"limit": float64(500),
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestGetStatusTool(t *testing.T) {
	s := setupServer(t)
	ingestTestVideo(t, s)

	result, err := s.handleGetStatus(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.NotEmpty(t, response["schema_version"])

	health := response["health"].(map[string]interface{})
	assert.Equal(t, true, health["database_accessible"])
	assert.Equal(t, true, health["fts_index_built"])
}

func TestListTagsTool(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()
	ingestTestVideo(t, s)

	result, err := s.handleListTags(ctx, toolRequest(nil))
	require.NoError(t, err)
	tags := resultJSON(t, result)["tags"].([]interface{})
	assert.Len(t, tags, 3)

	result, err = s.handleListTags(ctx, toolRequest(map[string]interface{}{
		"prefix": "深度",
	}))
	require.NoError(t, err)
	tags = resultJSON(t, result)["tags"].([]interface{})
	require.Len(t, tags, 1)
	assert.Equal(t, "深度学习", tags[0].(map[string]interface{})["name"])
}

func TestServer_Initialization(t *testing.T) {
	t.Run("custom path creates directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		server, err := NewServer(tmpDir)
		require.NoError(t, err)
		defer func() { _ = server.storage.Close() }()

		assert.NotNil(t, server.mcp)
		assert.NotNil(t, server.storage)
		assert.NotNil(t, server.indexer)
		assert.NotNil(t, server.searcher)
	})
}
