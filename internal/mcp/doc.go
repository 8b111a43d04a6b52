// Package mcp implements the Model Context Protocol (MCP) server for
// MemoryIndex.
//
// The MCP server exposes the knowledge index to AI assistants:
//   - ingest_report: Store an analysis report, extract tags/topics, index it
//   - record_tags: Attach tags to a video
//   - record_topics: Replace a video's topic list
//   - rebuild_index: Reproject index entries from stored data
//   - search_videos: Keyword search across the index
//   - get_status: Index statistics and health
//   - list_tags: Popular tags or prefix suggestions
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output,
// making it simple to integrate with any MCP-compatible client.
//
// # Tool: ingest_report
//
// Store and index an analysis report. The video record is created on first
// ingest:
//
//	Request:
//	{
//	  "name": "ingest_report",
//	  "arguments": {
//	    "video_key": "BV1xx411c7mD",
//	    "title": "人格类型解析",
//	    "source_type": "bilibili",
//	    "report": "# 人格类型解析\n\n## 摘要\n..."
//	  }
//	}
//
//	Response:
//	{
//	  "video_id": 1,
//	  "video_key": "BV1xx411c7mD",
//	  "summary": "本期视频介绍...",
//	  "tags": ["MBTI", "INTP"],
//	  "topics": 4
//	}
//
// Extraction never fails the ingest; sections the report is missing are
// reported back in a "warnings" array.
//
// # Tool: search_videos
//
// Search with CJK or Latin keywords:
//
//	Request:
//	{
//	  "name": "search_videos",
//	  "arguments": {
//	    "query": "INTP 认知功能",
//	    "limit": 10,
//	    "match_all": false,
//	    "fuzzy": false
//	  }
//	}
//
// Results are grouped by video, ranked by coverage-weighted relevance, and
// carry a snippet, tag names, and (for transcript/ocr hits) the timeline
// timestamp.
//
// # Error Handling
//
// Tool failures map to JSON-RPC error codes: -32602 invalid params, -32001
// unknown video, -32002 rebuild already running, -32004 empty query, -32603
// anything internal. Every index write invalidates the search cache.
package mcp
