package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/Catherina0/MemoryIndex/internal/indexer"
	"github.com/Catherina0/MemoryIndex/internal/searcher"
	"github.com/Catherina0/MemoryIndex/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "memoryindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBDir is the default location for the index database
	DefaultDBDir = "~/.memoryindex"
	// dbFileName is the single index database file
	dbFileName = "memoryindex.db"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
}

// NewServer creates a new MCP server instance. dbPath may be a directory
// (the database file is created inside it) or empty for the default under
// the user's home.
func NewServer(dbPath string) (*Server, error) {
	if dbPath == "" || dbPath == DefaultDBDir {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".memoryindex")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(dbPath, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return newServerWithStorage(store), nil
}

// newServerWithStorage wires the server around an existing storage handle.
// Split out so tests can run against an in-memory database.
func newServerWithStorage(store storage.Storage) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  store,
		indexer:  indexer.New(store),
		searcher: searcher.NewSearcher(store),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestReportTool(), s.handleIngestReport)
	s.mcp.AddTool(recordTagsTool(), s.handleRecordTags)
	s.mcp.AddTool(recordTopicsTool(), s.handleRecordTopics)
	s.mcp.AddTool(rebuildIndexTool(), s.handleRebuildIndex)
	s.mcp.AddTool(searchVideosTool(), s.handleSearchVideos)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(listTagsTool(), s.handleListTags)
}
