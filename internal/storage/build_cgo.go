//go:build sqlite_fts
// +build sqlite_fts

package storage

// This file is compiled when building with CGO and the sqlite_fts tag.
// It uses the C SQLite library for faster FTS5 queries.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_fts,fts5" ./...
//
// The CGO build provides:
//   - Native FTS5 tokenization and ranking
//   - Fast C implementation for index scans
//   - Recommended for large libraries
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
