//go:build purego || !sqlite_fts
// +build purego !sqlite_fts

package storage

// This file is compiled when building without CGO or with the purego tag.
// It uses a pure Go SQLite implementation with the built-in FTS5 module.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...
//
// The pure Go implementation provides:
//   - No C compiler required
//   - Cross-platform compilation
//   - Slower full-text queries on large indexes
//   - Suitable for development and personal-scale libraries
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
