package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Catherina0/MemoryIndex/internal/mcp"
	"github.com/Catherina0/MemoryIndex/internal/storage"
)

// Set at build time via -ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and build information")
	dbPath := flag.String("db", "", "database directory (overrides MEMORYINDEX_DB_PATH)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("memoryindex %s (built %s)\n", version, buildTime)
		fmt.Printf("  build mode: %s\n", storage.BuildMode)
		fmt.Printf("  sqlite driver: %s\n", storage.DriverName)
		return
	}

	// stdout carries the MCP protocol, so all logging goes to stderr.
	log.SetOutput(os.Stderr)

	if err := run(*dbPath); err != nil {
		log.Fatalf("memoryindex: %v", err)
	}
}

func run(dbPath string) error {
	if dbPath == "" {
		dbPath = os.Getenv("MEMORYINDEX_DB_PATH")
	}
	if dbPath == "" {
		dbPath = mcp.DefaultDBDir
	}

	log.Printf("memoryindex %s starting (driver %s, %s build)",
		version, storage.DriverName, storage.BuildMode)
	log.Printf("index directory: %s", dbPath)

	srv, err := mcp.NewServer(dbPath)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		log.Println("serving MCP on stdio")
		done <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigs:
		log.Printf("caught %v, shutting down", sig)
		cancel()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	log.Println("stopped")
	return nil
}
