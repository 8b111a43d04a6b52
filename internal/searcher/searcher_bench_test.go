package searcher

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Catherina0/MemoryIndex/internal/storage"
	"github.com/Catherina0/MemoryIndex/pkg/types"
)

func setupBenchIndex(b *testing.B, videos int) *Searcher {
	b.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	filler := strings.Repeat("认知功能与决策方式的讨论。", 20)
	for i := 0; i < videos; i++ {
		video := &types.Video{
			VideoKey:        fmt.Sprintf("BV%06d", i),
			Title:           fmt.Sprintf("测试视频 %d", i),
			SourceType:      types.SourceBilibili,
			DurationSeconds: 600 + i,
		}
		if err := store.CreateVideo(ctx, video); err != nil {
			b.Fatal(err)
		}
		entries := []types.IndexEntry{{
			SourceField: types.FieldReport,
			Title:       video.Title,
			Content:     fmt.Sprintf("Report %d about INTP personalities. %s", i, filler),
		}}
		if err := store.ReplaceIndexEntries(ctx, video.ID, entries); err != nil {
			b.Fatal(err)
		}
	}
	return NewSearcher(store)
}

func BenchmarkSearch_Token(b *testing.B) {
	srch := setupBenchIndex(b, 200)
	req := SearchRequest{Query: "INTP"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := srch.Search(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearch_Substring(b *testing.B) {
	srch := setupBenchIndex(b, 200)
	req := SearchRequest{Query: "认知功能"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := srch.Search(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearch_Cached(b *testing.B) {
	srch := setupBenchIndex(b, 200)
	req := SearchRequest{Query: "INTP 认知功能", UseCache: true}

	// Warm the cache
	if _, err := srch.Search(context.Background(), req); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := srch.Search(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
