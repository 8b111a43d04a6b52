package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catherina0/MemoryIndex/pkg/types"
)

func seedSearchFixtures(t *testing.T, storage *SQLiteStorage) (*types.Video, *types.Video) {
	t.Helper()
	ctx := context.Background()

	// The title must not carry an int-prefixed token: MATCH spans the title
	// column too, and the prefix-widening test asserts the transcript row
	// (print, hint) stays unmatched.
	intro := makeTestVideo(t, storage, "BV_intro", "personality types overview")
	require.NoError(t, storage.ReplaceIndexEntries(ctx, intro.ID, []types.IndexEntry{
		{SourceField: types.FieldReport, Title: intro.Title, Content: "An introduction to the INTP and INTJ personality types", Tags: "mbti psychology"},
		{SourceField: types.FieldTranscript, Title: intro.Title, Content: "today we print sixteen personality profiles and hint at cognitive functions"},
	}))

	cjk := makeTestVideo(t, storage, "BV_cjk", "认知功能解析")
	require.NoError(t, storage.ReplaceIndexEntries(ctx, cjk.ID, []types.IndexEntry{
		{SourceField: types.FieldReport, Title: cjk.Title, Content: "本视频讲解内倾直觉与外倾思维的配合", Tags: "心理学"},
	}))

	return intro, cjk
}

func TestSearchTokens(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	intro, _ := seedSearchFixtures(t, storage)

	hits, err := storage.SearchTokens(context.Background(), "personality", false, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	for _, hit := range hits {
		assert.Equal(t, intro.ID, hit.VideoID)
		assert.Greater(t, hit.Score, 0.0)
		assert.LessOrEqual(t, hit.Score, 1.0)
	}
}

func TestSearchTokens_PrefixWidening(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	seedSearchFixtures(t, storage)

	ctx := context.Background()

	// Exact token search misses: no standalone "int" token
	exact, err := storage.SearchTokens(ctx, "int", false, nil)
	require.NoError(t, err)
	assert.Empty(t, exact)

	// Prefix search matches tokens starting with "int" (INTP, INTJ,
	// introduction) but not tokens merely containing it (print, hint)
	widened, err := storage.SearchTokens(ctx, "int", true, nil)
	require.NoError(t, err)
	require.NotEmpty(t, widened)
	for _, hit := range widened {
		assert.NotEqual(t, types.FieldTranscript, hit.SourceField)
	}
}

func TestSearchTokens_FieldFilter(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	seedSearchFixtures(t, storage)

	hits, err := storage.SearchTokens(context.Background(), "personality", false, &SearchFilters{
		Field: types.FieldTranscript,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, types.FieldTranscript, hit.SourceField)
	}
}

func TestSearchTokens_TagFilter(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()
	intro, _ := seedSearchFixtures(t, storage)

	mbti, err := storage.GetOrCreateTag(ctx, "mbti", "")
	require.NoError(t, err)
	psych, err := storage.GetOrCreateTag(ctx, "psychology", "")
	require.NoError(t, err)
	require.NoError(t, storage.LinkTag(ctx, &types.VideoTag{VideoID: intro.ID, TagID: mbti.ID, Source: types.TagAuto}))
	require.NoError(t, storage.LinkTag(ctx, &types.VideoTag{VideoID: intro.ID, TagID: psych.ID, Source: types.TagAuto}))

	// Both tags present: hit survives
	hits, err := storage.SearchTokens(ctx, "personality", false, &SearchFilters{
		Tags: []string{"MBTI", "Psychology"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	// A tag the video lacks filters everything out
	hits, err = storage.SearchTokens(ctx, "personality", false, &SearchFilters{
		Tags: []string{"mbti", "chemistry"},
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchSubstring(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	_, cjk := seedSearchFixtures(t, storage)

	hits, err := storage.SearchSubstring(context.Background(), "内倾直觉", nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, cjk.ID, hits[0].VideoID)
	assert.Equal(t, substringBaseScore, hits[0].Score)
}

func TestSearchSubstring_NoMatch(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	seedSearchFixtures(t, storage)

	hits, err := storage.SearchSubstring(context.Background(), "量子力学", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchSubstring_EscapesWildcards(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	seedSearchFixtures(t, storage)

	// A bare % must not match everything
	hits, err := storage.SearchSubstring(context.Background(), "100%确定", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuildMatchExpr(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		prefix  bool
		want    string
	}{
		{"plain", "hello", false, `"hello"`},
		{"prefix", "int", true, `"int"*`},
		{"embedded quote", `say "hi"`, false, `"say ""hi"""`},
		{"operator injection", "OR", false, `"OR"`},
		{"whitespace only", "   ", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildMatchExpr(tt.keyword, tt.prefix))
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\path`, escapeLike(`c:\path`))
}
