package storage

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Catherina0/MemoryIndex/pkg/types"
)

// substringBaseScore is the fixed relevance assigned to LIKE matches. FTS5
// ranking does not apply to substring scans, so every hit gets the score a
// rank-0 token hit normalizes to (1/(1+0/50) = 1.0), keeping both strategies
// on the same scale when they feed one aggregate. Ordering among substring
// hits falls back to recency.
const substringBaseScore = 1.0

const hitColumns = `
	e.id AS entry_id,
	e.video_id,
	v.video_key,
	v.title AS video_title,
	e.source_field,
	e.title AS entry_title,
	e.content,
	v.duration_seconds,
	v.created_at`

// searchTokens performs BM25 full-text search for a single keyword using FTS5.
// With prefix set, the keyword matches any token it starts (trailing-wildcard
// widening for Latin-script fuzzy queries).
func searchTokens(ctx context.Context, q querier, keyword string, prefix bool, filters *SearchFilters) ([]KeywordHit, error) {
	matchExpr := buildMatchExpr(keyword, prefix)
	if matchExpr == "" {
		return nil, fmt.Errorf("empty search keyword")
	}

	sqlQuery := `
		SELECT` + hitColumns + `,
			bm25(index_fts) AS score
		FROM index_fts
		INNER JOIN index_entries e ON index_fts.rowid = e.id
		INNER JOIN videos v ON e.video_id = v.id
		WHERE index_fts MATCH ?
	`
	args := []interface{}{matchExpr}

	// Apply filters
	sqlQuery, args = applyHitFilters(sqlQuery, args, filters)

	// Order by BM25 score (lower is better) and limit
	sqlQuery += " ORDER BY score LIMIT ?"
	args = append(args, hitLimit(filters))

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]KeywordHit, 0)
	for rows.Next() {
		hit, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		// Convert BM25 score (negative, lower is better) to positive
		// normalized score. BM25 scores are typically in range [-50, 0].
		hit.Score = 1.0 / (1.0 + math.Abs(hit.Score)/50.0)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// searchSubstring performs a LIKE substring scan for a single keyword. Used
// for CJK-dominant keywords where token matching would require segmentation.
func searchSubstring(ctx context.Context, q querier, keyword string, filters *SearchFilters) ([]KeywordHit, error) {
	if keyword == "" {
		return nil, fmt.Errorf("empty search keyword")
	}
	pattern := "%" + escapeLike(keyword) + "%"

	sqlQuery := `
		SELECT` + hitColumns + `,
			? AS score
		FROM index_entries e
		INNER JOIN videos v ON e.video_id = v.id
		WHERE (e.content LIKE ? ESCAPE '\' OR e.title LIKE ? ESCAPE '\' OR e.tags LIKE ? ESCAPE '\')
	`
	args := []interface{}{substringBaseScore, pattern, pattern, pattern}

	// Apply filters
	sqlQuery, args = applyHitFilters(sqlQuery, args, filters)

	// Substring hits all score the same, so order by recency
	sqlQuery += " ORDER BY v.created_at DESC LIMIT ?"
	args = append(args, hitLimit(filters))

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute substring search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]KeywordHit, 0)
	for rows.Next() {
		hit, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Helper functions

type hitScanner interface {
	Scan(dest ...interface{}) error
}

// scanHit reads one hit row in hitColumns order plus the score column
func scanHit(rows hitScanner) (KeywordHit, error) {
	var hit KeywordHit
	var field string
	var entryTitle *string
	err := rows.Scan(
		&hit.EntryID, &hit.VideoID, &hit.VideoKey, &hit.VideoTitle,
		&field, &entryTitle, &hit.Content,
		&hit.DurationSeconds, &hit.CreatedAt, &hit.Score,
	)
	if err != nil {
		return hit, fmt.Errorf("failed to scan hit: %w", err)
	}
	hit.SourceField = types.SourceField(field)
	if entryTitle != nil {
		hit.EntryTitle = *entryTitle
	}
	return hit, nil
}

// applyHitFilters adds WHERE clause filters shared by both search paths
func applyHitFilters(query string, args []interface{}, filters *SearchFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	if filters.Field != "" && filters.Field != types.FieldAll {
		query += " AND e.source_field = ?"
		args = append(args, string(filters.Field))
	}

	if len(filters.Tags) > 0 {
		// Videos must carry every requested tag
		query += ` AND e.video_id IN (
			SELECT vt.video_id FROM video_tags vt
			JOIN tags t ON vt.tag_id = t.id
			WHERE t.name COLLATE NOCASE IN (`
		for i, tag := range filters.Tags {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, tag)
		}
		query += `)
			GROUP BY vt.video_id
			HAVING COUNT(DISTINCT t.id) = ?
		)`
		args = append(args, len(filters.Tags))
	}

	return query, args
}

// hitLimit returns the per-keyword candidate cap
func hitLimit(filters *SearchFilters) int {
	if filters == nil || filters.Limit <= 0 {
		return 100
	}
	return filters.Limit
}

// buildMatchExpr builds a safe FTS5 MATCH expression for one keyword.
// The keyword is wrapped in a quoted phrase so FTS operators and punctuation
// inside it cannot be injected; prefix adds the trailing wildcard outside
// the quotes.
func buildMatchExpr(keyword string, prefix bool) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ""
	}
	expr := `"` + strings.ReplaceAll(keyword, `"`, `""`) + `"`
	if prefix {
		expr += "*"
	}
	return expr
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
// Queries using it must declare ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
