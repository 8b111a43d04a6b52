package searcher

import (
	"strings"
	"unicode/utf8"

	"github.com/Catherina0/MemoryIndex/pkg/types"
)

// Strategy defines how a single keyword is matched against the index
type Strategy string

const (
	StrategyToken     Strategy = "token"     // FTS MATCH with bm25 ranking
	StrategySubstring Strategy = "substring" // LIKE scan, for CJK keywords
)

// cjkSubstringMaxRunes bounds the substring strategy: a long keyword that
// merely contains a CJK rune is still better served by tokenization
const cjkSubstringMaxRunes = 20

// plannedKeyword pairs a keyword with its chosen match strategy
type plannedKeyword struct {
	text     string
	strategy Strategy
}

// planQuery splits a query on whitespace and picks a strategy per keyword.
// Returns types.ErrEmptyQuery when nothing remains after splitting.
func planQuery(query string) ([]plannedKeyword, error) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil, types.ErrEmptyQuery
	}

	planned := make([]plannedKeyword, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, kw := range fields {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		planned = append(planned, plannedKeyword{
			text:     kw,
			strategy: keywordStrategy(kw),
		})
	}
	return planned, nil
}

// keywordStrategy picks substring matching for short CJK keywords, where the
// unicode61 tokenizer treats every rune as its own token and MATCH cannot
// find multi-rune words, and token matching for everything else
func keywordStrategy(kw string) Strategy {
	if utf8.RuneCountInString(kw) < cjkSubstringMaxRunes && containsCJK(kw) {
		return StrategySubstring
	}
	return StrategyToken
}

// containsCJK reports whether the keyword contains a rune in the CJK Unified
// Ideographs block
func containsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
