package types

import "fmt"

// SourceField identifies which searchable projection an index entry (or a
// search hit) came from. FieldAll is only meaningful as a search filter and
// never appears on a stored entry.
type SourceField string

const (
	FieldAll        SourceField = "all"
	FieldReport     SourceField = "report"
	FieldTranscript SourceField = "transcript"
	FieldOCR        SourceField = "ocr"
	FieldTopic      SourceField = "topic"
)

// ParseSourceField validates a field name from an external caller. The empty
// string means "no filter" and maps to FieldAll.
func ParseSourceField(s string) (SourceField, error) {
	switch SourceField(s) {
	case FieldAll, FieldReport, FieldTranscript, FieldOCR, FieldTopic:
		return SourceField(s), nil
	case "":
		return FieldAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// StorableFields lists the fields an index entry may be stored under, in the
// order rebuild writes them.
func StorableFields() []SourceField {
	return []SourceField{FieldReport, FieldTranscript, FieldOCR, FieldTopic}
}

// SortBy selects the ordering of a search result set.
type SortBy string

const (
	SortRelevance SortBy = "relevance"
	SortDate      SortBy = "date"
	SortDuration  SortBy = "duration"
	SortTitle     SortBy = "title"
)

// ParseSortBy validates a sort order from an external caller. The empty
// string maps to SortRelevance.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(s) {
	case SortRelevance, SortDate, SortDuration, SortTitle:
		return SortBy(s), nil
	case "":
		return SortRelevance, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortBy, s)
}
