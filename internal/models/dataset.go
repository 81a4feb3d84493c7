package models

import (
	"strings"
	"time"
)

// Dataset is a locally stored QnA dataset. The full raw file content is kept
// so the console can upload it to the backend later without re-reading the
// original file.
type Dataset struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	RowCount   int       `json:"row_count"`
	UploadedAt time.Time `json:"uploaded_at"`
	Content    string    `json:"content"`

	// DuplicationFactor repeats each row when the run is created. Values <= 1
	// mean "no duplication" and are omitted from the stored record.
	DuplicationFactor *int `json:"duplication_factor,omitempty"`
}

// CountRows derives the data row count of newline-delimited content: the line
// count minus the header row, floored at zero. An empty file has zero lines
// and therefore zero rows. The derivation is a pure function of the content.
func CountRows(content string) int {
	if content == "" {
		return 0
	}

	return strings.Count(content, "\n")
}

// NormalizeDuplicationFactor maps factors <= 1 to nil so "no duplication" is
// stored as absence, not as 0 or 1.
func NormalizeDuplicationFactor(factor *int) *int {
	if factor == nil || *factor <= 1 {
		return nil
	}

	return factor
}

// APIKey is a saved backend credential in the console's local key store.
type APIKey struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}
