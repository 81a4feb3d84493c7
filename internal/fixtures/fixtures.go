// Package fixtures serves the canned backend payloads used in mock mode.
// Two evaluation fixtures sit behind an id allow-list; every other id gets
// the in-flight default with the requested id patched in, so the console can
// exercise the full poll/render path without a live backend.
package fixtures

import (
	"embed"
	"encoding/json"
	"fmt"

	apperrors "github.com/evaldeck/console/internal/errors"
)

//go:embed data/*.json
var dataFS embed.FS

const (
	completedFixtureID = 101
	legacyFixtureID    = 102
)

var evaluationFiles = map[int64]string{
	completedFixtureID: "data/evaluation_completed.json",
	legacyFixtureID:    "data/evaluation_legacy.json",
}

const (
	processingFile = "data/evaluation_processing.json"
	assistantFile  = "data/assistant.json"
)

// Store resolves fixture payloads from the embedded data files.
type Store struct{}

// NewStore returns a fixture store over the embedded payloads.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) read(name string) ([]byte, error) {
	data, err := dataFS.ReadFile(name)
	if err != nil {
		return nil, apperrors.NewFixtureNotFoundError(name)
	}

	return data, nil
}

// EvaluationPayload returns the canned evaluation body for id. Ids outside
// the allow-list get the processing fixture with the requested id substituted.
func (s *Store) EvaluationPayload(id int64) ([]byte, error) {
	if name, ok := evaluationFiles[id]; ok {
		return s.read(name)
	}

	data, err := s.read(processingFile)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperrors.NewFixtureNotFoundError(processingFile)
	}

	payload["id"] = id

	patched, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}

	return patched, nil
}

// ListPayload returns the canned evaluation list: the allow-listed fixtures
// as one JSON array.
func (s *Store) ListPayload() ([]byte, error) {
	completed, err := s.read(evaluationFiles[completedFixtureID])
	if err != nil {
		return nil, err
	}

	legacy, err := s.read(evaluationFiles[legacyFixtureID])
	if err != nil {
		return nil, err
	}

	items := []json.RawMessage{completed, legacy}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode fixture list: %w", err)
	}

	return data, nil
}

// AssistantPayload returns the canned assistant body regardless of id.
func (s *Store) AssistantPayload() ([]byte, error) {
	return s.read(assistantFile)
}
