package models

import (
	"bytes"
	"encoding/json"
)

// ScoreDataType tags a metric as numeric or categorical.
type ScoreDataType string

const (
	ScoreDataTypeNumeric     ScoreDataType = "NUMERIC"
	ScoreDataTypeCategorical ScoreDataType = "CATEGORICAL"
)

// ScoreVariant identifies which shape a score payload arrived in.
type ScoreVariant string

const (
	// ScoreVariantUnknown means the payload matched neither known shape.
	ScoreVariantUnknown ScoreVariant = "unknown"
	// ScoreVariantLegacy is the single-metric cosine_similarity shape.
	ScoreVariantLegacy ScoreVariant = "legacy"
	// ScoreVariantCurrent is the multi-metric shape with per-item detail.
	ScoreVariantCurrent ScoreVariant = "current"
)

// SummaryScore is an aggregate metric across all traces in a job.
type SummaryScore struct {
	Name              string         `json:"name"`
	Average           *float64       `json:"average,omitempty"`
	StdDev            *float64       `json:"std_dev,omitempty"`
	TotalPairs        int            `json:"total_pairs"`
	DataType          ScoreDataType  `json:"data_type"`
	ValueDistribution map[string]int `json:"value_distribution,omitempty"`
}

// ScoreValue holds a trace score value. The backend sends a JSON number for
// NUMERIC metrics and a JSON string for CATEGORICAL metrics.
type ScoreValue struct {
	Number *float64
	Text   *string
}

// UnmarshalJSON accepts either a number or a string.
func (v *ScoreValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}

		v.Text = &s
		v.Number = nil

		return nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return err
	}

	v.Number = &f
	v.Text = nil

	return nil
}

// MarshalJSON writes the value back in the shape it arrived in.
func (v ScoreValue) MarshalJSON() ([]byte, error) {
	if v.Text != nil {
		return json.Marshal(*v.Text)
	}

	if v.Number != nil {
		return json.Marshal(*v.Number)
	}

	return []byte("null"), nil
}

// TraceScore is one named metric value for one evaluated example.
type TraceScore struct {
	Name     string        `json:"name"`
	Value    ScoreValue    `json:"value"`
	DataType ScoreDataType `json:"data_type"`
	Comment  *string       `json:"comment,omitempty"`
}

// ScoreMetadata carries the ground-truth context attached to an individual score.
type ScoreMetadata struct {
	GroundTruth *string `json:"ground_truth,omitempty"`
	ItemID      *string `json:"item_id,omitempty"`
	ResponseID  *string `json:"response_id,omitempty"`
}

// IndividualScore is one evaluated example: the original question/answer pair
// plus its per-metric trace scores.
type IndividualScore struct {
	TraceID     string         `json:"trace_id"`
	Question    *string        `json:"question,omitempty"`
	Answer      *string        `json:"answer,omitempty"`
	Metadata    *ScoreMetadata `json:"metadata,omitempty"`
	TraceScores []TraceScore   `json:"trace_scores"`
}

// LegacyPairScore is a per-item score in the legacy cosine_similarity shape.
// Legacy payloads carry values only, no question/answer/ground-truth context.
type LegacyPairScore struct {
	TraceID string  `json:"trace_id"`
	Score   float64 `json:"score"`
}

// LegacyCosineScore is the legacy single-metric aggregate.
type LegacyCosineScore struct {
	Average    float64           `json:"avg"`
	StdDev     float64           `json:"std"`
	TotalPairs int               `json:"total_pairs"`
	Scores     []LegacyPairScore `json:"scores,omitempty"`
}

// ScoreObject is the tagged union of the two score payload shapes the backend
// has produced over time. The variant is discriminated structurally exactly
// once, here at the JSON boundary: a payload with both summary_scores and
// individual_scores keys is current, one with a cosine_similarity key is
// legacy, anything else is unknown. Consumers switch on Variant and never
// re-probe the raw JSON.
type ScoreObject struct {
	Variant ScoreVariant

	// CosineSimilarity is set for the legacy variant.
	CosineSimilarity *LegacyCosineScore

	// SummaryScores and IndividualScores are set for the current variant.
	SummaryScores    []SummaryScore
	IndividualScores []IndividualScore
}

type currentScorePayload struct {
	SummaryScores    []SummaryScore    `json:"summary_scores"`
	IndividualScores []IndividualScore `json:"individual_scores"`
}

type legacyScorePayload struct {
	CosineSimilarity LegacyCosineScore `json:"cosine_similarity"`
}

// UnmarshalJSON discriminates the variant by key presence. An object that
// matches neither shape decodes to the unknown variant rather than failing,
// so a malformed payload degrades to the "score unavailable" rendering.
func (s *ScoreObject) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	_, hasSummary := probe["summary_scores"]
	_, hasIndividual := probe["individual_scores"]

	if hasSummary && hasIndividual {
		var payload currentScorePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}

		s.Variant = ScoreVariantCurrent
		s.SummaryScores = payload.SummaryScores
		s.IndividualScores = payload.IndividualScores
		s.CosineSimilarity = nil

		return nil
	}

	if _, hasLegacy := probe["cosine_similarity"]; hasLegacy {
		var payload legacyScorePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}

		s.Variant = ScoreVariantLegacy
		s.CosineSimilarity = &payload.CosineSimilarity
		s.SummaryScores = nil
		s.IndividualScores = nil

		return nil
	}

	s.Variant = ScoreVariantUnknown
	s.CosineSimilarity = nil
	s.SummaryScores = nil
	s.IndividualScores = nil

	return nil
}

// MarshalJSON writes the union back in its wire shape.
func (s ScoreObject) MarshalJSON() ([]byte, error) {
	switch s.Variant {
	case ScoreVariantCurrent:
		return json.Marshal(currentScorePayload{
			SummaryScores:    s.SummaryScores,
			IndividualScores: s.IndividualScores,
		})
	case ScoreVariantLegacy:
		legacy := LegacyCosineScore{}
		if s.CosineSimilarity != nil {
			legacy = *s.CosineSimilarity
		}

		return json.Marshal(legacyScorePayload{CosineSimilarity: legacy})
	default:
		return []byte("{}"), nil
	}
}

// ParseScoreObject decodes raw JSON into a ScoreObject. It returns nil for
// absent payloads (nil, "null") and for payloads that are not JSON objects
// (e.g. a bare aggregate number in the score field); neither is an error.
func ParseScoreObject(raw json.RawMessage) *ScoreObject {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] != '{' {
		return nil
	}

	var obj ScoreObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil
	}

	return &obj
}
