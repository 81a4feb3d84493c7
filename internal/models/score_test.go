package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreObject_UnmarshalJSON(t *testing.T) {
	t.Run("both summary and individual keys select current variant", func(t *testing.T) {
		raw := `{
			"summary_scores": [{"name": "accuracy", "average": 0.9, "total_pairs": 10, "data_type": "NUMERIC"}],
			"individual_scores": [{"trace_id": "t-1", "question": "q", "trace_scores": [{"name": "accuracy", "value": 0.8, "data_type": "NUMERIC"}]}]
		}`

		var obj ScoreObject

		require.NoError(t, json.Unmarshal([]byte(raw), &obj))
		assert.Equal(t, ScoreVariantCurrent, obj.Variant)
		require.Len(t, obj.SummaryScores, 1)
		assert.Equal(t, "accuracy", obj.SummaryScores[0].Name)
		require.Len(t, obj.IndividualScores, 1)
		assert.Equal(t, "t-1", obj.IndividualScores[0].TraceID)
		assert.Nil(t, obj.CosineSimilarity)
	})

	t.Run("cosine_similarity key selects legacy variant", func(t *testing.T) {
		raw := `{"cosine_similarity": {"avg": 0.63, "std": 0.12, "total_pairs": 40, "scores": [{"trace_id": "t-1", "score": 0.7}]}}`

		var obj ScoreObject

		require.NoError(t, json.Unmarshal([]byte(raw), &obj))
		assert.Equal(t, ScoreVariantLegacy, obj.Variant)
		require.NotNil(t, obj.CosineSimilarity)
		assert.InDelta(t, 0.63, obj.CosineSimilarity.Average, 1e-9)
		assert.Equal(t, 40, obj.CosineSimilarity.TotalPairs)
		require.Len(t, obj.CosineSimilarity.Scores, 1)
	})

	t.Run("object matching neither shape is unknown, not an error", func(t *testing.T) {
		var obj ScoreObject

		require.NoError(t, json.Unmarshal([]byte(`{"something_else": true}`), &obj))
		assert.Equal(t, ScoreVariantUnknown, obj.Variant)
	})

	t.Run("summary_scores without individual_scores is unknown", func(t *testing.T) {
		var obj ScoreObject

		require.NoError(t, json.Unmarshal([]byte(`{"summary_scores": []}`), &obj))
		assert.Equal(t, ScoreVariantUnknown, obj.Variant)
	})
}

func TestParseScoreObject(t *testing.T) {
	t.Run("nil and null yield no score object", func(t *testing.T) {
		assert.Nil(t, ParseScoreObject(nil))
		assert.Nil(t, ParseScoreObject(json.RawMessage("null")))
	})

	t.Run("bare number yields no score object", func(t *testing.T) {
		assert.Nil(t, ParseScoreObject(json.RawMessage("0.82")))
	})

	t.Run("malformed JSON yields no score object", func(t *testing.T) {
		assert.Nil(t, ParseScoreObject(json.RawMessage(`{"cosine_similarity": `)))
	})
}

func TestScoreValue(t *testing.T) {
	t.Run("number", func(t *testing.T) {
		var v ScoreValue

		require.NoError(t, json.Unmarshal([]byte("0.75"), &v))
		require.NotNil(t, v.Number)
		assert.InDelta(t, 0.75, *v.Number, 1e-9)
		assert.Nil(t, v.Text)
	})

	t.Run("string", func(t *testing.T) {
		var v ScoreValue

		require.NoError(t, json.Unmarshal([]byte(`"CORRECT"`), &v))
		require.NotNil(t, v.Text)
		assert.Equal(t, "CORRECT", *v.Text)
		assert.Nil(t, v.Number)
	})

	t.Run("round trip preserves shape", func(t *testing.T) {
		var v ScoreValue

		require.NoError(t, json.Unmarshal([]byte(`"PARTIAL"`), &v))

		out, err := json.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, `"PARTIAL"`, string(out))
	})
}

func TestEvaluationJob_ScoreResolution(t *testing.T) {
	t.Run("scores preferred over score when both present", func(t *testing.T) {
		job := EvaluationJob{
			RawScore:  json.RawMessage(`{"cosine_similarity": {"avg": 0.5, "std": 0.1, "total_pairs": 2}}`),
			RawScores: json.RawMessage(`{"summary_scores": [], "individual_scores": []}`),
		}

		obj := job.ScoreObject()
		require.NotNil(t, obj)
		assert.Equal(t, ScoreVariantCurrent, obj.Variant)
	})

	t.Run("falls back to score when scores absent", func(t *testing.T) {
		job := EvaluationJob{
			RawScore: json.RawMessage(`{"cosine_similarity": {"avg": 0.5, "std": 0.1, "total_pairs": 2}}`),
		}

		obj := job.ScoreObject()
		require.NotNil(t, obj)
		assert.Equal(t, ScoreVariantLegacy, obj.Variant)
	})

	t.Run("absence of both yields nil", func(t *testing.T) {
		assert.Nil(t, (&EvaluationJob{}).ScoreObject())
	})

	t.Run("aggregate fraction from bare number", func(t *testing.T) {
		job := EvaluationJob{RawScore: json.RawMessage("0.82")}

		frac := job.AggregateFraction()
		require.NotNil(t, frac)
		assert.InDelta(t, 0.82, *frac, 1e-9)
	})

	t.Run("aggregate fraction nil for object score", func(t *testing.T) {
		job := EvaluationJob{RawScore: json.RawMessage(`{"cosine_similarity": {"avg": 0.5}}`)}
		assert.Nil(t, job.AggregateFraction())
	})
}

func TestJobStatusStates(t *testing.T) {
	t.Run("in-flight states", func(t *testing.T) {
		for _, s := range []JobStatus{"pending", "queued", "processing", "PROCESSING", "Queued"} {
			assert.True(t, s.IsInFlight(), "status %q", s)
			assert.False(t, s.IsTerminal(), "status %q", s)
		}
	})

	t.Run("terminal states", func(t *testing.T) {
		assert.True(t, JobStatus("completed").IsSuccess())
		assert.True(t, JobStatus("SUCCESS").IsSuccess())
		assert.True(t, JobStatus("failed").IsFailure())
		assert.True(t, JobStatus("Error").IsFailure())
	})

	t.Run("unknown status is neither in-flight nor terminal", func(t *testing.T) {
		s := JobStatus("paused")
		assert.False(t, s.IsInFlight())
		assert.False(t, s.IsTerminal())
	})

	t.Run("any in flight", func(t *testing.T) {
		jobs := []EvaluationJob{
			{ID: 1, Status: "completed"},
			{ID: 2, Status: "processing"},
		}
		assert.True(t, AnyInFlight(jobs))

		jobs[1].Status = "failed"
		assert.False(t, AnyInFlight(jobs))
		assert.False(t, AnyInFlight(nil))
	})
}
