package score

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evaldeck/console/internal/models"
)

func parseScore(t *testing.T, raw string) *models.ScoreObject {
	t.Helper()

	obj := models.ParseScoreObject(json.RawMessage(raw))
	require.NotNil(t, obj)

	return obj
}

func TestNormalize_Current(t *testing.T) {
	raw := `{
		"summary_scores": [
			{"name": "accuracy", "average": 0.82, "std_dev": 0.1, "total_pairs": 3, "data_type": "NUMERIC"},
			{"name": "verdict", "total_pairs": 3, "data_type": "CATEGORICAL", "value_distribution": {"CORRECT": 2, "INCORRECT": 1}}
		],
		"individual_scores": [
			{"trace_id": "t-1", "question": "q1", "answer": "a1", "trace_scores": [
				{"name": "accuracy", "value": 0.9, "data_type": "NUMERIC"},
				{"name": "verdict", "value": "CORRECT", "data_type": "CATEGORICAL"}
			]},
			{"trace_id": "t-2", "trace_scores": [
				{"name": "accuracy", "value": 0.4, "data_type": "NUMERIC"},
				{"name": "novelty", "value": 0.99, "data_type": "NUMERIC"}
			]}
		]
	}`

	view := Normalize(parseScore(t, raw))

	assert.True(t, view.Available)
	require.Len(t, view.Summary, 2)
	assert.Equal(t, "accuracy", view.Summary[0].Name)
	require.Len(t, view.Individual, 2)

	// Columns come from the first individual record only; "novelty" from the
	// second record is not merged in.
	assert.Equal(t, []string{"accuracy", "verdict"}, view.MetricColumns)
}

func TestNormalize_Legacy(t *testing.T) {
	raw := `{"cosine_similarity": {"avg": 0.63, "std": 0.12, "total_pairs": 40, "scores": [{"trace_id": "t-1", "score": 0.7}]}}`

	view := Normalize(parseScore(t, raw))

	assert.True(t, view.Available)
	require.Len(t, view.Summary, 1)
	assert.Equal(t, "cosine_similarity", view.Summary[0].Name)
	require.NotNil(t, view.Summary[0].Average)
	assert.InDelta(t, 0.63, *view.Summary[0].Average, 1e-9)
	require.NotNil(t, view.Summary[0].StdDev)
	assert.InDelta(t, 0.12, *view.Summary[0].StdDev, 1e-9)
	assert.Equal(t, 40, view.Summary[0].TotalPairs)
	assert.Equal(t, models.ScoreDataTypeNumeric, view.Summary[0].DataType)

	// Legacy payloads have no per-item question/answer context, so the view
	// carries no individual detail and no metric columns.
	assert.Empty(t, view.Individual)
	assert.Empty(t, view.MetricColumns)
}

func TestNormalize_Unavailable(t *testing.T) {
	t.Run("nil score object", func(t *testing.T) {
		view := Normalize(nil)
		assert.False(t, view.Available)
	})

	t.Run("unknown variant", func(t *testing.T) {
		view := Normalize(parseScore(t, `{"something": 1}`))
		assert.False(t, view.Available)
	})

	t.Run("current variant with empty individual_scores", func(t *testing.T) {
		view := Normalize(parseScore(t, `{"summary_scores": [{"name": "accuracy", "total_pairs": 0, "data_type": "NUMERIC"}], "individual_scores": []}`))
		assert.False(t, view.Available)
	})
}
