package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evaldeck/console/internal/models"
)

func TestNumericSeverity(t *testing.T) {
	// Boundary values belong to the higher bucket.
	assert.Equal(t, SeverityGood, NumericSeverity(0.7))
	assert.Equal(t, SeverityGood, NumericSeverity(0.95))
	assert.Equal(t, SeverityWarning, NumericSeverity(0.5))
	assert.Equal(t, SeverityWarning, NumericSeverity(0.69))
	assert.Equal(t, SeverityBad, NumericSeverity(0.4999))
	assert.Equal(t, SeverityBad, NumericSeverity(0))
}

func TestCategoricalSeverity(t *testing.T) {
	assert.Equal(t, SeverityGood, CategoricalSeverity("CORRECT"))
	assert.Equal(t, SeverityWarning, CategoricalSeverity("PARTIAL"))
	assert.Equal(t, SeverityBad, CategoricalSeverity("INCORRECT"))
	assert.Equal(t, SeverityNeutral, CategoricalSeverity("correct"))
	assert.Equal(t, SeverityNeutral, CategoricalSeverity("UNSURE"))
}

func TestTruncate(t *testing.T) {
	t.Run("151 characters truncate to first 150 plus ellipsis", func(t *testing.T) {
		s := strings.Repeat("x", 151)

		got := Truncate(s, TextTruncateLimit)
		assert.Equal(t, strings.Repeat("x", 150)+"...", got)
	})

	t.Run("exactly 150 characters do not truncate", func(t *testing.T) {
		s := strings.Repeat("x", 150)
		assert.Equal(t, s, Truncate(s, TextTruncateLimit))
	})

	t.Run("cut is at the character boundary for multi-byte text", func(t *testing.T) {
		s := strings.Repeat("é", 60)

		got := Truncate(s, CommentTruncateLimit)
		assert.Equal(t, strings.Repeat("é", 50)+"...", got)
	})
}

func TestFormatJobScore(t *testing.T) {
	assert.Equal(t, "82.0%", FormatJobScore(0.82))
	assert.Equal(t, "100.0%", FormatJobScore(1))
	assert.Equal(t, "7.5%", FormatJobScore(0.075))
}

func TestCellForMetric(t *testing.T) {
	num := 0.73
	verdict := "PARTIAL"
	comment := strings.Repeat("c", 60)
	row := models.IndividualScore{
		TraceID: "t-1",
		TraceScores: []models.TraceScore{
			{Name: "accuracy", Value: models.ScoreValue{Number: &num}, DataType: models.ScoreDataTypeNumeric},
			{Name: "verdict", Value: models.ScoreValue{Text: &verdict}, DataType: models.ScoreDataTypeCategorical, Comment: &comment},
		},
	}

	t.Run("numeric cell formats to two decimals and buckets", func(t *testing.T) {
		cell := CellForMetric(row, "accuracy")
		assert.Equal(t, "0.73", cell.Display)
		assert.Equal(t, SeverityGood, cell.Severity)
	})

	t.Run("categorical cell is literal with comment truncated to 50", func(t *testing.T) {
		cell := CellForMetric(row, "verdict")
		assert.Equal(t, "PARTIAL", cell.Display)
		assert.Equal(t, SeverityWarning, cell.Severity)
		require.NotNil(t, cell.Comment)
		assert.Equal(t, strings.Repeat("c", 50)+"...", *cell.Comment)
	})

	t.Run("missing metric renders N/A neutral", func(t *testing.T) {
		cell := CellForMetric(row, "novelty")
		assert.Equal(t, "N/A", cell.Display)
		assert.Equal(t, SeverityNeutral, cell.Severity)
		assert.Nil(t, cell.Comment)
	})
}

func TestBuildTable(t *testing.T) {
	longQuestion := strings.Repeat("q", 151)
	groundTruth := "expected answer"
	high := 0.9
	low := 0.2

	view := NormalizedView{
		Available: true,
		Individual: []models.IndividualScore{
			{
				TraceID:  "t-1",
				Question: &longQuestion,
				Metadata: &models.ScoreMetadata{GroundTruth: &groundTruth},
				TraceScores: []models.TraceScore{
					{Name: "accuracy", Value: models.ScoreValue{Number: &high}, DataType: models.ScoreDataTypeNumeric},
				},
			},
			{
				TraceID: "t-2",
				TraceScores: []models.TraceScore{
					{Name: "relevance", Value: models.ScoreValue{Number: &low}, DataType: models.ScoreDataTypeNumeric},
				},
			},
		},
		MetricColumns: []string{"accuracy"},
	}

	table := BuildTable(view)

	assert.Equal(t, []string{"accuracy"}, table.Columns)
	require.Len(t, table.Rows, 2)

	require.NotNil(t, table.Rows[0].Question)
	assert.Equal(t, strings.Repeat("q", 150)+"...", *table.Rows[0].Question)
	require.NotNil(t, table.Rows[0].GroundTruth)
	assert.Equal(t, "expected answer", *table.Rows[0].GroundTruth)
	require.Len(t, table.Rows[0].Cells, 1)
	assert.Equal(t, "0.90", table.Rows[0].Cells[0].Display)

	// Second row reports a different metric set; the column from the first
	// row is absent there and renders N/A.
	require.Len(t, table.Rows[1].Cells, 1)
	assert.Equal(t, "N/A", table.Rows[1].Cells[0].Display)
	assert.Equal(t, SeverityNeutral, table.Rows[1].Cells[0].Severity)
}
