package score

import (
	"fmt"

	"github.com/evaldeck/console/internal/models"
)

// Severity is the color bucket a rendered value falls into.
type Severity string

const (
	SeverityGood    Severity = "good"
	SeverityWarning Severity = "warning"
	SeverityBad     Severity = "bad"
	SeverityNeutral Severity = "neutral"
)

// Truncation limits for summary display, in characters. The cut is at the
// character boundary with no word-boundary adjustment; the full text stays
// available on explicit expansion.
const (
	TextTruncateLimit    = 150
	CommentTruncateLimit = 50
)

const missingValueDisplay = "N/A"

// NumericSeverity buckets a numeric metric value. Intervals are closed-open;
// a boundary value belongs to the higher bucket.
func NumericSeverity(value float64) Severity {
	switch {
	case value >= 0.7:
		return SeverityGood
	case value >= 0.5:
		return SeverityWarning
	default:
		return SeverityBad
	}
}

// CategoricalSeverity buckets a categorical value by exact match.
func CategoricalSeverity(value string) Severity {
	switch value {
	case "CORRECT":
		return SeverityGood
	case "PARTIAL":
		return SeverityWarning
	case "INCORRECT":
		return SeverityBad
	default:
		return SeverityNeutral
	}
}

// FormatNumeric formats a numeric metric value for display.
func FormatNumeric(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

// FormatJobScore formats a job-level fractional score as a percentage with
// one decimal place, e.g. 0.82 -> "82.0%".
func FormatJobScore(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// Truncate cuts s to at most limit characters and appends an ellipsis marker.
// A string of exactly limit characters is returned unchanged.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}

// Cell is one rendered table cell: display text plus its severity bucket.
type Cell struct {
	Display  string   `json:"display"`
	Severity Severity `json:"severity"`

	// Comment is the truncated reviewer comment, when the metric carries one.
	Comment *string `json:"comment,omitempty"`
}

// CellForMetric renders the named metric of one individual record. A metric
// name not found in the row's trace scores displays as "N/A" with neutral
// styling and is excluded from bucket coloring.
func CellForMetric(row models.IndividualScore, name string) Cell {
	for _, ts := range row.TraceScores {
		if ts.Name != name {
			continue
		}

		cell := renderValue(ts)
		if ts.Comment != nil {
			truncated := Truncate(*ts.Comment, CommentTruncateLimit)
			cell.Comment = &truncated
		}

		return cell
	}

	return Cell{Display: missingValueDisplay, Severity: SeverityNeutral}
}

func renderValue(ts models.TraceScore) Cell {
	if ts.DataType == models.ScoreDataTypeCategorical {
		if ts.Value.Text == nil {
			return Cell{Display: missingValueDisplay, Severity: SeverityNeutral}
		}

		return Cell{Display: *ts.Value.Text, Severity: CategoricalSeverity(*ts.Value.Text)}
	}

	if ts.Value.Number == nil {
		return Cell{Display: missingValueDisplay, Severity: SeverityNeutral}
	}

	return Cell{Display: FormatNumeric(*ts.Value.Number), Severity: NumericSeverity(*ts.Value.Number)}
}

// Row is one rendered detail-table row: the truncated example context plus
// one cell per metric column.
type Row struct {
	TraceID     string  `json:"trace_id"`
	Question    *string `json:"question,omitempty"`
	Answer      *string `json:"answer,omitempty"`
	GroundTruth *string `json:"ground_truth,omitempty"`
	Cells       []Cell  `json:"cells"`
}

// Table is the render-ready detail table derived from a normalized view.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// BuildTable derives the detail table deterministically from a normalized
// view: the column set comes from the view, text fields are truncated for
// summary display, and each row gets one cell per column.
func BuildTable(view NormalizedView) Table {
	table := Table{Columns: view.MetricColumns}

	for _, ind := range view.Individual {
		row := Row{
			TraceID:  ind.TraceID,
			Question: truncatePtr(ind.Question, TextTruncateLimit),
			Answer:   truncatePtr(ind.Answer, TextTruncateLimit),
		}
		if ind.Metadata != nil {
			row.GroundTruth = truncatePtr(ind.Metadata.GroundTruth, TextTruncateLimit)
		}

		for _, name := range view.MetricColumns {
			row.Cells = append(row.Cells, CellForMetric(ind, name))
		}

		table.Rows = append(table.Rows, row)
	}

	return table
}

func truncatePtr(s *string, limit int) *string {
	if s == nil {
		return nil
	}

	truncated := Truncate(*s, limit)

	return &truncated
}
