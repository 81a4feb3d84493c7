// Package score reconciles the two score payload shapes into one renderable
// view and derives the display model (severity buckets, truncation, column
// set) from it. Everything here is a pure function of its input.
package score

import (
	"github.com/evaldeck/console/internal/models"
)

// NormalizedView is the single shape score consumers render from, whichever
// variant the backend sent. When Available is false the renderer shows a
// neutral empty state.
type NormalizedView struct {
	Available bool `json:"available"`

	Summary    []models.SummaryScore    `json:"summary,omitempty"`
	Individual []models.IndividualScore `json:"individual,omitempty"`

	// MetricColumns is the ordered set of metric names forming the detail
	// table's columns, taken from the trace scores of the first individual
	// record only. Rows missing one of these names render "N/A" for it;
	// names appearing only in later rows are not merged in.
	MetricColumns []string `json:"metric_columns,omitempty"`
}

// Unavailable is the neutral empty view.
func Unavailable() NormalizedView {
	return NormalizedView{}
}

// Normalize reconciles a resolved score object into a NormalizedView.
// A nil object, an unknown variant, or a current-variant payload without
// individual scores all normalize to the unavailable view; no input makes
// Normalize fail.
func Normalize(obj *models.ScoreObject) NormalizedView {
	if obj == nil {
		return Unavailable()
	}

	switch obj.Variant {
	case models.ScoreVariantLegacy:
		return normalizeLegacy(obj.CosineSimilarity)
	case models.ScoreVariantCurrent:
		return normalizeCurrent(obj)
	default:
		return Unavailable()
	}
}

// normalizeLegacy lifts the single cosine_similarity aggregate into the
// summary list. Legacy payloads carry per-item values but none of the
// question/answer/ground-truth context the detail table needs, so the view
// has no individual-level detail.
func normalizeLegacy(legacy *models.LegacyCosineScore) NormalizedView {
	if legacy == nil {
		return Unavailable()
	}

	avg := legacy.Average
	std := legacy.StdDev

	return NormalizedView{
		Available: true,
		Summary: []models.SummaryScore{{
			Name:       "cosine_similarity",
			Average:    &avg,
			StdDev:     &std,
			TotalPairs: legacy.TotalPairs,
			DataType:   models.ScoreDataTypeNumeric,
		}},
	}
}

func normalizeCurrent(obj *models.ScoreObject) NormalizedView {
	if len(obj.IndividualScores) == 0 {
		return Unavailable()
	}

	first := obj.IndividualScores[0]
	columns := make([]string, 0, len(first.TraceScores))
	for _, ts := range first.TraceScores {
		columns = append(columns, ts.Name)
	}

	return NormalizedView{
		Available:     true,
		Summary:       obj.SummaryScores,
		Individual:    obj.IndividualScores,
		MetricColumns: columns,
	}
}
