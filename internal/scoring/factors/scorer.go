// Package factors implements the four pluggable factor scorers. Each scorer
// is a pure function of a lead snapshot and an activity window: no external
// calls, no shared state, deterministic for a fixed window reference time.
// The engine runs them concurrently and absorbs failures into a neutral
// zero-confidence result, so scorers never need to defend the pipeline.
package factors

import (
	"context"
	"sort"

	"leadscore_backend/internal/scoring/domain"
)

// Scorer produces one dimension of a lead's score.
type Scorer interface {
	// Name returns the factor this scorer computes.
	Name() domain.Factor
	// Score computes the factor score for the lead over the activity window.
	Score(ctx context.Context, lead domain.LeadSnapshot, window domain.ActivityWindow, settings domain.TenantSettings) (domain.FactorScore, error)
}

// Defaults returns the standard four scorers in canonical factor order.
func Defaults() []Scorer {
	return []Scorer{
		&Demographic{},
		&Behavioral{},
		&Temporal{},
		&Conversational{},
	}
}

// sortedByTime returns the window's activities ordered oldest-first. Scorers
// must not assume repository ordering.
func sortedByTime(window domain.ActivityWindow) []domain.Activity {
	out := make([]domain.Activity, len(window.Activities))
	copy(out, window.Activities)
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out
}
