package engine

import (
	"leadscore_backend/internal/scoring/domain"
)

// EnsembleResult is the combined output of the four factor scorers.
type EnsembleResult struct {
	Score            float64
	Confidence       float64
	InsufficientData bool
	Breakdown        map[domain.Factor]domain.FactorScore
	// Shares is each factor's effective contribution weight to the final
	// score, normalized to sum to 1. Zero-confidence factors have share 0.
	Shares map[domain.Factor]float64
}

// Combine folds the factor scores into a single 0-100 score with an overall
// confidence. Each factor's configured weight is scaled by its confidence, so
// factors that failed or had no data are effectively excluded from the
// average instead of dragging the score toward a misleading neutral value:
//
//	score      = sum(w_i * c_i * s_i) / sum(w_i * c_i)
//	confidence = sum(w_i * c_i) / sum(w_i)
//
// If every factor reports zero confidence (brand-new lead, no activity) the
// result is score 50, confidence 0, marked insufficient rather than a
// division by zero.
func Combine(results []domain.FactorScore, weights map[domain.Factor]float64) EnsembleResult {
	breakdown := make(map[domain.Factor]domain.FactorScore, len(results))
	shares := make(map[domain.Factor]float64, len(results))

	weightSum := 0.0
	effectiveSum := 0.0
	weightedScore := 0.0
	for _, r := range results {
		r.Score = domain.ClampScore(r.Score)
		r.Confidence = domain.ClampConfidence(r.Confidence)
		breakdown[r.Factor] = r

		w := weights[r.Factor]
		if w < 0 {
			w = 0
		}
		effective := w * r.Confidence

		weightSum += w
		effectiveSum += effective
		weightedScore += effective * r.Score
	}

	if effectiveSum == 0 || weightSum == 0 {
		for _, r := range results {
			shares[r.Factor] = 0
		}
		return EnsembleResult{
			Score:            50,
			Confidence:       0,
			InsufficientData: true,
			Breakdown:        breakdown,
			Shares:           shares,
		}
	}

	for _, r := range results {
		w := weights[r.Factor]
		if w < 0 {
			w = 0
		}
		shares[r.Factor] = w * r.Confidence / effectiveSum
	}

	return EnsembleResult{
		Score:      domain.ClampScore(weightedScore / effectiveSum),
		Confidence: domain.ClampConfidence(effectiveSum / weightSum),
		Breakdown:  breakdown,
		Shares:     shares,
	}
}
