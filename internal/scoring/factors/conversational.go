package factors

import (
	"context"
	"fmt"
	"math"
	"strings"

	"leadscore_backend/internal/scoring/domain"
)

const (
	// sentimentScale maps average sentiment (-1..1) onto the score range
	// around the neutral midpoint.
	sentimentScale = 40.0

	// trendScale weights the recent-vs-overall sentiment delta.
	trendScale = 10.0

	// Per-keyword boost for upstream-detected buying signals, capped.
	buyingSignalBoost    = 5.0
	buyingSignalBoostCap = 15.0

	conversationalConfidenceRate = 4.0
)

// Conversational aggregates the sentiment and buying-signal annotations the
// upstream NLP collaborator attaches to message and call activities. It does
// no language analysis itself; with nothing annotated in the window it
// returns neutral with zero confidence rather than guessing.
type Conversational struct{}

func (c *Conversational) Name() domain.Factor { return domain.FactorConversational }

func (c *Conversational) Score(_ context.Context, _ domain.LeadSnapshot, window domain.ActivityWindow, _ domain.TenantSettings) (domain.FactorScore, error) {
	conversations := make([]domain.Activity, 0, len(window.Activities))
	for _, a := range sortedByTime(window) {
		if a.Type.IsConversational() {
			conversations = append(conversations, a)
		}
	}
	if len(conversations) == 0 {
		return domain.Neutral(domain.FactorConversational, "no conversational activity in the scoring window"), nil
	}

	annotated := conversations[:0:0]
	keywords := make([]string, 0)
	seen := make(map[string]bool)
	for _, a := range conversations {
		if a.Payload.Sentiment != nil {
			annotated = append(annotated, a)
		}
		for _, kw := range a.Payload.BuyingSignals {
			normalized := strings.ToLower(strings.TrimSpace(kw))
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			keywords = append(keywords, normalized)
		}
	}
	if len(annotated) == 0 && len(keywords) == 0 {
		return domain.Neutral(domain.FactorConversational, "conversations exist but carry no sentiment or intent annotations"), nil
	}

	overall, recent := sentimentAverages(annotated)
	trend := recent - overall

	boost := math.Min(buyingSignalBoost*float64(len(keywords)), buyingSignalBoostCap)
	score := domain.ClampScore(50 + sentimentScale*recent + trendScale*trend + boost)
	confidence := domain.ClampConfidence(1 - math.Exp(-float64(len(annotated)+len(keywords))/conversationalConfidenceRate))

	return domain.FactorScore{
		Factor:     domain.FactorConversational,
		Score:      score,
		Confidence: confidence,
		Signals:    conversationalSignals(recent, trend, keywords, boost, score),
	}, nil
}

// sentimentAverages returns the mean sentiment across all annotated
// conversations and across the most recent half (minimum one).
func sentimentAverages(annotated []domain.Activity) (overall, recent float64) {
	if len(annotated) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, a := range annotated {
		sum += *a.Payload.Sentiment
	}
	overall = sum / float64(len(annotated))

	recentCount := (len(annotated) + 1) / 2
	recentSum := 0.0
	for _, a := range annotated[len(annotated)-recentCount:] {
		recentSum += *a.Payload.Sentiment
	}
	recent = recentSum / float64(recentCount)

	return overall, recent
}

func conversationalSignals(recent, trend float64, keywords []string, boost, score float64) []domain.Signal {
	// Normalize signal weights by the total absolute deviation from neutral.
	sentimentPart := math.Abs(sentimentScale*recent + trendScale*trend)
	total := sentimentPart + boost
	if total == 0 {
		total = 1
	}

	signals := make([]domain.Signal, 0, 2+len(keywords))

	sentimentDirection := domain.SignalPositive
	sentimentLabel := "recent conversation sentiment is positive"
	if recent < 0 {
		sentimentDirection = domain.SignalNegative
		sentimentLabel = "recent conversation sentiment is negative"
	} else if recent == 0 {
		sentimentLabel = "recent conversation sentiment is neutral"
	}
	signals = append(signals, domain.Signal{
		Label:     sentimentLabel,
		Weight:    sentimentPart / total,
		Direction: sentimentDirection,
	})

	switch {
	case trend > 0.05:
		signals = append(signals, domain.Signal{
			Label:     "sentiment is trending up across recent conversations",
			Weight:    math.Abs(trendScale*trend) / total,
			Direction: domain.SignalPositive,
		})
	case trend < -0.05:
		signals = append(signals, domain.Signal{
			Label:     "sentiment is trending down across recent conversations",
			Weight:    math.Abs(trendScale*trend) / total,
			Direction: domain.SignalNegative,
		})
	}

	for _, kw := range keywords {
		signals = append(signals, domain.Signal{
			Label:     fmt.Sprintf("buying signal detected: %q", kw),
			Weight:    buyingSignalBoost / total,
			Direction: domain.SignalPositive,
		})
	}

	return signals
}
