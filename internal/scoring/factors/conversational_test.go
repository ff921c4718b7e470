package factors

import (
	"context"
	"testing"
	"time"

	"leadscore_backend/internal/scoring/domain"
)

func conversationAgo(sentiment *float64, signals []string, age time.Duration) domain.Activity {
	a := activityAgo(domain.ActivityMessage, domain.DirectionInbound, age)
	a.Payload.Sentiment = sentiment
	a.Payload.BuyingSignals = signals
	return a
}

func TestConversational_NoConversationsIsNeutral(t *testing.T) {
	scorer := &Conversational{}
	w := window(activityAgo(domain.ActivityPageView, domain.DirectionInbound, time.Hour))

	result, err := scorer.Score(context.Background(), domain.LeadSnapshot{}, w, domain.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != 50 || result.Confidence != 0 {
		t.Fatalf("expected neutral 50 with zero confidence, got %v / %v", result.Score, result.Confidence)
	}
	if !hasSignal(result.Signals, "no conversational activity") {
		t.Fatalf("expected explanatory signal, got %+v", result.Signals)
	}
}

func TestConversational_UnannotatedConversationsAreNeutral(t *testing.T) {
	scorer := &Conversational{}
	w := window(
		activityAgo(domain.ActivityMessage, domain.DirectionInbound, time.Hour),
		activityAgo(domain.ActivityCall, domain.DirectionOutbound, 2*time.Hour),
	)

	result, err := scorer.Score(context.Background(), domain.LeadSnapshot{}, w, domain.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != 50 || result.Confidence != 0 {
		t.Fatalf("expected neutral without annotations, got %v / %v", result.Score, result.Confidence)
	}
	if !hasSignal(result.Signals, "no sentiment or intent annotations") {
		t.Fatalf("expected the unannotated signal, got %+v", result.Signals)
	}
}

func TestConversational_PositiveSentimentWithBuyingSignals(t *testing.T) {
	scorer := &Conversational{}
	w := window(
		conversationAgo(floatPtr(0.6), []string{"pricing"}, 2*time.Hour),
		conversationAgo(floatPtr(0.8), []string{"contract", "Pricing"}, time.Hour),
	)

	result, err := scorer.Score(context.Background(), domain.LeadSnapshot{}, w, domain.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score <= 70 {
		t.Fatalf("expected strongly positive conversations to score above 70, got %v", result.Score)
	}
	if result.Confidence <= 0.5 {
		t.Fatalf("expected confidence above 0.5 with two annotations and two keywords, got %v", result.Confidence)
	}
	if !hasSignal(result.Signals, `buying signal detected: "pricing"`) {
		t.Fatalf("expected the pricing keyword once, deduplicated, got %+v", result.Signals)
	}
	if !hasSignal(result.Signals, `buying signal detected: "contract"`) {
		t.Fatalf("expected the contract keyword, got %+v", result.Signals)
	}

	keywords := 0
	for _, s := range result.Signals {
		if len(s.Label) >= len("buying signal") && s.Label[:len("buying signal")] == "buying signal" {
			keywords++
		}
	}
	if keywords != 2 {
		t.Fatalf("expected 2 deduplicated keyword signals, got %d", keywords)
	}
}

func TestConversational_NegativeSentimentScoresLow(t *testing.T) {
	scorer := &Conversational{}
	w := window(
		conversationAgo(floatPtr(-0.7), nil, 2*time.Hour),
		conversationAgo(floatPtr(-0.9), nil, time.Hour),
	)

	result, err := scorer.Score(context.Background(), domain.LeadSnapshot{}, w, domain.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score >= 30 {
		t.Fatalf("expected strongly negative conversations to score below 30, got %v", result.Score)
	}
	if !hasSignal(result.Signals, "sentiment is negative") {
		t.Fatalf("expected the negative sentiment signal, got %+v", result.Signals)
	}
}

func TestConversational_SentimentTrendMatters(t *testing.T) {
	scorer := &Conversational{}

	improving := window(
		conversationAgo(floatPtr(-0.4), nil, 3*time.Hour),
		conversationAgo(floatPtr(-0.2), nil, 2*time.Hour),
		conversationAgo(floatPtr(0.5), nil, time.Hour),
		conversationAgo(floatPtr(0.7), nil, 30*time.Minute),
	)

	result, err := scorer.Score(context.Background(), domain.LeadSnapshot{}, improving, domain.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !hasSignal(result.Signals, "trending up") {
		t.Fatalf("expected the upward trend signal, got %+v", result.Signals)
	}
	if result.Score <= 50 {
		t.Fatalf("expected an improving conversation to score above neutral, got %v", result.Score)
	}
}
