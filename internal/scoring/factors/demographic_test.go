package factors

import (
	"context"
	"math"
	"testing"

	"leadscore_backend/internal/scoring/domain"
)

func icpSettings() domain.TenantSettings {
	settings := domain.DefaultSettings()
	settings.Profile = domain.IdealCustomerProfile{
		Industries:     []string{"solar", "construction"},
		MinCompanySize: 10,
		MaxCompanySize: 500,
		Roles:          []string{"owner", "director"},
		MinBudgetCents: 1_000_000,
	}
	return settings
}

func TestDemographic_NoAttributesIsNeutral(t *testing.T) {
	scorer := &Demographic{}
	result, err := scorer.Score(context.Background(), domain.LeadSnapshot{}, window(), icpSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != 50 || result.Confidence != 0 {
		t.Fatalf("expected neutral 50 with zero confidence, got %v / %v", result.Score, result.Confidence)
	}
}

func TestDemographic_FullProfileMatch(t *testing.T) {
	scorer := &Demographic{}
	lead := domain.LeadSnapshot{
		Industry:    strPtr("Solar"),
		CompanySize: intPtr(120),
		Role:        strPtr("Managing Director"),
		BudgetCents: int64Ptr(2_000_000),
	}

	result, err := scorer.Score(context.Background(), lead, window(), icpSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != 100 {
		t.Fatalf("expected a full match to score 100, got %v", result.Score)
	}
	if result.Confidence != 1 {
		t.Fatalf("expected full confidence with all attributes present, got %v", result.Confidence)
	}
	if len(result.Signals) != 4 {
		t.Fatalf("expected one signal per attribute, got %d", len(result.Signals))
	}
}

func TestDemographic_PartialAttributesLowerConfidenceNotScore(t *testing.T) {
	scorer := &Demographic{}
	lead := domain.LeadSnapshot{
		Industry: strPtr("solar"),
	}

	result, err := scorer.Score(context.Background(), lead, window(), icpSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != 100 {
		t.Fatalf("a matching industry alone should still score 100, got %v", result.Score)
	}
	if math.Abs(result.Confidence-0.30) > 1e-9 {
		t.Fatalf("expected confidence to equal the industry weight 0.30, got %v", result.Confidence)
	}
}

func TestDemographic_MismatchScoresLowWithFullConfidence(t *testing.T) {
	scorer := &Demographic{}
	lead := domain.LeadSnapshot{
		Industry:    strPtr("hospitality"),
		CompanySize: intPtr(2),
		Role:        strPtr("intern"),
		BudgetCents: int64Ptr(100),
	}

	result, err := scorer.Score(context.Background(), lead, window(), icpSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != 0 {
		t.Fatalf("expected a complete mismatch to score 0, got %v", result.Score)
	}
	if result.Confidence != 1 {
		t.Fatalf("a confident mismatch is still confident, got %v", result.Confidence)
	}
	if !hasSignal(result.Signals, "outside the ideal customer profile") {
		t.Fatalf("expected the industry mismatch signal, got %+v", result.Signals)
	}
}

func TestDemographic_NearMissCompanySizeGetsHalfCredit(t *testing.T) {
	scorer := &Demographic{}
	lead := domain.LeadSnapshot{
		CompanySize: intPtr(7), // below min 10, within 50%
	}

	result, err := scorer.Score(context.Background(), lead, window(), icpSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != 50 {
		t.Fatalf("expected half credit to score 50, got %v", result.Score)
	}
	if !hasSignal(result.Signals, "near the target range") {
		t.Fatalf("expected the near-miss signal, got %+v", result.Signals)
	}
}

func TestDemographic_UnconfiguredProfileIsNeutral(t *testing.T) {
	scorer := &Demographic{}
	lead := domain.LeadSnapshot{
		Industry:    strPtr("solar"),
		CompanySize: intPtr(50),
	}

	result, err := scorer.Score(context.Background(), lead, window(), domain.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Default settings configure no profile, so nothing is comparable.
	if result.Score != 50 || result.Confidence != 0 {
		t.Fatalf("expected neutral with no profile configured, got %v / %v", result.Score, result.Confidence)
	}
}
