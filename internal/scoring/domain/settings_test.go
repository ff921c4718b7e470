package domain

import (
	"testing"
	"time"
)

func TestNormalize_FillsMissingWeights(t *testing.T) {
	s := TenantSettings{
		FactorWeights: map[Factor]float64{FactorBehavioral: 2},
	}.Normalize()

	for _, f := range AllFactors() {
		if _, ok := s.FactorWeights[f]; !ok {
			t.Fatalf("expected a weight for %s after normalization", f)
		}
	}
	if s.FactorWeights[FactorBehavioral] != 2 {
		t.Fatalf("expected the explicit weight to survive, got %v", s.FactorWeights[FactorBehavioral])
	}
	if s.FactorWeights[FactorDemographic] != 1 {
		t.Fatalf("expected the missing weight to default to 1, got %v", s.FactorWeights[FactorDemographic])
	}
}

func TestNormalize_NegativeWeightsAreReplaced(t *testing.T) {
	s := TenantSettings{
		FactorWeights: map[Factor]float64{FactorTemporal: -5},
	}.Normalize()

	if s.FactorWeights[FactorTemporal] != 1 {
		t.Fatalf("expected the negative weight replaced with the default, got %v", s.FactorWeights[FactorTemporal])
	}
}

func TestNormalize_AllZeroWeightsFallBackToEqual(t *testing.T) {
	s := TenantSettings{
		FactorWeights: map[Factor]float64{
			FactorDemographic:    0,
			FactorBehavioral:     0,
			FactorTemporal:       0,
			FactorConversational: 0,
		},
	}.Normalize()

	sum := 0.0
	for _, w := range s.FactorWeights {
		sum += w
	}
	if sum == 0 {
		t.Fatalf("normalization must never leave a zero weight sum")
	}
}

func TestNormalize_RecomputeTimeoutCoversScorerTimeout(t *testing.T) {
	s := TenantSettings{
		ScorerTimeout:    10 * time.Second,
		RecomputeTimeout: time.Second,
	}.Normalize()

	if s.RecomputeTimeout < s.ScorerTimeout {
		t.Fatalf("recompute timeout %v must cover the scorer timeout %v", s.RecomputeTimeout, s.ScorerTimeout)
	}
}

func TestNormalize_MillisecondTimeoutsOverrideDurations(t *testing.T) {
	s := TenantSettings{
		ScorerTimeoutMs:    500,
		RecomputeTimeoutMs: 8000,
	}.Normalize()

	if s.ScorerTimeout != 500*time.Millisecond {
		t.Fatalf("expected the scorer timeout from the stored document, got %v", s.ScorerTimeout)
	}
	if s.RecomputeTimeout != 8*time.Second {
		t.Fatalf("expected the recompute timeout from the stored document, got %v", s.RecomputeTimeout)
	}
}

func TestNormalize_DefaultsForZeroValues(t *testing.T) {
	s := TenantSettings{}.Normalize()

	if s.DecayHalfLifeDays != DefaultDecayHalfLifeDays {
		t.Fatalf("expected default half-life, got %d", s.DecayHalfLifeDays)
	}
	if s.ExplanationTopN != DefaultExplanationTopN {
		t.Fatalf("expected default top-N, got %d", s.ExplanationTopN)
	}
	if s.ActivityWindowDays != DefaultActivityWindowDays {
		t.Fatalf("expected default window, got %d", s.ActivityWindowDays)
	}
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		score float64
		want  Band
	}{
		{0, BandCold},
		{24.9, BandCold},
		{25, BandCool},
		{49.9, BandCool},
		{50, BandWarm},
		{74.9, BandWarm},
		{75, BandHot},
		{100, BandHot},
	}
	for _, tc := range cases {
		if got := BandFor(tc.score); got != tc.want {
			t.Fatalf("BandFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
