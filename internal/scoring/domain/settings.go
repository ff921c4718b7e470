package domain

import "time"

// Default engine settings, applied field-by-field when a tenant has not
// configured its own.
const (
	DefaultDecayHalfLifeDays  = 14
	DefaultExplanationTopN    = 5
	DefaultScorerTimeout      = 2 * time.Second
	DefaultRecomputeTimeout   = 5 * time.Second
	DefaultActivityWindowDays = 90
)

// IdealCustomerProfile is the configured target profile the demographic
// scorer matches leads against.
type IdealCustomerProfile struct {
	Industries     []string `json:"industries"`
	MinCompanySize int      `json:"minCompanySize"`
	MaxCompanySize int      `json:"maxCompanySize"`
	Roles          []string `json:"roles"` // decision-maker roles
	MinBudgetCents int64    `json:"minBudgetCents"`
}

// TenantSettings holds one organization's scoring configuration. Timeouts
// are stored as millisecond integers; Normalize derives the duration fields
// the engine reads.
type TenantSettings struct {
	FactorWeights      map[Factor]float64   `json:"factorWeights"`
	DecayHalfLifeDays  int                  `json:"behavioralDecayHalfLifeDays"`
	ExplanationTopN    int                  `json:"explanationTopN"`
	ScorerTimeoutMs    int                  `json:"scorerTimeoutMs"`
	RecomputeTimeoutMs int                  `json:"recomputeTimeoutMs"`
	ScorerTimeout      time.Duration        `json:"-"`
	RecomputeTimeout   time.Duration        `json:"-"`
	ActivityWindowDays int                  `json:"activityWindowDays"`
	Profile            IdealCustomerProfile `json:"idealCustomerProfile"`
}

// DefaultSettings returns the engine defaults: equal factor weighting and the
// documented timeout/decay/top-N values. The default profile matches nothing,
// so an unconfigured tenant's demographic factor reports low confidence
// rather than a fabricated fit.
func DefaultSettings() TenantSettings {
	return TenantSettings{
		FactorWeights: map[Factor]float64{
			FactorDemographic:    1,
			FactorBehavioral:     1,
			FactorTemporal:       1,
			FactorConversational: 1,
		},
		DecayHalfLifeDays:  DefaultDecayHalfLifeDays,
		ExplanationTopN:    DefaultExplanationTopN,
		ScorerTimeoutMs:    int(DefaultScorerTimeout / time.Millisecond),
		RecomputeTimeoutMs: int(DefaultRecomputeTimeout / time.Millisecond),
		ScorerTimeout:      DefaultScorerTimeout,
		RecomputeTimeout:   DefaultRecomputeTimeout,
		ActivityWindowDays: DefaultActivityWindowDays,
	}
}

// Normalize fills gaps with defaults and discards invalid values: negative
// weights, non-positive half-life or top-N, missing factors. A settings row
// that zeroes every weight is replaced wholesale by equal weighting so the
// ensemble never divides by a zero weight sum.
func (s TenantSettings) Normalize() TenantSettings {
	defaults := DefaultSettings()

	weights := make(map[Factor]float64, len(defaults.FactorWeights))
	sum := 0.0
	for _, f := range AllFactors() {
		w, ok := s.FactorWeights[f]
		if !ok || w < 0 {
			w = defaults.FactorWeights[f]
		}
		weights[f] = w
		sum += w
	}
	if sum == 0 {
		weights = defaults.FactorWeights
	}
	s.FactorWeights = weights

	if s.DecayHalfLifeDays < 1 {
		s.DecayHalfLifeDays = defaults.DecayHalfLifeDays
	}
	if s.ExplanationTopN < 1 {
		s.ExplanationTopN = defaults.ExplanationTopN
	}
	if s.ScorerTimeoutMs > 0 {
		s.ScorerTimeout = time.Duration(s.ScorerTimeoutMs) * time.Millisecond
	}
	if s.RecomputeTimeoutMs > 0 {
		s.RecomputeTimeout = time.Duration(s.RecomputeTimeoutMs) * time.Millisecond
	}
	if s.ScorerTimeout <= 0 {
		s.ScorerTimeout = defaults.ScorerTimeout
	}
	if s.RecomputeTimeout <= 0 {
		s.RecomputeTimeout = defaults.RecomputeTimeout
	}
	if s.RecomputeTimeout < s.ScorerTimeout {
		s.RecomputeTimeout = s.ScorerTimeout
	}
	s.ScorerTimeoutMs = int(s.ScorerTimeout / time.Millisecond)
	s.RecomputeTimeoutMs = int(s.RecomputeTimeout / time.Millisecond)
	if s.ActivityWindowDays < 1 {
		s.ActivityWindowDays = defaults.ActivityWindowDays
	}
	if s.Profile.MaxCompanySize > 0 && s.Profile.MaxCompanySize < s.Profile.MinCompanySize {
		s.Profile.MaxCompanySize = s.Profile.MinCompanySize
	}

	return s
}
