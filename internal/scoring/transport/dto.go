// Package transport defines the request and response shapes of the scoring
// HTTP API.
package transport

import (
	"time"

	"leadscore_backend/internal/scoring/domain"
)

// TriggerScoreRequest is the body of POST /internal/activities/:activityId/score-trigger.
// The activity id comes from the path; the body identifies the lead.
type TriggerScoreRequest struct {
	LeadID string `json:"leadId" binding:"required" validate:"required,uuid"`
}

// TriggerScoreResponse acknowledges an accepted trigger.
type TriggerScoreResponse struct {
	Status     string `json:"status"`
	LeadID     string `json:"leadId"`
	ActivityID string `json:"activityId"`
}

// FactorScoreView is one factor's contribution in a score response.
type FactorScoreView struct {
	Score      float64      `json:"score"`
	Confidence float64      `json:"confidence"`
	Signals    []SignalView `json:"signals"`
}

type SignalView struct {
	Label     string  `json:"label"`
	Weight    float64 `json:"weight"`
	Direction string  `json:"direction"`
}

// ScoreResponse is a full scored snapshot, shared by the current-score and
// history endpoints.
type ScoreResponse struct {
	ID               string                     `json:"id"`
	LeadID           string                     `json:"leadId"`
	ActivityID       string                     `json:"activityId"`
	Score            float64                    `json:"score"`
	Confidence       float64                    `json:"confidence"`
	Band             string                     `json:"band"`
	ModelVersion     string                     `json:"modelVersion"`
	FactorBreakdown  map[string]FactorScoreView `json:"factorBreakdown"`
	Explanation      []string                   `json:"explanation"`
	Recommendations  []string                   `json:"recommendations"`
	InsufficientData bool                       `json:"insufficientData"`
	Stale            bool                       `json:"stale"`
	ScoredAt         time.Time                  `json:"scoredAt"`
}

// ScoreHistoryResponse pages through a lead's score history, newest first.
type ScoreHistoryResponse struct {
	Items      []ScoreResponse `json:"items"`
	NextBefore *time.Time      `json:"nextBefore,omitempty"`
}

// ListHistoryRequest holds the query parameters of the history endpoint.
type ListHistoryRequest struct {
	Limit  int        `form:"limit"`
	Before *time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
}

// IdealCustomerProfileView mirrors the configured target profile on the wire.
type IdealCustomerProfileView struct {
	Industries     []string `json:"industries"`
	MinCompanySize int      `json:"minCompanySize" validate:"omitempty,min=0"`
	MaxCompanySize int      `json:"maxCompanySize" validate:"omitempty,min=0"`
	Roles          []string `json:"roles"`
	MinBudgetCents int64    `json:"minBudgetCents" validate:"omitempty,min=0"`
}

// UpdateSettingsRequest is the body of PUT /scoring/settings. Omitted fields
// fall back to the engine defaults on read.
type UpdateSettingsRequest struct {
	FactorWeights               map[string]float64        `json:"factorWeights" validate:"omitempty,dive,min=0"`
	BehavioralDecayHalfLifeDays int                       `json:"behavioralDecayHalfLifeDays" validate:"omitempty,min=1,max=365"`
	ExplanationTopN             int                       `json:"explanationTopN" validate:"omitempty,min=1,max=20"`
	ScorerTimeoutMs             int                       `json:"scorerTimeoutMs" validate:"omitempty,min=100,max=30000"`
	RecomputeTimeoutMs          int                       `json:"recomputeTimeoutMs" validate:"omitempty,min=500,max=60000"`
	ActivityWindowDays          int                       `json:"activityWindowDays" validate:"omitempty,min=1,max=730"`
	IdealCustomerProfile        *IdealCustomerProfileView `json:"idealCustomerProfile"`
}

// SettingsResponse is the effective scoring configuration after defaults and
// normalization are applied.
type SettingsResponse struct {
	FactorWeights               map[string]float64       `json:"factorWeights"`
	BehavioralDecayHalfLifeDays int                      `json:"behavioralDecayHalfLifeDays"`
	ExplanationTopN             int                      `json:"explanationTopN"`
	ScorerTimeoutMs             int                      `json:"scorerTimeoutMs"`
	RecomputeTimeoutMs          int                      `json:"recomputeTimeoutMs"`
	ActivityWindowDays          int                      `json:"activityWindowDays"`
	IdealCustomerProfile        IdealCustomerProfileView `json:"idealCustomerProfile"`
}

// ToSettings maps the request onto the stored configuration shape. Factor
// names are validated by the caller; unknown keys are dropped here.
func (r UpdateSettingsRequest) ToSettings() domain.TenantSettings {
	weights := make(map[domain.Factor]float64, len(r.FactorWeights))
	for _, f := range domain.AllFactors() {
		if w, ok := r.FactorWeights[string(f)]; ok {
			weights[f] = w
		}
	}

	settings := domain.TenantSettings{
		FactorWeights:      weights,
		DecayHalfLifeDays:  r.BehavioralDecayHalfLifeDays,
		ExplanationTopN:    r.ExplanationTopN,
		ScorerTimeoutMs:    r.ScorerTimeoutMs,
		RecomputeTimeoutMs: r.RecomputeTimeoutMs,
		ActivityWindowDays: r.ActivityWindowDays,
	}
	if r.IdealCustomerProfile != nil {
		settings.Profile = domain.IdealCustomerProfile{
			Industries:     r.IdealCustomerProfile.Industries,
			MinCompanySize: r.IdealCustomerProfile.MinCompanySize,
			MaxCompanySize: r.IdealCustomerProfile.MaxCompanySize,
			Roles:          r.IdealCustomerProfile.Roles,
			MinBudgetCents: r.IdealCustomerProfile.MinBudgetCents,
		}
	}
	return settings
}

// ToSettingsResponse maps normalized settings to their API shape.
func ToSettingsResponse(settings domain.TenantSettings) SettingsResponse {
	weights := make(map[string]float64, len(settings.FactorWeights))
	for factor, w := range settings.FactorWeights {
		weights[string(factor)] = w
	}

	return SettingsResponse{
		FactorWeights:               weights,
		BehavioralDecayHalfLifeDays: settings.DecayHalfLifeDays,
		ExplanationTopN:             settings.ExplanationTopN,
		ScorerTimeoutMs:             settings.ScorerTimeoutMs,
		RecomputeTimeoutMs:          settings.RecomputeTimeoutMs,
		ActivityWindowDays:          settings.ActivityWindowDays,
		IdealCustomerProfile: IdealCustomerProfileView{
			Industries:     settings.Profile.Industries,
			MinCompanySize: settings.Profile.MinCompanySize,
			MaxCompanySize: settings.Profile.MaxCompanySize,
			Roles:          settings.Profile.Roles,
			MinBudgetCents: settings.Profile.MinBudgetCents,
		},
	}
}

// ToScoreResponse maps a history record to its API shape.
func ToScoreResponse(record domain.LeadScore, stale bool) ScoreResponse {
	breakdown := make(map[string]FactorScoreView, len(record.Breakdown))
	for factor, fs := range record.Breakdown {
		signals := make([]SignalView, 0, len(fs.Signals))
		for _, s := range fs.Signals {
			signals = append(signals, SignalView{
				Label:     s.Label,
				Weight:    s.Weight,
				Direction: string(s.Direction),
			})
		}
		breakdown[string(factor)] = FactorScoreView{
			Score:      fs.Score,
			Confidence: fs.Confidence,
			Signals:    signals,
		}
	}

	return ScoreResponse{
		ID:               record.ID.String(),
		LeadID:           record.LeadID.String(),
		ActivityID:       record.ActivityID.String(),
		Score:            record.Score,
		Confidence:       record.Confidence,
		Band:             string(domain.BandFor(record.Score)),
		ModelVersion:     record.ModelVersion,
		FactorBreakdown:  breakdown,
		Explanation:      record.Explanation,
		Recommendations:  record.Recommendations,
		InsufficientData: record.InsufficientData,
		Stale:            stale,
		ScoredAt:         record.CreatedAt,
	}
}
