// Package domain defines the scoring bounded context's core types: factors,
// activities, signals, and the score records produced by the engine. These are
// explicit tagged structures rather than freeform maps so the engine's output
// stays machine-checkable.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ModelVersion tags every score record with the scoring model that produced
// it. Bump when scoring logic changes significantly.
const ModelVersion = "2026-v1"

// Factor identifies one of the four pluggable scoring dimensions.
type Factor string

const (
	FactorDemographic    Factor = "demographic"
	FactorBehavioral     Factor = "behavioral"
	FactorTemporal       Factor = "temporal"
	FactorConversational Factor = "conversational"
)

// AllFactors returns the four factors in their canonical order.
func AllFactors() []Factor {
	return []Factor{FactorDemographic, FactorBehavioral, FactorTemporal, FactorConversational}
}

// ActivityType enumerates the fixed set of lead activity events.
type ActivityType string

const (
	ActivityMessage     ActivityType = "message"
	ActivityCall        ActivityType = "call"
	ActivityMeeting     ActivityType = "meeting"
	ActivityPageView    ActivityType = "page_view"
	ActivityStageChange ActivityType = "stage_change"
	ActivityNote        ActivityType = "note"
)

// IsConversational reports whether activities of this type can carry an
// upstream sentiment/intent annotation.
func (t ActivityType) IsConversational() bool {
	return t == ActivityMessage || t == ActivityCall
}

// Valid reports whether t is one of the enumerated activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityMessage, ActivityCall, ActivityMeeting, ActivityPageView, ActivityStageChange, ActivityNote:
		return true
	}
	return false
}

// Direction records who initiated an activity. Inbound (lead-initiated)
// engagement is a stronger buying signal than outbound touches.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// SignalDirection marks whether a signal pushed the score up or down.
type SignalDirection string

const (
	SignalPositive SignalDirection = "positive"
	SignalNegative SignalDirection = "negative"
)

// Signal is one explainable contribution inside a factor score.
// Weight is the signal's share of its factor's output, in [0, 1].
type Signal struct {
	Label     string          `json:"label"`
	Weight    float64         `json:"weight"`
	Direction SignalDirection `json:"direction"`
}

// FactorScore is the transient result of one factor scorer.
type FactorScore struct {
	Factor     Factor   `json:"factor"`
	Score      float64  `json:"score"`      // 0-100
	Confidence float64  `json:"confidence"` // 0-1
	Signals    []Signal `json:"signals"`
}

// Neutral returns the fallback result for a factor that failed, timed out, or
// had no data: the midpoint score with zero confidence, so the ensemble
// excludes it rather than letting it drag the result toward 50.
func Neutral(factor Factor, reason string) FactorScore {
	return FactorScore{
		Factor:     factor,
		Score:      50,
		Confidence: 0,
		Signals: []Signal{
			{Label: reason, Weight: 0, Direction: SignalNegative},
		},
	}
}

// ActivityPayload carries the event attributes relevant to scoring. Sentiment
// and buying signals are attached upstream by the NLP collaborator; the
// engine only consumes them.
type ActivityPayload struct {
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	Sentiment       *float64 `json:"sentiment,omitempty"` // -1..1
	BuyingSignals   []string `json:"buyingSignals,omitempty"`
	Outcome         *string  `json:"outcome,omitempty"`
}

// Activity is an immutable lead interaction event. Created by external
// collaborators, consumed (never altered) by the engine.
type Activity struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	Type           ActivityType
	Direction      Direction
	OccurredAt     time.Time
	Payload        ActivityPayload
}

// ActivityWindow is the slice of activities a recomputation scores, with the
// reference instant pinned so scorers stay deterministic under test.
type ActivityWindow struct {
	Activities []Activity
	Now        time.Time
}

// LeadSnapshot is the read-only view of a lead the factor scorers consume.
// All demographic attributes are optional; scorers lower their confidence
// when attributes are missing instead of guessing.
type LeadSnapshot struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Industry       *string
	CompanySize    *int
	Role           *string
	BudgetCents    *int64
	EquityPct      *float64
	TimeframeDays  *int // declared purchase timeframe, in days
	CreatedAt      time.Time
}

// LeadScore is one immutable history record: the full output of a single
// recomputation. History is append-only and is the source of truth; the
// lead's cached current score denormalizes the latest record.
type LeadScore struct {
	ID               uuid.UUID              `json:"id"`
	LeadID           uuid.UUID              `json:"leadId"`
	OrganizationID   uuid.UUID              `json:"organizationId"`
	ActivityID       uuid.UUID              `json:"activityId"`
	Score            float64                `json:"score"`
	Confidence       float64                `json:"confidence"`
	ModelVersion     string                 `json:"modelVersion"`
	Breakdown        map[Factor]FactorScore `json:"factorBreakdown"`
	Explanation      []string               `json:"explanation"`
	Recommendations  []string               `json:"recommendations"`
	InsufficientData bool                   `json:"insufficientData"`
	CreatedAt        time.Time              `json:"createdAt"`
}

// Band buckets a score for the recommendation rule table.
type Band string

const (
	BandHot  Band = "hot"  // 75-100
	BandWarm Band = "warm" // 50-74
	BandCool Band = "cool" // 25-49
	BandCold Band = "cold" // 0-24
)

// BandFor returns the band a score falls into.
func BandFor(score float64) Band {
	switch {
	case score >= 75:
		return BandHot
	case score >= 50:
		return BandWarm
	case score >= 25:
		return BandCool
	default:
		return BandCold
	}
}

// ClampScore bounds a score to [0, 100].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampConfidence bounds a confidence to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
