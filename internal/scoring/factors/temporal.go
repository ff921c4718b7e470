package factors

import (
	"context"
	"fmt"
	"math"
	"time"

	"leadscore_backend/internal/scoring/domain"
)

const (
	// velocityWindowDays is the width of each half of the activity-trend
	// comparison: the last N days against the N days before that.
	velocityWindowDays = 7

	// Blend between declared-timeframe urgency and observed velocity when
	// both are available.
	urgencyShare  = 0.6
	velocityShare = 0.4

	// timeframeConfidence is the confidence contributed by an explicit
	// declared timeframe; velocity evidence fills the remainder.
	timeframeConfidence    = 0.6
	velocityConfidenceRate = 4.0
)

// Temporal detects urgency markers: a declared purchase timeframe and the
// acceleration (or cooling) of activity over the recent trend windows.
// A cooling lead is flagged distinctly from one that never engaged.
type Temporal struct{}

func (t *Temporal) Name() domain.Factor { return domain.FactorTemporal }

func (t *Temporal) Score(_ context.Context, lead domain.LeadSnapshot, window domain.ActivityWindow, _ domain.TenantSettings) (domain.FactorScore, error) {
	recent, prior := trendCounts(window)
	hasTimeframe := lead.TimeframeDays != nil
	hasVelocity := recent+prior > 0

	if !hasTimeframe && !hasVelocity {
		return domain.Neutral(domain.FactorTemporal, "no urgency markers: lead has never engaged and declared no timeframe"), nil
	}

	signals := make([]domain.Signal, 0, 3)
	score := 0.0
	switch {
	case hasTimeframe && hasVelocity:
		urgency := timeframeUrgency(*lead.TimeframeDays)
		velocity, velocitySignal := velocityScore(recent, prior)
		score = urgencyShare*urgency + velocityShare*velocity
		signals = append(signals, timeframeSignal(*lead.TimeframeDays, urgency), velocitySignal)
	case hasTimeframe:
		urgency := timeframeUrgency(*lead.TimeframeDays)
		score = urgency
		signals = append(signals, timeframeSignal(*lead.TimeframeDays, urgency))
	default:
		velocity, velocitySignal := velocityScore(recent, prior)
		score = velocity
		signals = append(signals, velocitySignal)
	}

	confidence := 0.0
	if hasTimeframe {
		confidence += timeframeConfidence
	}
	if hasVelocity {
		confidence += (1 - timeframeConfidence) * (1 - math.Exp(-float64(recent+prior)/velocityConfidenceRate))
	}

	return domain.FactorScore{
		Factor:     domain.FactorTemporal,
		Score:      domain.ClampScore(score),
		Confidence: domain.ClampConfidence(confidence),
		Signals:    signals,
	}, nil
}

// trendCounts splits the window into the last velocityWindowDays and the
// velocityWindowDays before that, counting activities in each half.
func trendCounts(window domain.ActivityWindow) (recent, prior int) {
	recentCutoff := window.Now.Add(-velocityWindowDays * 24 * time.Hour)
	priorCutoff := window.Now.Add(-2 * velocityWindowDays * 24 * time.Hour)

	for _, a := range window.Activities {
		switch {
		case a.OccurredAt.After(recentCutoff):
			recent++
		case a.OccurredAt.After(priorCutoff):
			prior++
		}
	}
	return recent, prior
}

// timeframeUrgency maps a declared purchase timeframe to an urgency score.
func timeframeUrgency(days int) float64 {
	switch {
	case days <= 7:
		return 95
	case days <= 30:
		return 85
	case days <= 90:
		return 65
	case days <= 180:
		return 45
	default:
		return 30
	}
}

func timeframeSignal(days int, urgency float64) domain.Signal {
	direction := domain.SignalPositive
	if urgency < 50 {
		direction = domain.SignalNegative
	}
	return domain.Signal{
		Label:     fmt.Sprintf("declared timeframe of %d days", days),
		Weight:    urgencyShare,
		Direction: direction,
	}
}

// velocityScore maps the activity trend to 0-100 around a neutral 50.
// Acceleration pushes up, deceleration pushes down.
func velocityScore(recent, prior int) (float64, domain.Signal) {
	denom := float64(prior)
	if denom < 1 {
		denom = 1
	}
	accel := (float64(recent) - float64(prior)) / denom
	score := domain.ClampScore(50 + 35*math.Tanh(accel))

	var signal domain.Signal
	switch {
	case prior == 0 && recent > 0:
		signal = domain.Signal{
			Label:     fmt.Sprintf("newly engaged: %d activities in the last %d days", recent, velocityWindowDays),
			Weight:    velocityShare,
			Direction: domain.SignalPositive,
		}
	case recent > prior:
		signal = domain.Signal{
			Label:     fmt.Sprintf("activity accelerating: %d recent vs %d prior", recent, prior),
			Weight:    velocityShare,
			Direction: domain.SignalPositive,
		}
	case recent < prior:
		signal = domain.Signal{
			Label:     fmt.Sprintf("cooling: activity dropped from %d to %d between trend windows", prior, recent),
			Weight:    velocityShare,
			Direction: domain.SignalNegative,
		}
	default:
		signal = domain.Signal{
			Label:     fmt.Sprintf("steady activity: %d per trend window", recent),
			Weight:    velocityShare,
			Direction: domain.SignalPositive,
		}
	}

	return score, signal
}
