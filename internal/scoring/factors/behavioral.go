package factors

import (
	"context"
	"fmt"
	"math"
	"time"

	"leadscore_backend/internal/scoring/domain"
)

// Base engagement value per activity type. Meetings are the strongest
// commitment signal, passive page views the weakest.
var activityBaseWeights = map[domain.ActivityType]float64{
	domain.ActivityMeeting:     10,
	domain.ActivityCall:        8,
	domain.ActivityStageChange: 6,
	domain.ActivityMessage:     5,
	domain.ActivityPageView:    2,
	domain.ActivityNote:        1,
}

const (
	// inboundBoost multiplies lead-initiated activity. A lead reaching out
	// is worth more than being reached.
	inboundBoost = 1.5

	// engagementSaturation controls how fast the decayed index saturates
	// toward 100. One fresh inbound meeting lands in the low 80s.
	engagementSaturation = 8.0

	// behavioralConfidenceRate: confidence approaches 1 as the window fills;
	// three activities already give ~0.63.
	behavioralConfidenceRate = 3.0
)

// Behavioral computes an exponentially decayed engagement index over the
// activity window. Recent, frequent, high-value, lead-initiated activity
// scores higher; the decay half-life is tenant-configurable.
type Behavioral struct{}

func (b *Behavioral) Name() domain.Factor { return domain.FactorBehavioral }

func (b *Behavioral) Score(_ context.Context, _ domain.LeadSnapshot, window domain.ActivityWindow, settings domain.TenantSettings) (domain.FactorScore, error) {
	activities := sortedByTime(window)
	if len(activities) == 0 {
		return domain.Neutral(domain.FactorBehavioral, "no activity recorded in the scoring window"), nil
	}

	halfLife := time.Duration(settings.DecayHalfLifeDays) * 24 * time.Hour

	index := 0.0
	inboundIndex := 0.0
	perType := make(map[domain.ActivityType]float64)
	for _, a := range activities {
		base := activityBaseWeights[a.Type]
		if a.Direction == domain.DirectionInbound {
			base *= inboundBoost
		}

		age := window.Now.Sub(a.OccurredAt)
		if age < 0 {
			age = 0
		}
		contribution := base * math.Exp2(-age.Hours()/halfLife.Hours())

		index += contribution
		perType[a.Type] += contribution
		if a.Direction == domain.DirectionInbound {
			inboundIndex += contribution
		}
	}

	score := domain.ClampScore(100 * (1 - math.Exp(-index/engagementSaturation)))
	confidence := domain.ClampConfidence(1 - math.Exp(-float64(len(activities))/behavioralConfidenceRate))

	return domain.FactorScore{
		Factor:     domain.FactorBehavioral,
		Score:      score,
		Confidence: confidence,
		Signals:    behavioralSignals(index, inboundIndex, perType),
	}, nil
}

// behavioralSignals explains the index: the two dominant activity types plus
// the inbound/outbound balance.
func behavioralSignals(index, inboundIndex float64, perType map[domain.ActivityType]float64) []domain.Signal {
	signals := make([]domain.Signal, 0, 3)

	first, second := dominantTypes(perType)
	if first != "" {
		signals = append(signals, domain.Signal{
			Label:     fmt.Sprintf("recent %s activity is driving engagement", first),
			Weight:    perType[first] / index,
			Direction: domain.SignalPositive,
		})
	}
	if second != "" {
		signals = append(signals, domain.Signal{
			Label:     fmt.Sprintf("supported by recent %s activity", second),
			Weight:    perType[second] / index,
			Direction: domain.SignalPositive,
		})
	}

	inboundShare := inboundIndex / index
	if inboundShare >= 0.5 {
		signals = append(signals, domain.Signal{
			Label:     "engagement is mostly lead-initiated",
			Weight:    inboundShare,
			Direction: domain.SignalPositive,
		})
	} else {
		signals = append(signals, domain.Signal{
			Label:     "engagement is mostly outbound outreach",
			Weight:    1 - inboundShare,
			Direction: domain.SignalNegative,
		})
	}

	return signals
}

func dominantTypes(perType map[domain.ActivityType]float64) (first, second domain.ActivityType) {
	var firstVal, secondVal float64
	// Iterate in canonical order so equal contributions break ties deterministically.
	for _, t := range []domain.ActivityType{
		domain.ActivityMeeting,
		domain.ActivityCall,
		domain.ActivityStageChange,
		domain.ActivityMessage,
		domain.ActivityPageView,
		domain.ActivityNote,
	} {
		v, ok := perType[t]
		if !ok || v == 0 {
			continue
		}
		switch {
		case v > firstVal:
			second, secondVal = first, firstVal
			first, firstVal = t, v
		case v > secondVal:
			second, secondVal = t, v
		}
	}
	return first, second
}
