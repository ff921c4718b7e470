package engine

import (
	"fmt"
	"sort"

	"leadscore_backend/internal/scoring/domain"
)

// InsufficientDataMarker is the explanation emitted when no factor had
// enough data to score.
const InsufficientDataMarker = "insufficient data: no scorable signals for this lead yet"

// BuildExplanation renders the ensemble's signals as an ordered, deterministic
// list of strings. Signals are ranked by their absolute weighted contribution
// to the final score (factor share times signal weight) and truncated to
// topN. Failure notes from zero-confidence factors (timeouts, scorer errors)
// are always appended so a degraded run is visible in its own explanation.
func BuildExplanation(res EnsembleResult, topN int) []string {
	if res.InsufficientData {
		out := []string{InsufficientDataMarker}
		return append(out, failureNotes(res)...)
	}
	if topN < 1 {
		topN = domain.DefaultExplanationTopN
	}

	type entry struct {
		factor       domain.Factor
		signal       domain.Signal
		contribution float64
	}

	entries := make([]entry, 0, 8)
	for _, factor := range domain.AllFactors() {
		fs, ok := res.Breakdown[factor]
		if !ok || fs.Confidence == 0 {
			continue
		}
		share := res.Shares[factor]
		for _, s := range fs.Signals {
			entries = append(entries, entry{
				factor:       factor,
				signal:       s,
				contribution: share * s.Weight,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].contribution != entries[j].contribution {
			return entries[i].contribution > entries[j].contribution
		}
		if entries[i].factor != entries[j].factor {
			return entries[i].factor < entries[j].factor
		}
		return entries[i].signal.Label < entries[j].signal.Label
	})

	if len(entries) > topN {
		entries = entries[:topN]
	}

	out := make([]string, 0, len(entries)+2)
	for _, e := range entries {
		out = append(out, formatSignal(e.factor, e.signal))
	}
	return append(out, failureNotes(res)...)
}

// failureNotes collects the explanatory signals of factors that contributed
// nothing: failed, timed out, or had no data.
func failureNotes(res EnsembleResult) []string {
	notes := make([]string, 0, 2)
	for _, factor := range domain.AllFactors() {
		fs, ok := res.Breakdown[factor]
		if !ok || fs.Confidence > 0 {
			continue
		}
		for _, s := range fs.Signals {
			notes = append(notes, formatSignal(factor, s))
		}
	}
	return notes
}

func formatSignal(factor domain.Factor, s domain.Signal) string {
	marker := "+"
	if s.Direction == domain.SignalNegative {
		marker = "-"
	}
	return fmt.Sprintf("[%s] %s (%s)", factor, s.Label, marker)
}

// Recommendation texts. Template-filled from factor data only; no free-text
// generation, so output is fully reproducible.
const (
	recCollectData   = "Collect profile and engagement data before outreach."
	recContact24h    = "Contact within 24 hours before urgency decays."
	recCloseNow      = "Urgency and intent are both high: schedule a closing conversation now."
	recNurture       = "Nurture steadily: engaged but not urgent."
	recDiscoveryCall = "Schedule a discovery call to gauge intent."
	recReEngage      = "Re-engage with fresh content before interest fades."
	recHotDefault    = "Prioritize immediate outreach by a senior closer."
	recWarmDefault   = "Follow up this week to maintain momentum."
	recCoolDefault   = "Add to a nurture cadence and revisit in two weeks."
	recColdDefault   = "Deprioritize: poor profile fit and no engagement detected."
)

const maxRecommendations = 3

// Recommend produces suggested next actions from a small rule table keyed on
// the score band and the high/low pattern of the factor breakdown. Rules are
// evaluated in fixed order; the band default always closes the list.
func Recommend(res EnsembleResult) []string {
	if res.InsufficientData {
		return []string{recCollectData}
	}

	high := func(f domain.Factor) bool {
		fs := res.Breakdown[f]
		return fs.Confidence > 0 && fs.Score >= 70
	}
	low := func(f domain.Factor) bool {
		fs := res.Breakdown[f]
		return fs.Confidence == 0 || fs.Score < 40
	}

	band := domain.BandFor(res.Score)
	recs := make([]string, 0, maxRecommendations)
	add := func(text string) {
		if len(recs) >= maxRecommendations {
			return
		}
		for _, existing := range recs {
			if existing == text {
				return
			}
		}
		recs = append(recs, text)
	}

	switch {
	case high(domain.FactorTemporal) && high(domain.FactorConversational):
		add(recCloseNow)
	case high(domain.FactorTemporal) && low(domain.FactorConversational):
		add(recContact24h)
	case high(domain.FactorBehavioral) && low(domain.FactorTemporal):
		add(recNurture)
	}

	if low(domain.FactorConversational) && (band == domain.BandWarm || band == domain.BandHot) {
		add(recDiscoveryCall)
	}

	temporal := res.Breakdown[domain.FactorTemporal]
	behavioral := res.Breakdown[domain.FactorBehavioral]
	if temporal.Confidence > 0 && temporal.Score < 45 && behavioral.Confidence > 0 {
		add(recReEngage)
	}

	switch band {
	case domain.BandHot:
		add(recHotDefault)
	case domain.BandWarm:
		add(recWarmDefault)
	case domain.BandCool:
		add(recCoolDefault)
	default:
		add(recColdDefault)
	}

	return recs
}
