// Package engine orchestrates score recomputation: per-lead serialization,
// idempotency, the concurrent factor fan-out, ensemble aggregation, and the
// transactional commit of history plus cache.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadscore_backend/internal/events"
	"leadscore_backend/internal/scoring/domain"
	"leadscore_backend/internal/scoring/factors"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/leaselock"
	"leadscore_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TriggerMessage is an activity-created notification requesting a
// recomputation. ActivityID doubles as the idempotency key.
type TriggerMessage struct {
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ActivityID     uuid.UUID `json:"activityId"`
}

// CommitScoreParams is the full output of one recomputation, persisted as a
// history record, the lead's cache update, and an outbox row in a single
// transaction.
type CommitScoreParams struct {
	LeadID           uuid.UUID
	OrganizationID   uuid.UUID
	ActivityID       uuid.UUID
	Score            float64
	Confidence       float64
	ModelVersion     string
	Breakdown        map[domain.Factor]domain.FactorScore
	Explanation      []string
	Recommendations  []string
	InsufficientData bool
}

// Repository is the storage port the engine depends on. The implementation
// lives in internal/scoring/repository; tests inject fakes.
type Repository interface {
	// GetLeadSnapshot loads the lead, scoped to the organization. Returns
	// apperr.KindNotFound when absent and apperr.KindForbidden when the lead
	// exists under a different tenant.
	GetLeadSnapshot(ctx context.Context, leadID, organizationID uuid.UUID) (domain.LeadSnapshot, error)
	// GetScoreByActivity returns the history record tagged with activityID,
	// or nil if the activity has not been processed.
	GetScoreByActivity(ctx context.Context, leadID, activityID uuid.UUID) (*domain.LeadScore, error)
	// ListActivities returns the lead's activities recorded since the cutoff.
	ListActivities(ctx context.Context, leadID, organizationID uuid.UUID, since time.Time) ([]domain.Activity, error)
	// GetSettings returns the tenant's scoring settings, defaults when unset.
	GetSettings(ctx context.Context, organizationID uuid.UUID) (domain.TenantSettings, error)
	// CommitScore atomically appends the history record, refreshes the
	// lead's cached score, and stages the lead.scored outbox row.
	CommitScore(ctx context.Context, params CommitScoreParams) (domain.LeadScore, error)
}

// Engine recomputes lead scores. Safe for concurrent use; per-lead ordering
// is enforced by the lease registry, not by the Engine itself.
type Engine struct {
	repo    Repository
	locks   *leaselock.Registry
	scorers []factors.Scorer
	bus     events.Bus
	log     *logger.Logger
	metrics *Metrics

	lockWait time.Duration
	now      func() time.Time
}

// New creates an Engine. scorers defaults to the standard four when nil.
func New(repo Repository, locks *leaselock.Registry, scorers []factors.Scorer, bus events.Bus, log *logger.Logger, metrics *Metrics, lockWait time.Duration) *Engine {
	if scorers == nil {
		scorers = factors.Defaults()
	}
	if lockWait <= 0 {
		lockWait = 2 * time.Second
	}
	return &Engine{
		repo:     repo,
		locks:    locks,
		scorers:  scorers,
		bus:      bus,
		log:      log,
		metrics:  metrics,
		lockWait: lockWait,
		now:      time.Now,
	}
}

// Recompute processes one trigger notification end to end and returns the
// committed history record. It is idempotent on ActivityID: a duplicate
// trigger returns the existing record without rescoring.
//
// Error kinds map to the worker's retry policy: KindValidation, KindNotFound,
// and KindForbidden are dropped; KindUnavailable (lock contention,
// persistence failure) and KindTimeout are retried with backoff.
func (e *Engine) Recompute(ctx context.Context, msg TriggerMessage) (domain.LeadScore, error) {
	started := e.now()

	if msg.LeadID == uuid.Nil || msg.OrganizationID == uuid.Nil || msg.ActivityID == uuid.Nil {
		e.metrics.RecomputeOutcome(OutcomeDropped)
		return domain.LeadScore{}, apperr.Validation("trigger requires leadId, organizationId, and activityId")
	}

	log := e.log.WithTenant(msg.OrganizationID).WithLead(msg.LeadID)

	lead, err := e.repo.GetLeadSnapshot(ctx, msg.LeadID, msg.OrganizationID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindForbidden) {
			e.metrics.RecomputeOutcome(OutcomeDropped)
			log.TriggerDropped(err.Error(), msg.LeadID, msg.ActivityID)
		}
		return domain.LeadScore{}, err
	}

	// Cheap pre-lock duplicate check; re-checked under the lock below.
	if existing, err := e.repo.GetScoreByActivity(ctx, msg.LeadID, msg.ActivityID); err != nil {
		return domain.LeadScore{}, apperr.Wrap(apperr.KindUnavailable, "failed to check idempotency", err)
	} else if existing != nil {
		e.metrics.RecomputeOutcome(OutcomeDuplicate)
		return *existing, nil
	}

	lease, err := e.locks.Acquire(ctx, msg.LeadID.String(), e.lockWait)
	if err != nil {
		if errors.Is(err, leaselock.ErrBusy) {
			e.metrics.RecomputeOutcome(OutcomeRetryable)
			return domain.LeadScore{}, apperr.Wrap(apperr.KindUnavailable, "lead is being rescored by another worker", err)
		}
		return domain.LeadScore{}, apperr.Wrap(apperr.KindUnavailable, "failed to acquire lead lock", err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			log.Warn("failed to release lead lock", "error", err)
		}
	}()

	// A concurrent worker may have committed this activity between the
	// pre-lock check and our acquisition.
	if existing, err := e.repo.GetScoreByActivity(ctx, msg.LeadID, msg.ActivityID); err != nil {
		return domain.LeadScore{}, apperr.Wrap(apperr.KindUnavailable, "failed to check idempotency", err)
	} else if existing != nil {
		e.metrics.RecomputeOutcome(OutcomeDuplicate)
		return *existing, nil
	}

	settings, err := e.repo.GetSettings(ctx, msg.OrganizationID)
	if err != nil {
		return domain.LeadScore{}, apperr.Wrap(apperr.KindUnavailable, "failed to load tenant settings", err)
	}
	settings = settings.Normalize()

	runCtx, cancel := context.WithTimeout(ctx, settings.RecomputeTimeout)
	defer cancel()

	since := e.now().Add(-time.Duration(settings.ActivityWindowDays) * 24 * time.Hour)
	activities, err := e.repo.ListActivities(runCtx, msg.LeadID, msg.OrganizationID, since)
	if err != nil {
		return domain.LeadScore{}, apperr.Wrap(apperr.KindUnavailable, "failed to load activity window", err)
	}
	window := domain.ActivityWindow{Activities: activities, Now: e.now()}

	results := e.runScorers(runCtx, lead, window, settings)
	combined := Combine(results, settings.FactorWeights)

	if runCtx.Err() != nil {
		e.metrics.RecomputeOutcome(OutcomeRetryable)
		return domain.LeadScore{}, apperr.Timeout("recomputation exceeded its budget")
	}

	record, err := e.repo.CommitScore(runCtx, CommitScoreParams{
		LeadID:           msg.LeadID,
		OrganizationID:   msg.OrganizationID,
		ActivityID:       msg.ActivityID,
		Score:            combined.Score,
		Confidence:       combined.Confidence,
		ModelVersion:     domain.ModelVersion,
		Breakdown:        combined.Breakdown,
		Explanation:      BuildExplanation(combined, settings.ExplanationTopN),
		Recommendations:  Recommend(combined),
		InsufficientData: combined.InsufficientData,
	})
	if err != nil {
		e.metrics.RecomputeOutcome(OutcomeRetryable)
		return domain.LeadScore{}, apperr.Wrap(apperr.KindUnavailable, "failed to persist score", err)
	}

	// Best-effort in-process fan-out; durable delivery goes through the
	// outbox row committed above.
	e.bus.Publish(ctx, events.LeadScored{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         record.LeadID,
		OrganizationID: record.OrganizationID,
		Score:          record.Score,
		Confidence:     record.Confidence,
		ScoreID:        record.ID,
		CreatedAt:      record.CreatedAt,
	})

	elapsed := e.now().Sub(started)
	e.metrics.RecomputeOutcome(OutcomeSuccess)
	e.metrics.RecomputeDuration(elapsed)
	log.ScoreComputed(record.LeadID, record.ActivityID, record.Score, record.Confidence, float64(elapsed.Milliseconds()))

	return record, nil
}

// runScorers fans the four scorers out concurrently. Every scorer settles
// within its own budget: a timeout or error becomes a neutral
// zero-confidence result with an explanatory signal, never a run failure.
func (e *Engine) runScorers(ctx context.Context, lead domain.LeadSnapshot, window domain.ActivityWindow, settings domain.TenantSettings) []domain.FactorScore {
	results := make([]domain.FactorScore, len(e.scorers))

	var g errgroup.Group
	for i, scorer := range e.scorers {
		g.Go(func() error {
			results[i] = e.runScorer(ctx, scorer, lead, window, settings)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) runScorer(ctx context.Context, scorer factors.Scorer, lead domain.LeadSnapshot, window domain.ActivityWindow, settings domain.TenantSettings) domain.FactorScore {
	scorerCtx, cancel := context.WithTimeout(ctx, settings.ScorerTimeout)
	defer cancel()

	type outcome struct {
		result domain.FactorScore
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := scorer.Score(scorerCtx, lead, window, settings)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-scorerCtx.Done():
		e.metrics.ScorerTimeout(string(scorer.Name()))
		e.log.ScorerTimedOut(string(scorer.Name()), lead.ID, settings.ScorerTimeout.Milliseconds())
		return domain.Neutral(scorer.Name(), fmt.Sprintf("%s scorer timed out and was excluded from this run", scorer.Name()))
	case out := <-done:
		if out.err != nil {
			e.log.Warn("scorer failed", "factor", string(scorer.Name()), "error", out.err)
			return domain.Neutral(scorer.Name(), fmt.Sprintf("%s scorer failed and was excluded from this run", scorer.Name()))
		}
		out.result.Score = domain.ClampScore(out.result.Score)
		out.result.Confidence = domain.ClampConfidence(out.result.Confidence)
		return out.result
	}
}
