package worker

import (
	"context"
	"fmt"
	"math"
	"time"

	"leadscore_backend/internal/events"
	"leadscore_backend/internal/scoring/engine"
	"leadscore_backend/internal/scoring/repository"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine *engine.Engine
	repo   *repository.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.WorkerConfig, eng *engine.Engine, repo *repository.Repository, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		RetryDelayFunc: retryDelay,
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: eng,
		repo:   repo,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskScoreRecompute, w.handleScoreRecompute)
	mux.HandleFunc(TaskLeadScoredDeliver, w.handleLeadScoredDeliver)

	return w, nil
}

// retryDelay backs off exponentially: 1s, 2s, 4s, 8s, 16s. Tasks that
// exhaust their retries land in asynq's archive for inspection.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(math.Pow(2, float64(n))) * time.Second
}

// handleScoreRecompute runs the engine for one trigger. Permanent failures
// (validation, missing lead, tenant mismatch) are dropped via SkipRetry;
// transient ones (lock contention, persistence, timeout) are retried.
func (w *Worker) handleScoreRecompute(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseScoreRecomputePayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	msg, err := triggerMessage(payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if _, err := w.engine.Recompute(ctx, msg); err != nil {
		if !apperr.IsRetryable(err) {
			w.log.TriggerDropped(err.Error(), msg.LeadID, msg.ActivityID)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// handleLeadScoredDeliver publishes a claimed outbox row to subscribers and
// finalizes it. Consumers must tolerate duplicates: a crash between publish
// and the delivered mark replays the event.
func (w *Worker) handleLeadScoredDeliver(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadScoredDeliverPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("invalid outbox id: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.publishOutboxRow(ctx, outboxID); err != nil {
		msg := err.Error()
		if markErr := w.repo.MarkOutboxPending(ctx, outboxID, &msg); markErr != nil {
			w.log.DatabaseError("outbox mark pending", markErr)
		}
		return err
	}

	return w.repo.MarkOutboxDelivered(ctx, outboxID)
}

func (w *Worker) publishOutboxRow(ctx context.Context, outboxID uuid.UUID) error {
	event, err := w.repo.GetOutboxEvent(ctx, outboxID)
	if err != nil {
		return err
	}
	return w.bus.PublishSync(ctx, event)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scoring worker stopped", "error", err)
	}
}

func triggerMessage(payload ScoreRecomputePayload) (engine.TriggerMessage, error) {
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return engine.TriggerMessage{}, fmt.Errorf("invalid lead id: %w", err)
	}
	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return engine.TriggerMessage{}, fmt.Errorf("invalid organization id: %w", err)
	}
	activityID, err := uuid.Parse(payload.ActivityID)
	if err != nil {
		return engine.TriggerMessage{}, fmt.Errorf("invalid activity id: %w", err)
	}
	return engine.TriggerMessage{LeadID: leadID, OrganizationID: orgID, ActivityID: activityID}, nil
}
