package worker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"leadscore_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TriggerEnqueuer is the port the HTTP handler uses to submit recompute
// triggers without depending on the queue implementation.
type TriggerEnqueuer interface {
	EnqueueScoreRecompute(ctx context.Context, payload ScoreRecomputePayload) error
}

type Client struct {
	client     *asynq.Client
	queue      string
	maxRetries int
}

func NewClient(cfg config.WorkerConfig) (*Client, error) {
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

	maxRetries := cfg.GetMaxRetries()
	if maxRetries < 1 {
		maxRetries = 5
	}

	return &Client{
		client:     asynq.NewClient(opt),
		queue:      queue,
		maxRetries: maxRetries,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueScoreRecompute submits a trigger. The activity id doubles as the
// task id, so a duplicate submission while the first is queued or running is
// absorbed here instead of reaching the engine.
func (c *Client) EnqueueScoreRecompute(ctx context.Context, payload ScoreRecomputePayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewScoreRecomputeTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID("recompute:"+payload.ActivityID),
		asynq.MaxRetry(c.maxRetries),
		asynq.Retention(time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueLeadScoredDeliver submits a claimed outbox row for delivery.
func (c *Client) EnqueueLeadScoredDeliver(ctx context.Context, payload LeadScoredDeliverPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadScoredDeliverTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetries),
	)
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
