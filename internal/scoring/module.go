// Package scoring provides the lead scoring domain module: the engine that
// recomputes scores, the HTTP surface for triggers and reads, and the
// persistence behind both.
package scoring

import (
	"time"

	apphttp "leadscore_backend/internal/http"
	"leadscore_backend/internal/scoring/engine"
	"leadscore_backend/internal/scoring/handler"
	"leadscore_backend/internal/scoring/repository"
	"leadscore_backend/internal/worker"
	"leadscore_backend/platform/events"
	"leadscore_backend/platform/leaselock"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const leadLockPrefix = "lock:lead:"

// Module represents the scoring domain module.
type Module struct {
	handler    *handler.Handler
	engine     *engine.Engine
	repository *repository.Repository
}

// Deps carries the infrastructure the module is wired with.
type Deps struct {
	Pool      *pgxpool.Pool
	Redis     redis.UniversalClient
	Bus       events.Bus
	Logger    *logger.Logger
	Validator *validator.Validator
	Metrics   *engine.Metrics
	Enqueuer  worker.TriggerEnqueuer
	LockTTL   time.Duration
	LockWait  time.Duration
}

// NewModule creates the scoring module with all dependencies wired.
func NewModule(deps Deps) *Module {
	repo := repository.New(deps.Pool)
	locks := leaselock.New(deps.Redis, leadLockPrefix, deps.LockTTL)
	eng := engine.New(repo, locks, nil, deps.Bus, deps.Logger, deps.Metrics, deps.LockWait)
	h := handler.New(repo, deps.Enqueuer, deps.Validator, deps.Logger)

	return &Module{
		handler:    h,
		engine:     eng,
		repository: repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "scoring"
}

// Engine exposes the recompute engine for the worker binary.
func (m *Module) Engine() *engine.Engine {
	return m.engine
}

// Repository exposes persistence for the worker's outbox dispatcher.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes mounts the scoring endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterLeadRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterSettingsRoutes(ctx.Protected.Group("/scoring/settings"))
	m.handler.RegisterInternalRoutes(ctx.Internal)
}

var _ apphttp.Module = (*Module)(nil)
