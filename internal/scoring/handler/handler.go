// Package handler exposes the scoring HTTP API: the internal trigger
// endpoint collaborating services call after recording an activity, and the
// read endpoints for the current score and history.
package handler

import (
	"net/http"

	"leadscore_backend/internal/scoring/repository"
	"leadscore_backend/internal/scoring/transport"
	"leadscore_backend/internal/worker"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/httpkit"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for lead scoring.
type Handler struct {
	repo     *repository.Repository
	enqueuer worker.TriggerEnqueuer
	val      *validator.Validator
	log      *logger.Logger
}

// New creates a new scoring handler.
func New(repo *repository.Repository, enqueuer worker.TriggerEnqueuer, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{repo: repo, enqueuer: enqueuer, val: val, log: log}
}

// RegisterLeadRoutes registers the read endpoints under /leads.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/score", h.GetScore)
	rg.GET("/:id/score/history", h.GetScoreHistory)
}

// RegisterInternalRoutes registers the trigger endpoint under /internal.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.POST("/activities/:activityId/score-trigger", h.TriggerScore)
}

// TriggerScore handles POST /api/v1/internal/activities/:activityId/score-trigger.
// It validates the request, enqueues a recompute, and returns 202. The
// computation itself is asynchronous; duplicates deduplicate on activity id.
func (h *Handler) TriggerScore(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	activityID, err := uuid.Parse(c.Param("activityId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "activityId must be a UUID")
		return
	}

	var req transport.TriggerScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "leadId must be a UUID")
		return
	}

	// The activity must exist under the caller's tenant before anything is
	// queued; a trigger for a foreign or unknown activity is rejected here.
	activity, err := h.repo.GetActivity(c.Request.Context(), activityID, identity.OrganizationID())
	if httpkit.HandleError(c, err) {
		return
	}
	if activity.LeadID != leadID {
		httpkit.HandleError(c, apperr.Validation("activity does not belong to the given lead"))
		return
	}

	err = h.enqueuer.EnqueueScoreRecompute(c.Request.Context(), worker.ScoreRecomputePayload{
		LeadID:         leadID.String(),
		OrganizationID: identity.OrganizationID().String(),
		ActivityID:     activityID.String(),
	})
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "failed to enqueue recompute", err))
		return
	}

	httpkit.Accepted(c, transport.TriggerScoreResponse{
		Status:     "queued",
		LeadID:     leadID.String(),
		ActivityID: activityID.String(),
	})
}

// GetScore handles GET /api/v1/leads/:id/score. Returns the cached latest
// score with a staleness flag, or 404 when the lead was never scored.
func (h *Handler) GetScore(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "lead id must be a UUID")
		return
	}

	current, err := h.repo.GetLatest(c.Request.Context(), leadID, identity.OrganizationID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToScoreResponse(current.Record, current.Stale))
}

// GetScoreHistory handles GET /api/v1/leads/:id/score/history.
func (h *Handler) GetScoreHistory(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "lead id must be a UUID")
		return
	}

	var req transport.ListHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	items, err := h.repo.ListHistory(c.Request.Context(), leadID, identity.OrganizationID(), req.Limit, req.Before)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ScoreHistoryResponse{
		Items: make([]transport.ScoreResponse, 0, len(items)),
	}
	for _, record := range items {
		resp.Items = append(resp.Items, transport.ToScoreResponse(record, false))
	}
	if len(items) > 0 {
		last := items[len(items)-1].CreatedAt
		resp.NextBefore = &last
	}

	httpkit.OK(c, resp)
}
