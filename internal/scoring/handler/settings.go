package handler

import (
	"fmt"
	"net/http"

	"leadscore_backend/internal/scoring/domain"
	"leadscore_backend/internal/scoring/transport"
	"leadscore_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// RegisterSettingsRoutes registers the tenant configuration endpoints.
func (h *Handler) RegisterSettingsRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetSettings)
	rg.PUT("", h.UpdateSettings)
}

// GetSettings handles GET /api/v1/scoring/settings. Returns the effective
// configuration for the caller's organization, defaults included.
func (h *Handler) GetSettings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	settings, err := h.repo.GetSettings(c.Request.Context(), identity.OrganizationID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToSettingsResponse(settings))
}

// UpdateSettings handles PUT /api/v1/scoring/settings. The stored document
// replaces the previous one; the response shows the normalized result.
func (h *Handler) UpdateSettings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if err := validateFactorNames(req.FactorWeights); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	settings, err := h.repo.UpsertSettings(c.Request.Context(), identity.OrganizationID(), req.ToSettings())
	if httpkit.HandleError(c, err) {
		return
	}

	h.log.SettingsUpdated(identity.OrganizationID().String())
	httpkit.OK(c, transport.ToSettingsResponse(settings))
}

func validateFactorNames(weights map[string]float64) error {
	known := make(map[string]struct{}, 4)
	for _, f := range domain.AllFactors() {
		known[string(f)] = struct{}{}
	}
	for name := range weights {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown factor %q in factorWeights", name)
		}
	}
	return nil
}
