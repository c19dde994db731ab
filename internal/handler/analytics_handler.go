package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/grievance-api/internal/models"
	appErrors "github.com/campuslink/grievance-api/pkg/errors"
	"github.com/campuslink/grievance-api/pkg/response"
)

// AnalyticsService defines the aggregation operations the handler depends on.
type AnalyticsService interface {
	Stats(ctx context.Context, scope *models.AuthorityProfile) (*models.GrievanceStats, bool, error)
}

// AnalyticsHandler serves grievance statistics.
type AnalyticsHandler struct {
	service  AnalyticsService
	resolver AuthorityResolver
}

// NewAnalyticsHandler creates a new handler.
func NewAnalyticsHandler(svc AnalyticsService, resolver AuthorityResolver) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc, resolver: resolver}
}

// Stats godoc
// @Summary Grievance statistics
// @Description Admins see the global register; authorities see their routed subset
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var scope *models.AuthorityProfile
	if claims.Role == models.RoleAuthority {
		authority, err := h.resolver.AuthorityByEmployeeID(c.Request.Context(), claims.ProfileID)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no authority profile linked to this account"))
			return
		}
		scope = authority
	}

	stats, cached, err := h.service.Stats(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cache": cached})
}
