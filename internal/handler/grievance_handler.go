package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/grievance-api/internal/dto"
	"github.com/campuslink/grievance-api/internal/models"
	appErrors "github.com/campuslink/grievance-api/pkg/errors"
	"github.com/campuslink/grievance-api/pkg/response"
)

// GrievanceService defines the lifecycle operations the handler depends on.
type GrievanceService interface {
	Create(ctx context.Context, studentID string, req dto.CreateGrievanceRequest) (*models.Grievance, error)
	ListForStudent(ctx context.Context, studentID string, filter models.GrievanceFilter) ([]models.Grievance, *models.Pagination, error)
	ListForAuthority(ctx context.Context, authority models.AuthorityProfile, status *models.GrievanceStatus) ([]models.Grievance, error)
	ListAll(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Grievance, error)
	IsResponsible(authority models.AuthorityProfile, grievance models.Grievance) bool
	Transition(ctx context.Context, id string, authority models.AuthorityProfile, target models.GrievanceStatus, reply string, resolutionImageRef *string) (*models.Grievance, error)
	Retract(ctx context.Context, id, studentID string) error
	SubmitFeedback(ctx context.Context, id, studentID string, stars int) (*models.Grievance, error)
}

// AuthorityResolver looks up authority profiles referenced by token claims.
type AuthorityResolver interface {
	AuthorityByEmployeeID(ctx context.Context, employeeID string) (*models.AuthorityProfile, error)
}

// GrievanceHandler wires HTTP endpoints to the grievance service.
type GrievanceHandler struct {
	service  GrievanceService
	resolver AuthorityResolver
}

// NewGrievanceHandler creates a new handler.
func NewGrievanceHandler(svc GrievanceService, resolver AuthorityResolver) *GrievanceHandler {
	return &GrievanceHandler{service: svc, resolver: resolver}
}

// Create godoc
// @Summary File a grievance
// @Description Students file a new grievance against a category
// @Tags Grievances
// @Accept json
// @Produce json
// @Param payload body dto.CreateGrievanceRequest true "Grievance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grievances [post]
func (h *GrievanceHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grievance payload"))
		return
	}

	grievance, err := h.service.Create(c.Request.Context(), claims.ProfileID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, grievance)
}

// List godoc
// @Summary List grievances
// @Description Students see their own filings, authorities their routed subset, admins the full register
// @Tags Grievances
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grievances [get]
func (h *GrievanceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := filterFromQuery(c)

	switch claims.Role {
	case models.RoleStudent:
		grievances, pagination, err := h.service.ListForStudent(c.Request.Context(), claims.ProfileID, filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, grievances, pagination)
	case models.RoleAuthority:
		authority, err := h.authorityFromClaims(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		grievances, err := h.service.ListForAuthority(c.Request.Context(), *authority, filter.Status)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, grievances, nil)
	default:
		grievances, pagination, err := h.service.ListAll(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, grievances, pagination)
	}
}

// Get godoc
// @Summary Get a grievance
// @Description Returns a single grievance when the caller may see it
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grievances/{id} [get]
func (h *GrievanceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	grievance, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	switch claims.Role {
	case models.RoleStudent:
		if grievance.StudentID != claims.ProfileID {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "grievance not found"))
			return
		}
	case models.RoleAuthority:
		authority, err := h.authorityFromClaims(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !h.service.IsResponsible(*authority, *grievance) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "grievance not found"))
			return
		}
	}

	response.JSON(c, http.StatusOK, grievance, nil)
}

// Transition godoc
// @Summary Transition a grievance
// @Description Authorities resolve, escalate, or reject a pending grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.TransitionGrievanceRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grievances/{id}/status [patch]
func (h *GrievanceHandler) Transition(c *gin.Context) {
	authority, err := h.authorityFromClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TransitionGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}

	grievance, err := h.service.Transition(c.Request.Context(), c.Param("id"), *authority, models.GrievanceStatus(req.Status), req.Reply, req.ResolutionImageRef)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grievance, nil)
}

// Retract godoc
// @Summary Retract a grievance
// @Description Students withdraw a pending grievance within the grace window
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grievances/{id} [delete]
func (h *GrievanceHandler) Retract(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Retract(c.Request.Context(), c.Param("id"), claims.ProfileID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Feedback godoc
// @Summary Rate a resolution
// @Description Students submit one-shot satisfaction stars for a resolved grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.FeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grievances/{id}/feedback [post]
func (h *GrievanceHandler) Feedback(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}

	grievance, err := h.service.SubmitFeedback(c.Request.Context(), c.Param("id"), claims.ProfileID, req.Stars)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grievance, nil)
}

func (h *GrievanceHandler) authorityFromClaims(c *gin.Context) (*models.AuthorityProfile, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	authority, err := h.resolver.AuthorityByEmployeeID(c.Request.Context(), claims.ProfileID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no authority profile linked to this account")
	}
	return authority, nil
}

func filterFromQuery(c *gin.Context) models.GrievanceFilter {
	filter := models.GrievanceFilter{}
	if raw := c.Query("status"); raw != "" {
		status := models.GrievanceStatus(raw)
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		filter.PageSize = size
	}
	return filter
}
