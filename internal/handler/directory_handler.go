package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/grievance-api/internal/models"
	"github.com/campuslink/grievance-api/pkg/response"
)

// DirectoryService lists the authority directory.
type DirectoryService interface {
	ListAuthorities(ctx context.Context) ([]models.AuthorityProfile, error)
}

// DirectoryHandler serves the authority directory.
type DirectoryHandler struct {
	service DirectoryService
}

// NewDirectoryHandler creates a new handler.
func NewDirectoryHandler(svc DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// List godoc
// @Summary List authorities
// @Description Returns the authority directory ordered by department
// @Tags Directory
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /authorities [get]
func (h *DirectoryHandler) List(c *gin.Context) {
	authorities, err := h.service.ListAuthorities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, authorities, nil)
}
