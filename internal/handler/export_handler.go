package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/grievance-api/internal/dto"
	"github.com/campuslink/grievance-api/internal/models"
	appErrors "github.com/campuslink/grievance-api/pkg/errors"
	"github.com/campuslink/grievance-api/pkg/response"
)

// ExportService defines the report operations the handler depends on.
type ExportService interface {
	Request(ctx context.Context, format models.ReportFormat, requestedBy, scopeEmployeeID string) (*models.ReportJob, error)
	Status(jobID string) (*models.ReportJob, error)
	Download(token string) (*os.File, *models.ReportJob, error)
}

// ExportHandler wires HTTP endpoints to the report pipeline.
type ExportHandler struct {
	service ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Request godoc
// @Summary Request a grievance register export
// @Description Enqueues a CSV or PDF export; authorities receive their routed subset
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	scope := ""
	if claims.Role == models.RoleAuthority {
		scope = claims.ProfileID
	}

	job, err := h.service.Request(c.Request.Context(), models.ReportFormat(req.Format), claims.UserID, scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Report job status
// @Description Returns the state of an export job, with a download token once completed
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.service.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.Role != models.RoleAdmin && job.RequestedBy != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report job not found"))
		return
	}

	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a generated report
// @Description Streams the rendered file for a valid signed token
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, job, err := h.service.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	contentType := "text/csv"
	if job.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	filename := filepath.Base(job.FilePath)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Cache-Control", "no-store")

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report file"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
