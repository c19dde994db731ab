package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuslink/grievance-api/internal/models"
	appErrors "github.com/campuslink/grievance-api/pkg/errors"
	"github.com/campuslink/grievance-api/pkg/export"
	"github.com/campuslink/grievance-api/pkg/jobs"
	"github.com/campuslink/grievance-api/pkg/storage"
)

type exportProfileReader interface {
	AuthorityByEmployeeID(ctx context.Context, employeeID string) (*models.AuthorityProfile, error)
}

var reportHeaders = []string{"ID", "Student", "Category", "Status", "Filed", "Resolved", "Reply", "Feedback"}

// ExportService generates grievance register reports asynchronously. Jobs are
// tracked in memory; the rendered files live on disk and downloads go through
// signed tokens so the storage directory is never exposed directly.
type ExportService struct {
	grievances grievanceRepository
	profiles   exportProfileReader
	routing    *RoutingService
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	queue      *jobs.Queue
	logger     *zap.Logger
	now        func() time.Time

	mu   sync.RWMutex
	jobs map[string]*models.ReportJob
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Grievances  grievanceRepository
	Profiles    exportProfileReader
	Routing     *RoutingService
	Store       *storage.LocalStorage
	Signer      *storage.SignedURLSigner
	Logger      *zap.Logger
	Concurrency int
	Retries     int
}

// NewExportService constructs the export pipeline and its worker queue.
// Call Start before enqueueing reports.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	routing := params.Routing
	if routing == nil {
		routing = NewRoutingService()
	}
	s := &ExportService{
		grievances: params.Grievances,
		profiles:   params.Profiles,
		routing:    routing,
		store:      params.Store,
		signer:     params.Signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
		now:        time.Now,
		jobs:       make(map[string]*models.ReportJob),
	}
	s.queue = jobs.NewQueue("reports", s.process, jobs.QueueConfig{
		Workers:    params.Concurrency,
		MaxRetries: params.Retries,
		Logger:     logger,
	})
	return s
}

// Start launches the report workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Request enqueues a new report job. scopeEmployeeID narrows the register to
// one authority's routed subset; empty means the full register.
func (s *ExportService) Request(ctx context.Context, format models.ReportFormat, requestedBy, scopeEmployeeID string) (*models.ReportJob, error) {
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if scopeEmployeeID != "" {
		if _, err := s.profiles.AuthorityByEmployeeID(ctx, scopeEmployeeID); err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "authority not found")
		}
	}

	job := &models.ReportJob{
		ID:              uuid.NewString(),
		Format:          format,
		RequestedBy:     requestedBy,
		ScopeEmployeeID: scopeEmployeeID,
		Status:          models.ReportJobQueued,
		CreatedAt:       s.now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report"}); err != nil {
		s.setFailure(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report")
	}
	return s.snapshot(job.ID), nil
}

// Status returns the current job state.
func (s *ExportService) Status(jobID string) (*models.ReportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	return job, nil
}

// Download validates a signed token and opens the rendered file.
func (s *ExportService) Download(token string) (*os.File, *models.ReportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job := s.snapshot(jobID)
	if job == nil || job.Status != models.ReportJobCompleted || job.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report not available")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	return file, job, nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	req := s.snapshot(job.ID)
	if req == nil {
		return fmt.Errorf("unknown report job %s", job.ID)
	}
	s.setStatus(job.ID, models.ReportJobProcessing)

	grievances, err := s.grievances.ListAll(ctx)
	if err != nil {
		s.setFailure(job.ID, err)
		return err
	}
	if req.ScopeEmployeeID != "" {
		authority, err := s.profiles.AuthorityByEmployeeID(ctx, req.ScopeEmployeeID)
		if err != nil {
			s.setFailure(job.ID, err)
			return err
		}
		grievances = s.routing.Filter(*authority, grievances)
	}

	dataset := buildRegisterDataset(grievances)

	var rendered []byte
	switch req.Format {
	case models.ReportFormatPDF:
		rendered, err = s.pdf.Render(dataset, "Grievance Register")
	default:
		rendered, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.setFailure(job.ID, err)
		return err
	}

	relPath := fmt.Sprintf("reports/%s.%s", req.ID, req.Format)
	if _, err := s.store.Save(relPath, rendered); err != nil {
		s.setFailure(job.ID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(req.ID, relPath)
	if err != nil {
		s.setFailure(job.ID, err)
		return err
	}

	completedAt := s.now().UTC()
	s.mu.Lock()
	if stored, ok := s.jobs[req.ID]; ok {
		stored.Status = models.ReportJobCompleted
		stored.FilePath = relPath
		stored.DownloadToken = token
		stored.ExpiresAt = &expiresAt
		stored.Error = ""
		stored.CompletedAt = &completedAt
	}
	s.mu.Unlock()

	s.logger.Info("report generated",
		zap.String("job_id", req.ID),
		zap.String("format", string(req.Format)),
		zap.Int("rows", len(dataset.Rows)))
	return nil
}

func buildRegisterDataset(grievances []models.Grievance) export.Dataset {
	rows := make([]map[string]string, 0, len(grievances))
	for _, g := range grievances {
		row := map[string]string{
			"ID":       g.ID,
			"Student":  g.StudentID,
			"Category": g.Category.String(),
			"Status":   string(g.Status),
			"Filed":    g.CreatedAt.Format(time.RFC3339),
		}
		if g.ResolvedAt != nil {
			row["Resolved"] = g.ResolvedAt.Format(time.RFC3339)
		}
		if g.ResolutionReply != nil {
			row["Reply"] = *g.ResolutionReply
		}
		if g.FeedbackStars != nil {
			row["Feedback"] = fmt.Sprintf("%d/5", *g.FeedbackStars)
		}
		rows = append(rows, row)
	}
	return export.Dataset{
		Headers: reportHeaders,
		Rows:    rows,
		Summary: [][2]string{
			{"Total", fmt.Sprintf("%d", len(grievances))},
			{"Resolution Rate", fmt.Sprintf("%d%%", ResolutionRate(grievances))},
			{"Avg Resolution Time", AverageResolutionTime(grievances)},
		},
	}
}

func (s *ExportService) snapshot(jobID string) *models.ReportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}

func (s *ExportService) setStatus(jobID string, status models.ReportJobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = status
	}
}

func (s *ExportService) setFailure(jobID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = models.ReportJobFailed
		job.Error = err.Error()
	}
}
