package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuslink/grievance-api/internal/dto"
	"github.com/campuslink/grievance-api/internal/models"
	appErrors "github.com/campuslink/grievance-api/pkg/errors"
)

type grievanceRepository interface {
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error)
	ListAll(ctx context.Context) ([]models.Grievance, error)
	FindByID(ctx context.Context, id string) (*models.Grievance, error)
	Create(ctx context.Context, grievance *models.Grievance) error
	TransitionStatus(ctx context.Context, id string, target models.GrievanceStatus, reply string, resolutionImageRef *string, resolvedAt time.Time) (int64, error)
	DeleteIfRetractable(ctx context.Context, id, studentID string, cutoff time.Time) (int64, error)
	SetFeedback(ctx context.Context, id, studentID string, stars int) (int64, error)
}

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// GrievanceServiceConfig tunes lifecycle policy.
type GrievanceServiceConfig struct {
	RetractWindow time.Duration
}

// GrievanceService implements the grievance lifecycle and the student
// self-service mutability rules. All identities arrive as explicit
// parameters; the service holds no session state.
type GrievanceService struct {
	repo      grievanceRepository
	routing   *RoutingService
	audit     auditWriter
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       GrievanceServiceConfig
}

// GrievanceServiceParams groups constructor dependencies.
type GrievanceServiceParams struct {
	Repo      grievanceRepository
	Routing   *RoutingService
	Audit     auditWriter
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    GrievanceServiceConfig
}

// NewGrievanceService constructs a GrievanceService with sane defaults.
func NewGrievanceService(params GrievanceServiceParams) *GrievanceService {
	cfg := params.Config
	if cfg.RetractWindow <= 0 {
		cfg.RetractWindow = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	routing := params.Routing
	if routing == nil {
		routing = NewRoutingService()
	}
	return &GrievanceService{
		repo:      params.Repo,
		routing:   routing,
		audit:     params.Audit,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Create files a new grievance owned by the student.
func (s *GrievanceService) Create(ctx context.Context, studentID string, req dto.CreateGrievanceRequest) (*models.Grievance, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student identity is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grievance payload")
	}
	category, err := models.NewCategory(req.Category)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "description is required")
	}

	grievance := &models.Grievance{
		StudentID:     studentID,
		Category:      category,
		Description:   req.Description,
		ProofImageRef: req.ProofImageRef,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, grievance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grievance")
	}
	s.invalidateStats(ctx)
	return grievance, nil
}

// ListForStudent returns the student's own grievances.
func (s *GrievanceService) ListForStudent(ctx context.Context, studentID string, filter models.GrievanceFilter) ([]models.Grievance, *models.Pagination, error) {
	filter.StudentID = studentID
	grievances, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grievances")
	}
	return grievances, paginationFor(filter, total), nil
}

// ListForAuthority returns the routed subset visible to the authority,
// preserving collection order.
func (s *GrievanceService) ListForAuthority(ctx context.Context, authority models.AuthorityProfile, status *models.GrievanceStatus) ([]models.Grievance, error) {
	grievances, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grievances")
	}
	routed := s.routing.Filter(authority, grievances)
	if status == nil {
		return routed, nil
	}
	filtered := make([]models.Grievance, 0, len(routed))
	for _, g := range routed {
		if g.Status == *status {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

// ListAll returns every grievance (admin scope).
func (s *GrievanceService) ListAll(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, *models.Pagination, error) {
	grievances, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grievances")
	}
	return grievances, paginationFor(filter, total), nil
}

// Get returns a single grievance.
func (s *GrievanceService) Get(ctx context.Context, id string) (*models.Grievance, error) {
	grievance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch grievance")
	}
	return grievance, nil
}

// IsResponsible exposes the routing decision for API-boundary checks.
func (s *GrievanceService) IsResponsible(authority models.AuthorityProfile, grievance models.Grievance) bool {
	return s.routing.IsResponsible(authority, grievance)
}

// Transition moves a Pending grievance to a terminal status. Exactly one of
// two concurrent calls succeeds; the loser observes a conflict.
func (s *GrievanceService) Transition(ctx context.Context, id string, authority models.AuthorityProfile, target models.GrievanceStatus, reply string, resolutionImageRef *string) (*models.Grievance, error) {
	if strings.TrimSpace(reply) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reply is required")
	}
	if !target.ValidTarget() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid target status")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.routing.IsResponsible(authority, *current) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grievance is not routed to this authority")
	}

	affected, err := s.repo.TransitionStatus(ctx, id, target, reply, resolutionImageRef, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition grievance")
	}
	if affected == 0 {
		if s.metrics != nil {
			s.metrics.RecordTransition(string(target), "conflict")
		}
		// The conditional write lost: either the row vanished or another
		// transition already won.
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "grievance already handled")
	}
	if s.metrics != nil {
		s.metrics.RecordTransition(string(target), "won")
	}

	s.recordAudit(ctx, models.AuditActionTransition, authority.UserID, id, map[string]interface{}{
		"target":      target,
		"employee_id": authority.EmployeeID,
	})
	s.invalidateStats(ctx)

	return s.Get(ctx, id)
}

// CanRetract reports whether the student may still withdraw the grievance.
func (s *GrievanceService) CanRetract(grievance models.Grievance, studentID string, now time.Time) bool {
	return grievance.StudentID == studentID &&
		grievance.Status == models.GrievancePending &&
		now.Sub(grievance.CreatedAt) < s.cfg.RetractWindow
}

// Retract removes a still-Pending grievance within the grace window. The
// window is re-checked atomically against stored state at execution time.
func (s *GrievanceService) Retract(ctx context.Context, id, studentID string) error {
	cutoff := s.now().UTC().Add(-s.cfg.RetractWindow)
	affected, err := s.repo.DeleteIfRetractable(ctx, id, studentID, cutoff)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retract grievance")
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return appErrors.Clone(appErrors.ErrForbidden, "retraction window closed or grievance not retractable")
	}

	s.recordAudit(ctx, models.AuditActionRetract, "", id, map[string]interface{}{
		"student_id": studentID,
	})
	s.invalidateStats(ctx)
	return nil
}

// CanGiveFeedback reports whether the student may rate the resolution.
func (s *GrievanceService) CanGiveFeedback(grievance models.Grievance, studentID string) bool {
	return grievance.StudentID == studentID &&
		grievance.Status == models.GrievanceResolved &&
		grievance.FeedbackStars == nil
}

// SubmitFeedback writes satisfaction stars exactly once. Repeat calls are
// rejected rather than treated as idempotent.
func (s *GrievanceService) SubmitFeedback(ctx context.Context, id, studentID string, stars int) (*models.Grievance, error) {
	if stars < 1 || stars > 5 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stars must be between 1 and 5")
	}

	affected, err := s.repo.SetFeedback(ctx, id, studentID, stars)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit feedback")
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "feedback not permitted or already submitted")
	}

	s.recordAudit(ctx, models.AuditActionFeedback, "", id, map[string]interface{}{
		"student_id": studentID,
		"stars":      stars,
	})
	s.invalidateStats(ctx)
	return s.Get(ctx, id)
}

func (s *GrievanceService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("stats invalidation failed", zap.Error(err))
	}
}

func (s *GrievanceService) recordAudit(ctx context.Context, action models.AuditAction, userID, grievanceID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(details)
	if err != nil {
		payload = nil
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "grievance",
		ResourceID: &grievanceID,
		Details:    payload,
	}
	if userID != "" {
		log.UserID = &userID
	}
	if err := s.audit.Create(ctx, log); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", string(action)), zap.Error(err))
	}
}

func paginationFor(filter models.GrievanceFilter, total int) *models.Pagination {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
