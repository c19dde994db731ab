package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuslink/grievance-api/internal/models"
)

const grievanceColumns = `id, student_id, category, description, status, proof_image_ref, resolution_reply, resolution_image_ref, feedback_stars, created_at, resolved_at`

// GrievanceRepository manages persistence for grievances. Every
// state-changing statement is a single conditional write keyed on the
// expected stored status, so concurrent transition, retraction, and feedback
// attempts race at the database rather than in application code.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs a new repository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

// List returns grievances per provided filter with pagination.
func (r *GrievanceRepository) List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT %s FROM grievances WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		grievanceColumns, whereClause, size, offset)
	var grievances []models.Grievance
	if err := r.db.SelectContext(ctx, &grievances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grievances: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM grievances WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grievances: %w", err)
	}
	return grievances, total, nil
}

// ListAll returns the full grievance collection ordered by creation time.
// Routing visibility and analytics operate over this snapshot.
func (r *GrievanceRepository) ListAll(ctx context.Context) ([]models.Grievance, error) {
	query := fmt.Sprintf(`SELECT %s FROM grievances ORDER BY created_at DESC`, grievanceColumns)
	var grievances []models.Grievance
	if err := r.db.SelectContext(ctx, &grievances, query); err != nil {
		return nil, fmt.Errorf("list all grievances: %w", err)
	}
	return grievances, nil
}

// FindByID returns a grievance by identifier. sql.ErrNoRows passes through.
func (r *GrievanceRepository) FindByID(ctx context.Context, id string) (*models.Grievance, error) {
	query := fmt.Sprintf(`SELECT %s FROM grievances WHERE id = $1 LIMIT 1`, grievanceColumns)
	var grievance models.Grievance
	if err := r.db.GetContext(ctx, &grievance, query, id); err != nil {
		return nil, err
	}
	return &grievance, nil
}

// Create inserts a new grievance in Pending state.
func (r *GrievanceRepository) Create(ctx context.Context, grievance *models.Grievance) error {
	if grievance.ID == "" {
		grievance.ID = uuid.NewString()
	}
	if grievance.CreatedAt.IsZero() {
		grievance.CreatedAt = time.Now().UTC()
	}
	grievance.Status = models.GrievancePending
	query := `INSERT INTO grievances (id, student_id, category, description, status, proof_image_ref, created_at)
VALUES (:id, :student_id, :category, :description, :status, :proof_image_ref, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grievance); err != nil {
		return fmt.Errorf("create grievance: %w", err)
	}
	return nil
}

// TransitionStatus performs the terminal transition as one conditional
// update keyed on the stored status still being Pending. It returns the
// number of rows affected; zero means another writer already won the race
// (or the row does not exist).
func (r *GrievanceRepository) TransitionStatus(ctx context.Context, id string, target models.GrievanceStatus, reply string, resolutionImageRef *string, resolvedAt time.Time) (int64, error) {
	query := `UPDATE grievances
SET status = $2, resolution_reply = $3, resolution_image_ref = COALESCE($4, resolution_image_ref), resolved_at = $5
WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, target, reply, resolutionImageRef, resolvedAt, models.GrievancePending)
	if err != nil {
		return 0, fmt.Errorf("transition grievance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transition grievance rows affected: %w", err)
	}
	return affected, nil
}

// DeleteIfRetractable removes the grievance only while it is still Pending,
// owned by the student, and created after the provided cutoff. The window is
// re-checked here against stored state, not a client-supplied timestamp.
func (r *GrievanceRepository) DeleteIfRetractable(ctx context.Context, id, studentID string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM grievances
WHERE id = $1 AND student_id = $2 AND status = $3 AND created_at > $4`
	res, err := r.db.ExecContext(ctx, query, id, studentID, models.GrievancePending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retract grievance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("retract grievance rows affected: %w", err)
	}
	return affected, nil
}

// SetFeedback writes the one-shot satisfaction stars. The conditional update
// only succeeds while the grievance is Resolved, owned by the student, and
// unrated; a second attempt affects zero rows.
func (r *GrievanceRepository) SetFeedback(ctx context.Context, id, studentID string, stars int) (int64, error) {
	query := `UPDATE grievances
SET feedback_stars = $3
WHERE id = $1 AND student_id = $2 AND status = $4 AND feedback_stars IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, studentID, stars, models.GrievanceResolved)
	if err != nil {
		return 0, fmt.Errorf("set feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set feedback rows affected: %w", err)
	}
	return affected, nil
}
