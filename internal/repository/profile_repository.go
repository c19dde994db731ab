package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuslink/grievance-api/internal/models"
)

const studentColumns = `sp.student_id, sp.user_id, u.full_name, sp.year, sp.branch, sp.gender`
const authorityColumns = `ap.employee_id, ap.user_id, u.full_name, ap.department, ap.designation, ap.gender`

// ProfileRepository resolves student and authority profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a new repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// StudentByUserID returns the student profile linked to a user account.
func (r *ProfileRepository) StudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles sp JOIN users u ON u.id = sp.user_id WHERE sp.user_id = $1 LIMIT 1`, studentColumns)
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// StudentByID returns the student profile by its institution identifier.
func (r *ProfileRepository) StudentByID(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles sp JOIN users u ON u.id = sp.user_id WHERE sp.student_id = $1 LIMIT 1`, studentColumns)
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, studentID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// AuthorityByUserID returns the authority profile linked to a user account.
func (r *ProfileRepository) AuthorityByUserID(ctx context.Context, userID string) (*models.AuthorityProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM authority_profiles ap JOIN users u ON u.id = ap.user_id WHERE ap.user_id = $1 LIMIT 1`, authorityColumns)
	var profile models.AuthorityProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// AuthorityByEmployeeID returns the authority profile by employee ID.
func (r *ProfileRepository) AuthorityByEmployeeID(ctx context.Context, employeeID string) (*models.AuthorityProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM authority_profiles ap JOIN users u ON u.id = ap.user_id WHERE ap.employee_id = $1 LIMIT 1`, authorityColumns)
	var profile models.AuthorityProfile
	if err := r.db.GetContext(ctx, &profile, query, employeeID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListAuthorities returns the authority directory ordered by department.
func (r *ProfileRepository) ListAuthorities(ctx context.Context) ([]models.AuthorityProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM authority_profiles ap JOIN users u ON u.id = ap.user_id ORDER BY ap.department, ap.designation`, authorityColumns)
	var profiles []models.AuthorityProfile
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("list authorities: %w", err)
	}
	return profiles, nil
}
