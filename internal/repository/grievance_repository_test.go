package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/grievance-api/internal/models"
)

func newGrievanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func grievanceRows(g models.Grievance) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "category", "description", "status", "proof_image_ref", "resolution_reply", "resolution_image_ref", "feedback_stars", "created_at", "resolved_at"}).
		AddRow(g.ID, g.StudentID, g.Category, g.Description, g.Status, g.ProofImageRef, g.ResolutionReply, g.ResolutionImageRef, g.FeedbackStars, g.CreatedAt, g.ResolvedAt)
}

func TestGrievanceRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newGrievanceRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievances")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	grievance := &models.Grievance{
		StudentID:   "S1",
		Category:    "Hostel - Water Supply",
		Description: "no water on the second floor",
	}
	require.NoError(t, repo.Create(context.Background(), grievance))
	require.NotEmpty(t, grievance.ID)
	require.Equal(t, models.GrievancePending, grievance.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, category")).
		WithArgs(grievance.ID).
		WillReturnRows(grievanceRows(*grievance))

	found, err := repo.FindByID(context.Background(), grievance.ID)
	require.NoError(t, err)
	require.Equal(t, grievance.ID, found.ID)
	require.Equal(t, models.GrievancePending, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newGrievanceRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, category")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryTransitionConditionalOnPending(t *testing.T) {
	db, mock, cleanup := newGrievanceRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	resolvedAt := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances")).
		WithArgs("g1", models.GrievanceResolved, "fixed the valve", nil, resolvedAt, models.GrievancePending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.TransitionStatus(context.Background(), "g1", models.GrievanceResolved, "fixed the valve", nil, resolvedAt)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	// Second writer loses: the status guard matches no rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances")).
		WithArgs("g1", models.GrievanceRejected, "duplicate", nil, resolvedAt, models.GrievancePending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err = repo.TransitionStatus(context.Background(), "g1", models.GrievanceRejected, "duplicate", nil, resolvedAt)
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryDeleteIfRetractable(t *testing.T) {
	db, mock, cleanup := newGrievanceRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	cutoff := time.Date(2026, time.May, 1, 11, 55, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grievances")).
		WithArgs("g1", "S1", models.GrievancePending, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.DeleteIfRetractable(context.Background(), "g1", "S1", cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grievances")).
		WithArgs("g1", "S2", models.GrievancePending, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err = repo.DeleteIfRetractable(context.Background(), "g1", "S2", cutoff)
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositorySetFeedbackOnce(t *testing.T) {
	db, mock, cleanup := newGrievanceRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances")).
		WithArgs("g1", "S1", 4, models.GrievanceResolved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.SetFeedback(context.Background(), "g1", "S1", 4)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	// The IS NULL guard makes a repeat write a no-op.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances")).
		WithArgs("g1", "S1", 2, models.GrievanceResolved).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err = repo.SetFeedback(context.Background(), "g1", "S1", 2)
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newGrievanceRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	now := time.Now().UTC()

	rows := grievanceRows(models.Grievance{
		ID:        "g1",
		StudentID: "S1",
		Category:  "Hostel - Water Supply",
		Status:    models.GrievancePending,
		CreatedAt: now,
	})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, category")).
		WithArgs("S1", models.GrievancePending).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grievances")).
		WithArgs("S1", models.GrievancePending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.GrievancePending
	grievances, total, err := repo.List(context.Background(), models.GrievanceFilter{StudentID: "S1", Status: &status})
	require.NoError(t, err)
	require.Len(t, grievances, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
