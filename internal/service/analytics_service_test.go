package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuslink/grievance-api/internal/models"
)

type mockAnalyticsRepo struct {
	grievances []models.Grievance
	calls      int
	err        error
}

func (m *mockAnalyticsRepo) ListAll(_ context.Context) ([]models.Grievance, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.grievances, nil
}

func resolvedGrievance(category string, created, resolved time.Time) models.Grievance {
	return models.Grievance{
		ID:         "g-" + category + created.Format("150405"),
		Category:   models.Category(category),
		Status:     models.GrievanceResolved,
		CreatedAt:  created,
		ResolvedAt: &resolved,
	}
}

func TestResolutionRate(t *testing.T) {
	assert.Equal(t, 0, ResolutionRate(nil))

	grievances := []models.Grievance{
		{Status: models.GrievanceResolved},
		{Status: models.GrievancePending},
		{Status: models.GrievanceEscalated},
		{Status: models.GrievanceResolved},
	}
	assert.Equal(t, 50, ResolutionRate(grievances))

	// One of three resolves: 33.33 rounds down.
	assert.Equal(t, 33, ResolutionRate([]models.Grievance{
		{Status: models.GrievanceResolved},
		{Status: models.GrievancePending},
		{Status: models.GrievancePending},
	}))
}

func TestAverageResolutionTimeFormats(t *testing.T) {
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	// Mean of 30 and 90 minutes is exactly one hour, reported in minutes.
	grievances := []models.Grievance{
		resolvedGrievance("Hostel", base, base.Add(30*time.Minute)),
		resolvedGrievance("Mess", base, base.Add(90*time.Minute)),
	}
	assert.Equal(t, "60 Mins", AverageResolutionTime(grievances))

	assert.Equal(t, "5.0 Hours", AverageResolutionTime([]models.Grievance{
		resolvedGrievance("Hostel", base, base.Add(5*time.Hour)),
	}))

	assert.Equal(t, "3.0 Days", AverageResolutionTime([]models.Grievance{
		resolvedGrievance("Hostel", base, base.Add(72*time.Hour)),
	}))
}

func TestAverageResolutionTimeSkewAndEmpty(t *testing.T) {
	assert.Equal(t, "N/A", AverageResolutionTime(nil))
	assert.Equal(t, "N/A", AverageResolutionTime([]models.Grievance{
		{Status: models.GrievancePending},
	}))

	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	// A resolved_at behind created_at is excluded, not clamped to zero.
	skewed := resolvedGrievance("Hostel", base, base.Add(-10*time.Minute))
	clean := resolvedGrievance("Mess", base, base.Add(40*time.Minute))
	assert.Equal(t, "40 Mins", AverageResolutionTime([]models.Grievance{skewed, clean}))

	// Only skewed records present: nothing qualifies.
	assert.Equal(t, "N/A", AverageResolutionTime([]models.Grievance{skewed}))
}

func TestMonthlySeriesYearBoundary(t *testing.T) {
	march2026 := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	march2027 := time.Date(2027, time.March, 5, 12, 0, 0, 0, time.UTC)
	december2026 := time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC)

	grievances := []models.Grievance{
		resolvedGrievance("Hostel", march2026.Add(-time.Hour), march2026),
		resolvedGrievance("Mess", march2026.Add(-time.Hour), march2026),
		resolvedGrievance("Academic", march2027.Add(-time.Hour), march2027),
		resolvedGrievance("Hostel", december2026.Add(-time.Hour), december2026),
		{Status: models.GrievancePending, CreatedAt: march2026},
	}

	series := MonthlySeries(grievances, 2026, nil)
	assert.Equal(t, 2, series[2])  // March
	assert.Equal(t, 1, series[11]) // December
	assert.Equal(t, 0, series[0])

	next := MonthlySeries(grievances, 2027, nil)
	assert.Equal(t, 1, next[2])
}

func TestMonthlySeriesIncludeFilter(t *testing.T) {
	march := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	grievances := []models.Grievance{
		resolvedGrievance("Hostel", march.Add(-time.Hour), march),
		resolvedGrievance("Mess", march.Add(-time.Hour), march),
	}

	series := MonthlySeries(grievances, 2026, func(g models.Grievance) bool {
		return g.Category.PrimarySegment() == "Hostel"
	})
	assert.Equal(t, 1, series[2])
}

func TestStatsGlobalScope(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	resolved := resolvedGrievance("Hostel", now.Add(-2*time.Hour), now.Add(-time.Hour))
	repo := &mockAnalyticsRepo{grievances: []models.Grievance{
		resolved,
		{Status: models.GrievancePending, Category: "Mess"},
		{Status: models.GrievanceRejected, Category: "Others"},
	}}

	svc := NewAnalyticsService(repo, NewRoutingService(), nil, zap.NewNop(), 0)
	svc.now = func() time.Time { return now }

	stats, cached, err := svc.Stats(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 33, stats.ResolutionRate)
	assert.Equal(t, "60 Mins", stats.AvgResolutionTime)
	assert.Equal(t, 2026, stats.Year)
	assert.Equal(t, 1, stats.MonthlySeries[5])
}

func TestStatsAuthorityScope(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockAnalyticsRepo{grievances: []models.Grievance{
		{Status: models.GrievancePending, Category: "Hostel - Water Supply"},
		{Status: models.GrievancePending, Category: "Mess - Food Quality"},
	}}

	svc := NewAnalyticsService(repo, NewRoutingService(), nil, zap.NewNop(), 0)
	svc.now = func() time.Time { return now }

	warden := models.AuthorityProfile{EmployeeID: "E300", Department: "Hostel", Designation: "Warden"}
	stats, _, err := svc.Stats(context.Background(), &warden)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.ResolutionRate)
	assert.Equal(t, "N/A", stats.AvgResolutionTime)
}
