package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/campuslink/grievance-api/internal/models"
)

type analyticsGrievanceRepository interface {
	ListAll(ctx context.Context) ([]models.Grievance, error)
}

// AnalyticsService computes aggregate grievance statistics. Aggregates are
// derived from a stale-but-consistent snapshot of the collection; no locking
// is required.
type AnalyticsService struct {
	repo     analyticsGrievanceRepository
	routing  *RoutingService
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cacheTTL time.Duration
}

// NewAnalyticsService constructs the aggregator.
func NewAnalyticsService(repo analyticsGrievanceRepository, routing *RoutingService, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if routing == nil {
		routing = NewRoutingService()
	}
	return &AnalyticsService{
		repo:     repo,
		routing:  routing,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		cacheTTL: cacheTTL,
	}
}

// ResolutionRate returns the rounded percentage of resolved grievances,
// zero for an empty collection.
func ResolutionRate(grievances []models.Grievance) int {
	if len(grievances) == 0 {
		return 0
	}
	resolved := 0
	for _, g := range grievances {
		if g.Status == models.GrievanceResolved {
			resolved++
		}
	}
	return int(math.Round(100 * float64(resolved) / float64(len(grievances))))
}

// AverageResolutionTime formats the mean time-to-resolution over resolved
// grievances. Records whose resolved_at does not strictly follow created_at
// (clock skew) are excluded rather than clamped. Returns "N/A" when no
// record qualifies.
func AverageResolutionTime(grievances []models.Grievance) string {
	var total time.Duration
	count := 0
	for _, g := range grievances {
		if g.Status != models.GrievanceResolved || g.ResolvedAt == nil {
			continue
		}
		elapsed := g.ResolvedAt.Sub(g.CreatedAt)
		if elapsed <= 0 {
			continue
		}
		total += elapsed
		count++
	}
	if count == 0 {
		return "N/A"
	}
	return formatMeanDuration(total / time.Duration(count))
}

// formatMeanDuration applies adaptive unit selection to the mean, not to
// individual records. A mean of exactly one hour still reads in minutes.
func formatMeanDuration(mean time.Duration) string {
	mins := math.Round(mean.Minutes())
	if mins <= 60 {
		return fmt.Sprintf("%d Mins", int(mins))
	}
	if mean.Hours() < 24 {
		return fmt.Sprintf("%.1f Hours", mean.Hours())
	}
	return fmt.Sprintf("%.1f Days", mean.Hours()/24)
}

// MonthlySeries buckets resolved grievances by month of resolution within
// the given year. Twelve buckets, January-indexed, zero-filled.
func MonthlySeries(grievances []models.Grievance, year int, include func(models.Grievance) bool) [12]int {
	var series [12]int
	for _, g := range grievances {
		if g.Status != models.GrievanceResolved || g.ResolvedAt == nil {
			continue
		}
		if g.ResolvedAt.Year() != year {
			continue
		}
		if include != nil && !include(g) {
			continue
		}
		series[int(g.ResolvedAt.Month())-1]++
	}
	return series
}

// Stats composes the aggregate payload, optionally scoped to one
// authority's routed subset. The second return value reports cache usage.
func (s *AnalyticsService) Stats(ctx context.Context, scope *models.AuthorityProfile) (*models.GrievanceStats, bool, error) {
	cacheKey := "stats:global"
	if scope != nil {
		cacheKey = fmt.Sprintf("stats:authority:%s", scope.EmployeeID)
	}
	if s.cache != nil {
		var cached models.GrievanceStats
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	grievances, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, false, err
	}
	if scope != nil {
		grievances = s.routing.Filter(*scope, grievances)
	}

	stats := s.compose(grievances)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return stats, false, nil
}

func (s *AnalyticsService) compose(grievances []models.Grievance) *models.GrievanceStats {
	year := s.now().UTC().Year()
	stats := &models.GrievanceStats{
		Total:             len(grievances),
		ResolutionRate:    ResolutionRate(grievances),
		AvgResolutionTime: AverageResolutionTime(grievances),
		Year:              year,
		MonthlySeries:     MonthlySeries(grievances, year, nil),
	}
	for _, g := range grievances {
		switch g.Status {
		case models.GrievanceResolved:
			stats.Resolved++
		case models.GrievanceEscalated:
			stats.Escalated++
		case models.GrievanceRejected:
			stats.Rejected++
		case models.GrievancePending:
			stats.Pending++
		}
	}
	return stats
}
