package service

import (
	"strings"

	"github.com/campuslink/grievance-api/internal/models"
)

// RoutingService decides which authority owns a grievance. The rules are a
// pure function of (designation, department, primary category segment), so
// the service holds no state.
type RoutingService struct{}

// NewRoutingService constructs the resolver.
func NewRoutingService() *RoutingService {
	return &RoutingService{}
}

// IsResponsible evaluates ownership in fixed priority order; the cases are
// not commutative because designation rules override department rules.
func (s *RoutingService) IsResponsible(authority models.AuthorityProfile, grievance models.Grievance) bool {
	primary := grievance.Category.PrimarySegment()

	switch authority.Designation {
	case models.DesignationDirector:
		// The director handles ragging cases exclusively.
		return primary == models.CategoryRagging
	case models.DesignationAO, models.DesignationAdminOfficer:
		return primary == models.CategoryAdministration || primary == models.CategoryOthers
	}

	// Raw prefix test, not a segment match: a department named "Sport"
	// also claims "Sports - Gym". Known looseness, kept for parity with
	// the established routing behaviour.
	return strings.HasPrefix(grievance.Category.String(), authority.Department)
}

// Filter returns the subset of grievances the authority is responsible for,
// preserving input order.
func (s *RoutingService) Filter(authority models.AuthorityProfile, grievances []models.Grievance) []models.Grievance {
	result := make([]models.Grievance, 0, len(grievances))
	for _, grievance := range grievances {
		if s.IsResponsible(authority, grievance) {
			result = append(result, grievance)
		}
	}
	return result
}
