package models

import (
	"strings"

	appErrors "github.com/campuslink/grievance-api/pkg/errors"
)

// categoryDelimiter separates the hierarchical segments of a category,
// e.g. "Hostel - I1 - Electrical".
const categoryDelimiter = " - "

// Category is the validated hierarchical category attached to a grievance.
// It is constructed once at creation and never re-parsed ad hoc; segments are
// opaque, case-sensitive strings with no segment-count limit.
type Category string

// NewCategory validates the raw category string.
func NewCategory(raw string) (Category, error) {
	if strings.TrimSpace(raw) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "category is required")
	}
	return Category(raw), nil
}

// PrimarySegment returns the text before the first delimiter, or the whole
// string when no delimiter exists. The primary segment identifies the
// department-level bucket used by routing.
func (c Category) PrimarySegment() string {
	if idx := strings.Index(string(c), categoryDelimiter); idx >= 0 {
		return string(c)[:idx]
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}
