package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategoryRejectsBlank(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t"} {
		_, err := NewCategory(raw)
		require.Error(t, err, "%q", raw)
	}

	category, err := NewCategory("Hostel - I1 - Electrical")
	require.NoError(t, err)
	assert.Equal(t, "Hostel - I1 - Electrical", category.String())
}

func TestCategoryPrimarySegment(t *testing.T) {
	cases := map[string]string{
		"Hostel - I1 - Electrical": "Hostel",
		"Hostel":                   "Hostel",
		"Sports - Gym":             "Sports",
		"Others":                   "Others",
		// The delimiter is " - " with spaces; a bare hyphen does not split.
		"Mess-Annex": "Mess-Annex",
	}
	for raw, want := range cases {
		assert.Equal(t, want, Category(raw).PrimarySegment(), raw)
	}
}

func TestGrievanceStatusTargets(t *testing.T) {
	assert.False(t, GrievancePending.Terminal())
	for _, s := range []GrievanceStatus{GrievanceResolved, GrievanceEscalated, GrievanceRejected} {
		assert.True(t, s.Terminal(), s)
		assert.True(t, s.ValidTarget(), s)
	}
	assert.False(t, GrievancePending.ValidTarget())
	assert.False(t, GrievanceStatus("Closed").ValidTarget())
}
