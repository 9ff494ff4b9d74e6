package request

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogQuery_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/logs", nil)

	spec, err := ParseLogQuery(r)
	require.NoError(t, err)
	assert.Zero(t, spec.Limit)
	assert.Zero(t, spec.Offset)
	assert.True(t, spec.SortDesc)
	assert.Nil(t, spec.Verified)
}

func TestParseLogQuery_AllParams(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/v1/logs?category=mechanical&business_impact=high&verified=true&equipment=Conveyor+A"+
			"&user=ana&search=pump&date_after=2026-01-01&date_before=2026-02-01"+
			"&limit=25&offset=50&sort_by=insight_title&sort_order=asc", nil)

	spec, err := ParseLogQuery(r)
	require.NoError(t, err)
	assert.Equal(t, "mechanical", spec.Category)
	assert.Equal(t, "high", spec.BusinessImpact)
	require.NotNil(t, spec.Verified)
	assert.True(t, *spec.Verified)
	assert.Equal(t, "Conveyor A", spec.Equipment)
	assert.Equal(t, "ana", spec.UserFilter)
	assert.Equal(t, "pump", spec.TitleSearch)
	assert.Equal(t, "2026-01-01", spec.DateAfter)
	assert.Equal(t, 25, spec.Limit)
	assert.Equal(t, 50, spec.Offset)
	assert.Equal(t, "insight_title", spec.SortBy)
	assert.False(t, spec.SortDesc)
}

func TestParseLogQuery_Invalid(t *testing.T) {
	for _, target := range []string{
		"/api/v1/logs?verified=maybe",
		"/api/v1/logs?limit=-1",
		"/api/v1/logs?limit=ten",
		"/api/v1/logs?offset=-5",
		"/api/v1/logs?sort_order=sideways",
	} {
		r := httptest.NewRequest("GET", target, nil)
		_, err := ParseLogQuery(r)
		assert.Error(t, err, target)
	}
}
