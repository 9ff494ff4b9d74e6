package request

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/core"
)

// ParseLogQuery builds a federated query spec from URL query
// parameters. Unknown parameters are ignored; malformed numeric and
// boolean values are rejected.
func ParseLogQuery(r *http.Request) (core.QuerySpec, error) {
	q := r.URL.Query()
	spec := core.QuerySpec{
		Category:       q.Get("category"),
		BusinessImpact: q.Get("business_impact"),
		Equipment:      q.Get("equipment"),
		UserFilter:     q.Get("user"),
		TitleSearch:    q.Get("search"),
		DateAfter:      q.Get("date_after"),
		DateBefore:     q.Get("date_before"),
		SortBy:         q.Get("sort_by"),
	}

	if v := q.Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			return core.QuerySpec{}, fmt.Errorf("invalid verified value %q", v)
		}
		spec.Verified = &verified
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return core.QuerySpec{}, fmt.Errorf("invalid limit value %q", v)
		}
		spec.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return core.QuerySpec{}, fmt.Errorf("invalid offset value %q", v)
		}
		spec.Offset = offset
	}

	switch q.Get("sort_order") {
	case "", "desc":
		spec.SortDesc = true
	case "asc":
		spec.SortDesc = false
	default:
		return core.QuerySpec{}, fmt.Errorf("invalid sort_order value %q", q.Get("sort_order"))
	}

	return spec, nil
}

// CreateLog is the payload for writing a new log entry into one
// group's database.
type CreateLog struct {
	GroupID         string   `json:"group_id" validate:"required"`
	InsightTitle    string   `json:"insight_title" validate:"required,max=500"`
	InsightContent  string   `json:"insight_content" validate:"required"`
	ProblemCategory *string  `json:"problem_category,omitempty" validate:"omitempty,max=200"`
	RootCause       *string  `json:"root_cause,omitempty"`
	SolutionSteps   []string `json:"solution_steps,omitempty"`
	ToolsRequired   []string `json:"tools_required,omitempty"`
	Tags            []string `json:"tags,omitempty" validate:"max=3"`
	EquipmentGroup  []string `json:"equipment_group,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}
