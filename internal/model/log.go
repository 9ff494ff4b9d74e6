package model

import "time"

// Log lifecycle values as stored in tenant databases.
const (
	LogSourceModal          = "log_modal"
	LogTypeUserGenerated    = "user_generated"
	ActivationStatusInactive = "Inactive"
	ActivationStatusDeleted  = "deleted"
)

// LogRecord is one federated result row, attributed with the tenant it
// came from. Identity is the (SourceGroupID, ID) pair; rows are never
// written back through this type.
type LogRecord struct {
	ID             int64     `json:"id"`
	InsightTitle   string    `json:"insight_title"`
	InsightContent string    `json:"insight_content"`
	UserName       string    `json:"user_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Source           string `json:"source"`
	LogType          string `json:"log_type"`
	ActivationStatus string `json:"activation_status"`
	Verified         bool   `json:"verified"`

	ProblemCategory  *string  `json:"problem_category,omitempty"`
	RootCause        *string  `json:"root_cause,omitempty"`
	SolutionSteps    []string `json:"solution_steps,omitempty"`
	ToolsRequired    []string `json:"tools_required,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	EquipmentGroup   []string `json:"equipment_group,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	BusinessImpact   *string  `json:"business_impact,omitempty"`
	ReusabilityScore *float64 `json:"reusability_score,omitempty"`

	SourceGroupID   string `json:"source_group_id"`
	SourceGroupName string `json:"source_group_name"`
}

// NewLogEntry is the caller-supplied part of a log row being created in
// one tenant database.
type NewLogEntry struct {
	InsightTitle    string   `json:"insight_title"`
	InsightContent  string   `json:"insight_content"`
	ProblemCategory *string  `json:"problem_category,omitempty"`
	RootCause       *string  `json:"root_cause,omitempty"`
	SolutionSteps   []string `json:"solution_steps,omitempty"`
	ToolsRequired   []string `json:"tools_required,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	EquipmentGroup  []string `json:"equipment_group,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

// EquipmentGroup is a de-duplicated equipment entry merged across
// tenant databases.
type EquipmentGroup struct {
	ID               int64    `json:"id"`
	ConventionalName string   `json:"conventional_name"`
	ModelNumbers     []string `json:"model_numbers"`
	Aliases          []string `json:"aliases"`
}
