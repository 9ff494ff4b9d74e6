package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

var (
	tenantQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "federated_tenant_queries_total",
			Help: "Per-tenant sub-queries issued during federated fan-out",
		},
		[]string{"status"},
	)

	federatedQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "federated_query_duration_seconds",
			Help:    "End-to-end federated query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Sort fields accepted by QuerySpec. Anything else falls back to
// created_at rather than reaching the SQL string.
var logSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"insight_title":    true,
	"problem_category": true,
	"user_name":        true,
}

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 200
)

// QuerySpec describes one federated log query: filters, sort, and the
// global pagination window. Value semantics; never mutated during
// fan-out.
type QuerySpec struct {
	Category       string
	BusinessImpact string
	Verified       *bool
	Equipment      string
	UserFilter     string
	TitleSearch    string
	DateAfter      string // YYYY-MM-DD, inclusive
	DateBefore     string // YYYY-MM-DD, inclusive

	Limit    int
	Offset   int
	SortBy   string
	SortDesc bool
}

func (s QuerySpec) normalized() QuerySpec {
	if s.Limit <= 0 {
		s.Limit = defaultQueryLimit
	}
	if s.Limit > maxQueryLimit {
		s.Limit = maxQueryLimit
	}
	if s.Offset < 0 {
		s.Offset = 0
	}
	if !logSortFields[s.SortBy] {
		s.SortBy = "created_at"
	}
	return s
}

// QueryResult is the merged, windowed outcome of one federated query.
// Diagnostics carry per-tenant failures; they never abort the call.
type QueryResult struct {
	Logs        []model.LogRecord `json:"logs"`
	Total       int               `json:"total"`
	HasMore     bool              `json:"has_more"`
	Categories  []string          `json:"categories"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
}

// LogService fans queries out across the tenant databases a principal
// may see and merges the results. It is stateless between calls; all
// connection state lives in the registry.
type LogService struct {
	resolver *ResolverService
	groups   *GroupService
	pools    TenantPools
	opts     FederationOptions
	logger   zerolog.Logger
}

func NewLogService(resolver *ResolverService, groups *GroupService, pools TenantPools, opts FederationOptions, logger zerolog.Logger) *LogService {
	return &LogService{
		resolver: resolver,
		groups:   groups,
		pools:    pools,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Query runs spec against every tenant database the principal may see.
// One tenant's outage never hides the others' results: failures become
// Diagnostics entries. Zero reachable tenants yields an empty result,
// not an error.
func (s *LogService) Query(ctx context.Context, principal *model.Principal, spec QuerySpec) (*QueryResult, error) {
	start := time.Now()
	defer func() { federatedQueryDuration.Observe(time.Since(start).Seconds()) }()

	spec = spec.normalized()

	groups, err := s.resolver.ResolveWithDatabase(ctx, principal)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Logs:       []model.LogRecord{},
		Categories: []string{},
	}
	if len(groups) == 0 {
		return result, nil
	}

	query, args, err := buildLogQuery(spec)
	if err != nil {
		return nil, err
	}

	shards := make([][]model.LogRecord, len(groups))
	errs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for i, grp := range groups {
		g.Go(func() error {
			logs, err := s.queryTenant(gctx, grp, query, args)
			if err != nil {
				errs[i] = err
				tenantQueriesTotal.WithLabelValues("error").Inc()
				s.logger.Error().Str("group_id", grp.ID).Str("group_name", grp.Name).Err(err).Msg("tenant log query failed")
				return nil
			}
			shards[i] = logs
			tenantQueriesTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}
	// Goroutines only report through the slices; Wait returns nil unless
	// the parent context is cancelled.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []model.LogRecord
	categories := map[string]bool{}
	for i, grp := range groups {
		if errs[i] != nil {
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("group %s (%s): %v", grp.ID, grp.Name, errs[i]))
			continue
		}
		for _, rec := range shards[i] {
			all = append(all, rec)
			if rec.ProblemCategory != nil && *rec.ProblemCategory != "" {
				categories[*rec.ProblemCategory] = true
			}
		}
	}

	sortRecords(all, spec.SortBy, spec.SortDesc)

	result.Total = len(all)
	result.HasMore = result.Total > spec.Offset+spec.Limit
	result.Logs = window(all, spec.Offset, spec.Limit)
	result.Categories = sortedKeys(categories)
	return result, nil
}

// Categories returns the distinct problem categories across the
// principal's tenant databases, merged and sorted.
func (s *LogService) Categories(ctx context.Context, principal *model.Principal) ([]string, error) {
	var mu sync.Mutex
	merged := map[string]bool{}

	err := s.fanOut(ctx, principal, func(tctx context.Context, _ int, grp model.Group, pool db.Pool) error {
		rows, err := pool.Query(tctx,
			`SELECT DISTINCT problem_category FROM logs
			 WHERE problem_category IS NOT NULL AND activation_status != $1
			 ORDER BY problem_category`, model.ActivationStatusDeleted)
		if err != nil {
			return fmt.Errorf("query categories: %w", err)
		}
		defer rows.Close()

		var local []string
		for rows.Next() {
			var category string
			if err := rows.Scan(&category); err != nil {
				return fmt.Errorf("scan category: %w", err)
			}
			if category != "" {
				local = append(local, category)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate categories: %w", err)
		}

		mu.Lock()
		for _, c := range local {
			merged[c] = true
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(merged), nil
}

// EquipmentGroups returns active equipment entries across the
// principal's tenant databases, de-duplicated by conventional name.
// The first tenant (in deterministic group order) to define a name
// wins.
func (s *LogService) EquipmentGroups(ctx context.Context, principal *model.Principal, search string) ([]model.EquipmentGroup, error) {
	var mu sync.Mutex
	type keyed struct {
		order int
		eq    model.EquipmentGroup
	}
	merged := map[string]keyed{}

	err := s.fanOut(ctx, principal, func(tctx context.Context, order int, grp model.Group, pool db.Pool) error {
		query := `SELECT id, conventional_name, model_numbers, aliases
			 FROM equipment_groups WHERE activation_status = 'active'`
		var args []any
		if search != "" {
			query += ` AND (LOWER(conventional_name) LIKE LOWER($1) OR EXISTS (
				SELECT 1 FROM unnest(aliases) AS alias WHERE LOWER(alias) LIKE LOWER($1)))`
			args = append(args, "%"+search+"%")
		}
		query += ` ORDER BY conventional_name`

		rows, err := pool.Query(tctx, query, args...)
		if err != nil {
			return fmt.Errorf("query equipment groups: %w", err)
		}
		defer rows.Close()

		var local []model.EquipmentGroup
		for rows.Next() {
			var eq model.EquipmentGroup
			if err := rows.Scan(&eq.ID, &eq.ConventionalName, &eq.ModelNumbers, &eq.Aliases); err != nil {
				return fmt.Errorf("scan equipment group: %w", err)
			}
			local = append(local, eq)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate equipment groups: %w", err)
		}

		mu.Lock()
		for _, eq := range local {
			key := strings.ToLower(eq.ConventionalName)
			if prev, ok := merged[key]; !ok || order < prev.order {
				merged[key] = keyed{order: order, eq: eq}
			}
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.EquipmentGroup, 0, len(merged))
	for _, k := range merged {
		out = append(out, k.eq)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].ConventionalName) < strings.ToLower(out[j].ConventionalName)
	})
	return out, nil
}

// fanOut runs fn once per tenant database the principal may query,
// bounded by the configured parallelism and per-tenant timeout. order
// is the group's position in the resolver's deterministic order. A
// tenant failure is logged and skipped; fn must do its own locking
// around shared state.
func (s *LogService) fanOut(ctx context.Context, principal *model.Principal, fn func(tctx context.Context, order int, grp model.Group, pool db.Pool) error) error {
	groups, err := s.resolver.ResolveWithDatabase(ctx, principal)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for i, grp := range groups {
		g.Go(func() error {
			pool, err := s.pools.Pool(gctx, grp.ID, grp.Data.Database.Connection)
			if err != nil {
				tenantQueriesTotal.WithLabelValues("error").Inc()
				s.logger.Error().Str("group_id", grp.ID).Err(err).Msg("tenant pool unavailable")
				return nil
			}

			tctx, cancel := context.WithTimeout(gctx, s.opts.QueryTimeout)
			defer cancel()

			if err := fn(tctx, i, grp, pool); err != nil {
				tenantQueriesTotal.WithLabelValues("error").Inc()
				s.logger.Error().Str("group_id", grp.ID).Err(err).Msg("tenant aggregation query failed")
				return nil
			}
			tenantQueriesTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Create inserts a new log row into one tenant's database. The write
// never fans out; the caller picks exactly one group they can access.
func (s *LogService) Create(ctx context.Context, principal *model.Principal, groupID string, entry model.NewLogEntry) (int64, error) {
	if !principal.CanAccessGroup(groupID) {
		return 0, fmt.Errorf("create log in group %s: %w", groupID, ErrAccessDenied)
	}

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if !group.HasUsableDatabase() {
		return 0, fmt.Errorf("create log in group %s: %w", groupID, ErrNoDatabase)
	}

	pool, err := s.pools.Pool(ctx, group.ID, group.Data.Database.Connection)
	if err != nil {
		return 0, fmt.Errorf("create log in group %s: %w", groupID, err)
	}

	tctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var id int64
	err = pool.QueryRow(tctx,
		`INSERT INTO logs (
			source, verified, log_type, activation_status,
			created_at, updated_at, user_name,
			insight_title, insight_content, problem_category, root_cause,
			solution_steps, tools_required, tags, equipment_group, notes
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id`,
		model.LogSourceModal, false, model.LogTypeUserGenerated, model.ActivationStatusInactive,
		now, now, principal.Name,
		entry.InsightTitle, entry.InsightContent, entry.ProblemCategory, entry.RootCause,
		jsonArray(entry.SolutionSteps), jsonArray(entry.ToolsRequired),
		jsonArray(entry.Tags), jsonArray(entry.EquipmentGroup), entry.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert log into group %s: %w", groupID, err)
	}

	s.logger.Info().Str("group_id", groupID).Int64("log_id", id).Str("user_id", principal.ID).Msg("created log entry")
	return id, nil
}

// queryTenant runs the shared per-shard query against one tenant and
// tags every row with the tenant's identity. The connection is held for
// exactly the duration of this call.
func (s *LogService) queryTenant(ctx context.Context, grp model.Group, query string, args []any) ([]model.LogRecord, error) {
	pool, err := s.pools.Pool(ctx, grp.ID, grp.Data.Database.Connection)
	if err != nil {
		return nil, err
	}

	tctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	rows, err := pool.Query(tctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var logs []model.LogRecord
	for rows.Next() {
		rec, err := scanLogRecord(rows)
		if err != nil {
			return nil, err
		}
		rec.SourceGroupID = grp.ID
		rec.SourceGroupName = grp.Name
		logs = append(logs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}

const logColumns = `id, insight_title, insight_content, user_name, created_at, updated_at,
	source, log_type, activation_status, verified,
	problem_category, root_cause, solution_steps, tools_required, tags,
	equipment_group, notes, business_impact, reusability_score`

// buildLogQuery renders spec into per-shard SQL. Filter values travel
// exclusively as placeholders; the only interpolated identifiers come
// from the sort allow-list.
func buildLogQuery(spec QuerySpec) (string, []any, error) {
	query := `SELECT ` + logColumns + ` FROM logs WHERE activation_status != $1`
	args := []any{model.ActivationStatusDeleted}

	next := func() int { return len(args) + 1 }

	if spec.Category != "" {
		query += fmt.Sprintf(" AND problem_category = $%d", next())
		args = append(args, spec.Category)
	}
	if spec.BusinessImpact != "" {
		query += fmt.Sprintf(" AND business_impact = $%d", next())
		args = append(args, spec.BusinessImpact)
	}
	if spec.Verified != nil {
		query += fmt.Sprintf(" AND verified = $%d", next())
		args = append(args, *spec.Verified)
	}
	if spec.Equipment != "" {
		encoded, err := json.Marshal([]string{spec.Equipment})
		if err != nil {
			return "", nil, fmt.Errorf("encode equipment filter: %w", err)
		}
		query += fmt.Sprintf(" AND equipment_group @> $%d", next())
		args = append(args, string(encoded))
	}
	if spec.UserFilter != "" {
		query += fmt.Sprintf(" AND LOWER(user_name) LIKE LOWER($%d)", next())
		args = append(args, "%"+spec.UserFilter+"%")
	}
	if spec.TitleSearch != "" {
		query += fmt.Sprintf(" AND LOWER(insight_title) LIKE LOWER($%d)", next())
		args = append(args, "%"+spec.TitleSearch+"%")
	}
	if spec.DateAfter != "" {
		day, err := time.Parse("2006-01-02", spec.DateAfter)
		if err != nil {
			return "", nil, fmt.Errorf("invalid date_after %q: %w", spec.DateAfter, err)
		}
		query += fmt.Sprintf(" AND created_at::date >= $%d", next())
		args = append(args, day)
	}
	if spec.DateBefore != "" {
		day, err := time.Parse("2006-01-02", spec.DateBefore)
		if err != nil {
			return "", nil, fmt.Errorf("invalid date_before %q: %w", spec.DateBefore, err)
		}
		query += fmt.Sprintf(" AND created_at::date <= $%d", next())
		args = append(args, day)
	}

	direction := "ASC"
	if spec.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", spec.SortBy, direction, direction)

	// Over-fetch per shard: any of the first offset+limit rows of the
	// global order could live entirely on one shard.
	query += fmt.Sprintf(" LIMIT $%d", next())
	args = append(args, spec.Limit+spec.Offset)

	return query, args, nil
}

func scanLogRecord(rows pgx.Rows) (model.LogRecord, error) {
	var rec model.LogRecord
	var solutionSteps, toolsRequired, tags, equipment []byte
	err := rows.Scan(
		&rec.ID, &rec.InsightTitle, &rec.InsightContent, &rec.UserName,
		&rec.CreatedAt, &rec.UpdatedAt,
		&rec.Source, &rec.LogType, &rec.ActivationStatus, &rec.Verified,
		&rec.ProblemCategory, &rec.RootCause,
		&solutionSteps, &toolsRequired, &tags, &equipment,
		&rec.Notes, &rec.BusinessImpact, &rec.ReusabilityScore,
	)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("scan log: %w", err)
	}
	rec.SolutionSteps = decodeStringList(solutionSteps)
	rec.ToolsRequired = decodeStringList(toolsRequired)
	rec.Tags = decodeStringList(tags)
	rec.EquipmentGroup = decodeStringList(equipment)
	return rec, nil
}

// decodeStringList tolerates NULL, malformed JSON, and non-list shapes
// in tenant data; tenant databases are customer-managed and dirty rows
// must not poison a whole page.
func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

// jsonArray encodes a string list for a jsonb column, mapping nil to
// SQL NULL.
func jsonArray(list []string) any {
	if list == nil {
		return nil
	}
	encoded, _ := json.Marshal(list)
	return string(encoded)
}

// sortRecords orders the merged set by the requested field and
// direction. Ties always break by (source group ID, row ID) ascending
// so identical inputs merge identically regardless of shard arrival
// order.
func sortRecords(records []model.LogRecord, field string, desc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		c := compareRecords(records[i], records[j], field)
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if records[i].SourceGroupID != records[j].SourceGroupID {
			return records[i].SourceGroupID < records[j].SourceGroupID
		}
		return records[i].ID < records[j].ID
	})
}

func compareRecords(a, b model.LogRecord, field string) int {
	switch field {
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "insight_title":
		return strings.Compare(a.InsightTitle, b.InsightTitle)
	case "problem_category":
		return strings.Compare(stringOrEmpty(a.ProblemCategory), stringOrEmpty(b.ProblemCategory))
	case "user_name":
		return strings.Compare(a.UserName, b.UserName)
	default: // created_at
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func window(records []model.LogRecord, offset, limit int) []model.LogRecord {
	if offset >= len(records) {
		return []model.LogRecord{}
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
