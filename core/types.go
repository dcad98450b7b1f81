package core

import "time"

// QueryType tags the detected intent of a research query.
type QueryType string

const (
	QueryOccurrenceSearch   QueryType = "occurrence_search"
	QuerySimpleCount        QueryType = "simple_count"
	QueryBreakdown          QueryType = "breakdown"
	QuerySingleRecord       QueryType = "single_record"
	QuerySpeciesInfo        QueryType = "species_info"
	QueryImages             QueryType = "images"
	QueryDistribution       QueryType = "distribution"
	QueryNeedsClarification QueryType = "needs_clarification"
)

// Priority classifies a plan entry. Must-call entries abort the remainder
// of the plan on failure; optional entries never do.
type Priority string

const (
	PriorityMustCall Priority = "must_call"
	PriorityOptional Priority = "optional"
)

// IdentityRecord is the canonical identity of an organism reference.
// Records are immutable once created: the resolver builds one on a
// successful lookup and it is never mutated afterwards.
type IdentityRecord struct {
	InputName      string `json:"input_name"`
	ScientificName string `json:"scientific_name,omitempty"`
	StableID       string `json:"stable_id,omitempty"`
	Rank           string `json:"rank,omitempty"`
	VernacularName string `json:"vernacular_name,omitempty"`
}

// ResolvedParams is the extractor's structured output, enriched with at
// most one resolved identity. It is owned by the request scope and must
// not be mutated after planning begins.
type ResolvedParams struct {
	// Query is the original free-text question.
	Query string `json:"query"`
	// SearchTerm is the primary organism reference, if any. An empty
	// term means "no species mentioned" and downstream components must
	// degrade gracefully.
	SearchTerm string          `json:"search_term,omitempty"`
	Identity   *IdentityRecord `json:"identity,omitempty"`

	// Filters holds fq-style filter clauses (e.g. "state:Queensland").
	Filters []string `json:"filters,omitempty"`
	// Facets holds categorical fields requested for grouping.
	Facets []string `json:"facets,omitempty"`

	Year      string `json:"year,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`

	// RecordUUID references a single occurrence record.
	RecordUUID string `json:"record_uuid,omitempty"`

	HasImages bool `json:"has_images,omitempty"`
	Limit     int  `json:"limit,omitempty"`

	ClarificationNeeded bool   `json:"clarification_needed,omitempty"`
	ClarificationReason string `json:"clarification_reason,omitempty"`
}

// ToolPlanEntry is a single planned tool invocation. The entry order in a
// plan encodes execution order within each priority tier.
type ToolPlanEntry struct {
	ToolName string   `json:"tool_name"`
	Priority Priority `json:"priority"`
	// Reason records why the planner selected this tool, for diagnostics.
	Reason string `json:"reason,omitempty"`
}

// ResearchPlan is the ordered set of tool invocations for one query.
// It is created once per query and read-only during execution. A plan
// with no entries is valid and means "no actionable tool".
type ResearchPlan struct {
	PlanID    string           `json:"plan_id"`
	QueryType QueryType        `json:"query_type"`
	Query     string           `json:"query"`
	Entities  []IdentityRecord `json:"entities,omitempty"`
	Entries   []ToolPlanEntry  `json:"entries"`
	// Message carries the user-facing clarification text for
	// needs_clarification plans.
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MustCallCount returns the number of must-call entries in the plan.
func (p *ResearchPlan) MustCallCount() int {
	n := 0
	for _, e := range p.Entries {
		if e.Priority == PriorityMustCall {
			n++
		}
	}
	return n
}

// ToolOutcome is the result of one tool invocation. The executor appends
// exactly one outcome per planned entry, whether it succeeds or fails.
type ToolOutcome struct {
	ToolName     string        `json:"tool_name"`
	Succeeded    bool          `json:"succeeded"`
	Message      string        `json:"message"`
	Error        string        `json:"error,omitempty"`
	ArtifactRefs []string      `json:"artifact_refs,omitempty"`
	StartTime    time.Time     `json:"start_time"`
	Duration     time.Duration `json:"duration"`
}

// IdentityCandidate is a single match returned by a gateway name lookup.
type IdentityCandidate struct {
	ScientificName string `json:"scientific_name"`
	StableID       string `json:"stable_id"`
	Rank           string `json:"rank,omitempty"`
	VernacularName string `json:"vernacular_name,omitempty"`
}

// GatewayQuery is the request the core hands to the gateway. The gateway
// owns all URL construction and parameter encoding; the core only fills
// in fields.
type GatewayQuery struct {
	Term          string   `json:"term,omitempty"`
	StableID      string   `json:"stable_id,omitempty"`
	RecordUUID    string   `json:"record_uuid,omitempty"`
	FilterQueries []string `json:"filter_queries,omitempty"`
	Facets        []string `json:"facets,omitempty"`
	StartDate     string   `json:"start_date,omitempty"`
	EndDate       string   `json:"end_date,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
}

// FacetCount is one value bucket within a facet breakdown.
type FacetCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FacetField groups the counts for one categorical field.
type FacetField struct {
	FieldName string       `json:"field_name"`
	Counts    []FacetCount `json:"counts"`
}

// GatewayResult is a parsed data-service response. Only the fields
// relevant to the invoked operation are populated.
type GatewayResult struct {
	TotalRecords int                      `json:"total_records"`
	Records      []map[string]interface{} `json:"records,omitempty"`
	Record       map[string]interface{}   `json:"record,omitempty"`
	FacetFields  []FacetField             `json:"facet_fields,omitempty"`
	// URL is the request URL the gateway built, recorded for diagnostics.
	URL string `json:"url,omitempty"`
}
