package orchestration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taxonaut/taxonaut/core"
)

// intentRule is one predicate→intent pair. Rules are evaluated in the
// fixed order of the intentRules slice and the first match wins, so
// identical inputs always classify identically. The tie-break policy
// lives entirely in the slice order: breakdown (which needs a grouping
// token) is checked before plain count, record references before
// everything that could also match their surrounding words.
type intentRule struct {
	name    string
	intent  core.QueryType
	matches func(words map[string]bool, q string, p *core.ResolvedParams) bool
}

var intentRules = []intentRule{
	{
		name:   "record reference",
		intent: core.QuerySingleRecord,
		matches: func(words map[string]bool, q string, p *core.ResolvedParams) bool {
			return p.RecordUUID != "" || firstUUIDToken(q) != ""
		},
	},
	{
		name:   "grouping keywords",
		intent: core.QueryBreakdown,
		matches: func(words map[string]bool, q string, p *core.ResolvedParams) bool {
			if len(p.Facets) > 0 {
				return true
			}
			return words["each"] || words["breakdown"] ||
				strings.Contains(q, "per state") || strings.Contains(q, "per year") ||
				strings.Contains(q, "by state") || strings.Contains(q, "by year") ||
				strings.Contains(q, "group by") || strings.Contains(q, "grouped by")
		},
	},
	{
		name:   "image keywords",
		intent: core.QueryImages,
		matches: func(words map[string]bool, q string, p *core.ResolvedParams) bool {
			return p.HasImages || words["image"] || words["images"] ||
				words["photo"] || words["photos"] || words["picture"] || words["pictures"]
		},
	},
	{
		name:   "distribution keywords",
		intent: core.QueryDistribution,
		matches: func(words map[string]bool, q string, p *core.ResolvedParams) bool {
			return words["distribution"] || words["range"] ||
				words["live"] || words["lives"] || words["habitat"]
		},
	},
	{
		name:   "count keywords or bare filters",
		intent: core.QuerySimpleCount,
		matches: func(words map[string]bool, q string, p *core.ResolvedParams) bool {
			if strings.Contains(q, "how many") || words["count"] ||
				strings.Contains(q, "number of") {
				return true
			}
			// A location or time filter with no other signal reads as
			// "how many records match".
			return len(p.Filters) > 0 && p.SearchTerm == "" && p.Identity == nil
		},
	},
	{
		name:   "occurrence keywords",
		intent: core.QueryOccurrenceSearch,
		matches: func(words map[string]bool, q string, p *core.ResolvedParams) bool {
			if p.SearchTerm == "" && p.Identity == nil {
				return false
			}
			return words["sighting"] || words["sightings"] ||
				words["occurrence"] || words["occurrences"] ||
				words["record"] || words["records"] ||
				words["observation"] || words["observations"] ||
				words["specimen"] || words["specimens"]
		},
	},
	{
		name:   "species reference fallback",
		intent: core.QuerySpeciesInfo,
		matches: func(words map[string]bool, q string, p *core.ResolvedParams) bool {
			return p.SearchTerm != "" || p.Identity != nil
		},
	},
}

// Planner produces a ResearchPlan from query text and resolved
// parameters by running the fixed intent rules and consulting the
// capability registry for the winning intent.
type Planner struct {
	registry *Registry
	logger   core.Logger
	tracer   trace.Tracer
}

// NewPlanner creates a planner over the given registry.
func NewPlanner(registry *Registry) *Planner {
	return &Planner{
		registry: registry,
		logger:   &core.NoOpLogger{},
		tracer:   otel.Tracer("taxonaut/orchestration"),
	}
}

// SetLogger sets the logger provider
func (p *Planner) SetLogger(logger core.Logger) {
	if logger == nil {
		p.logger = &core.NoOpLogger{}
	} else {
		p.logger = logger
	}
}

// Plan classifies the query and assembles the ordered tool entries for
// the winning intent. The result is deterministic for identical inputs.
// Plans with empty entries are valid and carry a clarification message.
func (p *Planner) Plan(ctx context.Context, queryText string, params *core.ResolvedParams) *core.ResearchPlan {
	_, span := p.tracer.Start(ctx, "orchestration.Plan")
	defer span.End()

	if params == nil {
		params = &core.ResolvedParams{Query: queryText}
	} else if params.Query == "" {
		// Work on a copy; the caller's parameters are read-only here.
		enriched := *params
		enriched.Query = queryText
		params = &enriched
	}

	if params.ClarificationNeeded {
		reason := params.ClarificationReason
		if reason == "" {
			reason = "Your question needs more detail before I can search."
		}
		return p.clarificationPlan(queryText, params, reason)
	}

	q := strings.ToLower(queryText)
	words := wordSet(q)

	var intent core.QueryType
	var ruleName string
	for _, rule := range intentRules {
		if rule.matches(words, q, params) {
			intent = rule.intent
			ruleName = rule.name
			break
		}
	}
	if intent == "" {
		return p.clarificationPlan(queryText, params,
			"I couldn't work out what to look up. Try naming a species, a place, or a record ID.")
	}

	span.SetAttributes(
		attribute.String("plan.intent", string(intent)),
		attribute.String("plan.rule", ruleName),
	)

	entries, missing := p.assembleEntries(intent, queryText, params)
	if missing != "" {
		return p.clarificationPlan(queryText, params, missing)
	}

	plan := &core.ResearchPlan{
		PlanID:    planID(queryText, params),
		QueryType: intent,
		Query:     queryText,
		Entries:   entries,
		CreatedAt: time.Now(),
	}
	if params.Identity != nil {
		plan.Entities = []core.IdentityRecord{*params.Identity}
	}

	p.logger.Info("Research plan created", map[string]interface{}{
		"operation":   "plan",
		"plan_id":     plan.PlanID,
		"query_type":  string(intent),
		"rule":        ruleName,
		"entry_count": len(entries),
	})
	return plan
}

// assembleEntries pulls the registry entries for the intent and applies
// input requirements: an unsatisfiable must-call entry degrades the
// whole plan to a clarification (the planner never guesses), while an
// unsatisfiable optional entry is simply dropped.
func (p *Planner) assembleEntries(intent core.QueryType, queryText string, params *core.ResolvedParams) ([]core.ToolPlanEntry, string) {
	candidates := p.registry.EntriesFor(intent)
	wantImages := params.HasImages || mentionsImages(queryText)

	entries := make([]core.ToolPlanEntry, 0, len(candidates))
	for _, entry := range candidates {
		cap, ok := p.registry.Lookup(entry.ToolName)
		if !ok {
			continue
		}

		// The image tool only enriches an info lookup when the query
		// actually asks for visuals.
		if intent == core.QuerySpeciesInfo && entry.ToolName == core.ToolSpeciesImages &&
			entry.Priority == core.PriorityOptional && !wantImages {
			continue
		}

		if unmet := unmetInput(cap, params); unmet != "" {
			if entry.Priority == core.PriorityMustCall {
				return nil, clarificationFor(unmet)
			}
			continue
		}
		entries = append(entries, entry)
	}
	return entries, ""
}

func (p *Planner) clarificationPlan(queryText string, params *core.ResolvedParams, reason string) *core.ResearchPlan {
	plan := &core.ResearchPlan{
		PlanID:    planID(queryText, params),
		QueryType: core.QueryNeedsClarification,
		Query:     queryText,
		Entries:   []core.ToolPlanEntry{},
		Message:   reason,
		CreatedAt: time.Now(),
	}
	p.logger.Info("Plan needs clarification", map[string]interface{}{
		"operation": "plan",
		"plan_id":   plan.PlanID,
		"reason":    reason,
	})
	return plan
}

func unmetInput(cap Capability, params *core.ResolvedParams) string {
	for _, input := range cap.RequiredInputs {
		switch input {
		case core.InputSearchTerm:
			if params.SearchTerm == "" && params.Identity == nil {
				return input
			}
		case core.InputIdentity:
			if params.Identity == nil || params.Identity.StableID == "" {
				return input
			}
		case core.InputRecordUUID:
			// The extractor normally fills RecordUUID; a UUID token in
			// the raw query text satisfies the requirement as well.
			if params.RecordUUID == "" && firstUUIDToken(strings.ToLower(params.Query)) == "" {
				return input
			}
		}
	}
	return ""
}

func clarificationFor(input string) string {
	switch input {
	case core.InputIdentity:
		return "I couldn't resolve that name to a known taxon. Could you give the scientific name?"
	case core.InputRecordUUID:
		return "I need the record's UUID to look it up."
	default:
		return "Which species are you asking about?"
	}
}

// planID derives a stable identifier from the query and parameters, so
// identical inputs always produce structurally identical plans.
func planID(queryText string, params *core.ResolvedParams) string {
	h := sha256.New()
	h.Write([]byte(queryText))
	if data, err := json.Marshal(params); err == nil {
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// firstUUIDToken returns the first token of q that parses as a UUID.
func firstUUIDToken(q string) string {
	for _, tok := range strings.Fields(q) {
		tok = strings.Trim(tok, ".,;:()\"'")
		if _, err := uuid.Parse(tok); err == nil {
			return tok
		}
	}
	return ""
}

func mentionsImages(queryText string) bool {
	words := wordSet(strings.ToLower(queryText))
	return words["image"] || words["images"] || words["photo"] ||
		words["photos"] || words["picture"] || words["pictures"]
}

func wordSet(q string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(q) {
		words[strings.Trim(w, ".,;:()?!\"'")] = true
	}
	return words
}
