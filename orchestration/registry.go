// Package orchestration turns resolved query parameters into an ordered
// research plan and executes it against a fixed set of tools with
// two-tier failure containment.
package orchestration

import (
	"fmt"
	"sync"

	"github.com/taxonaut/taxonaut/core"
)

// IntentRole declares that a capability serves a query intent in a
// given priority tier.
type IntentRole struct {
	Intent   core.QueryType
	Priority core.Priority
}

// Capability describes one tool in the registry: the intents it serves,
// its role per intent, and the inputs it cannot run without.
type Capability struct {
	Name           string
	Description    string
	RequiredInputs []string
	Roles          []IntentRole
}

// Registry is the static table of available capabilities. Adding a tool
// is a configuration change here, not a code change in the planner or
// executor. The registry is thread-safe for concurrent lookups.
type Registry struct {
	mu     sync.RWMutex
	caps   []Capability
	byName map[string]int
}

// NewRegistry builds a registry from a capability table.
func NewRegistry(caps []Capability) (*Registry, error) {
	r := &Registry{byName: make(map[string]int)}
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a capability to the registry.
func (r *Registry) Register(c Capability) error {
	if c.Name == "" {
		return fmt.Errorf("%w: capability with empty name", core.ErrInvalidConfiguration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[c.Name]; exists {
		return fmt.Errorf("%w: duplicate capability %q", core.ErrInvalidConfiguration, c.Name)
	}
	r.caps = append(r.caps, c)
	r.byName[c.Name] = len(r.caps) - 1
	return nil
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[name]
	if !ok {
		return Capability{}, false
	}
	return r.caps[idx], true
}

// Names returns all registered capability names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.caps))
	for i, c := range r.caps {
		names[i] = c.Name
	}
	return names
}

// EntriesFor returns the plan entries serving an intent: all must-call
// entries first, then all optional entries, each tier in registry
// declaration order.
func (r *Registry) EntriesFor(intent core.QueryType) []core.ToolPlanEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var mustCall, optional []core.ToolPlanEntry
	for _, c := range r.caps {
		for _, role := range c.Roles {
			if role.Intent != intent {
				continue
			}
			entry := core.ToolPlanEntry{
				ToolName: c.Name,
				Priority: role.Priority,
				Reason:   fmt.Sprintf("%s serves %s queries", c.Name, intent),
			}
			if role.Priority == core.PriorityMustCall {
				mustCall = append(mustCall, entry)
			} else {
				optional = append(optional, entry)
			}
		}
	}
	return append(mustCall, optional...)
}

// DefaultRegistry returns the capability table for the Atlas of Living
// Australia tool set.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry([]Capability{
		{
			Name:           core.ToolSearchOccurrences,
			Description:    "Search occurrence records with taxonomic, spatial and temporal filters",
			RequiredInputs: []string{core.InputSearchTerm},
			Roles: []IntentRole{
				{Intent: core.QueryOccurrenceSearch, Priority: core.PriorityMustCall},
				{Intent: core.QueryDistribution, Priority: core.PriorityOptional},
			},
		},
		{
			Name:           core.ToolCountOccurrences,
			Description:    "Count occurrence records matching a query without fetching them",
			RequiredInputs: nil, // counts work on filters alone
			Roles: []IntentRole{
				{Intent: core.QuerySimpleCount, Priority: core.PriorityMustCall},
			},
		},
		{
			Name:           core.ToolOccurrenceFacets,
			Description:    "Break occurrence counts down by a categorical field",
			RequiredInputs: nil,
			Roles: []IntentRole{
				{Intent: core.QueryBreakdown, Priority: core.PriorityMustCall},
			},
		},
		{
			Name:           core.ToolLookupOccurrence,
			Description:    "Fetch a single occurrence record by UUID",
			RequiredInputs: []string{core.InputRecordUUID},
			Roles: []IntentRole{
				{Intent: core.QuerySingleRecord, Priority: core.PriorityMustCall},
			},
		},
		{
			Name:           core.ToolSpeciesProfile,
			Description:    "Fetch the taxonomic profile for a species",
			RequiredInputs: []string{core.InputSearchTerm},
			Roles: []IntentRole{
				{Intent: core.QuerySpeciesInfo, Priority: core.PriorityMustCall},
				{Intent: core.QueryOccurrenceSearch, Priority: core.PriorityOptional},
			},
		},
		{
			Name:           core.ToolSpeciesImages,
			Description:    "Search image records for a taxon",
			RequiredInputs: []string{core.InputSearchTerm},
			Roles: []IntentRole{
				{Intent: core.QueryImages, Priority: core.PriorityMustCall},
				{Intent: core.QuerySpeciesInfo, Priority: core.PriorityOptional},
			},
		},
		{
			Name:           core.ToolDistributionByID,
			Description:    "Fetch expert distribution data for a taxon identifier",
			RequiredInputs: []string{core.InputIdentity},
			Roles: []IntentRole{
				{Intent: core.QueryDistribution, Priority: core.PriorityMustCall},
			},
		},
		{
			Name:           core.ToolListDistributions,
			Description:    "List available expert distribution layers",
			RequiredInputs: nil,
			Roles: []IntentRole{
				{Intent: core.QueryDistribution, Priority: core.PriorityOptional},
			},
		},
	})
	if err != nil {
		// The default table is static; a construction error is a
		// programming bug, not a runtime condition.
		panic(err)
	}
	return reg
}
