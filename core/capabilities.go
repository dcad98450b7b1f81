package core

// Canonical tool names, shared by the capability registry, the executor
// and the gateway. The gateway maps each name to the data-service
// operation it fronts.
const (
	ToolSearchOccurrences = "search_occurrences"
	ToolCountOccurrences  = "count_occurrences"
	ToolOccurrenceFacets  = "occurrence_facets"
	ToolLookupOccurrence  = "lookup_occurrence"
	ToolSpeciesProfile    = "species_profile"
	ToolSpeciesImages     = "species_images"
	ToolDistributionByID  = "distribution_by_lsid"
	ToolListDistributions = "list_distributions"
)

// Required-input field names a capability can declare. The planner drops
// optional entries whose inputs are missing and degrades must-call
// entries to a clarification plan.
const (
	InputSearchTerm = "search_term"
	InputIdentity   = "identity"
	InputRecordUUID = "record_uuid"
)
