package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taxonaut/taxonaut/core"
)

// DefaultTools returns the tool implementations matching
// DefaultRegistry, one per capability.
func DefaultTools() []Tool {
	return []Tool{
		searchOccurrencesTool{},
		countOccurrencesTool{},
		occurrenceFacetsTool{},
		lookupOccurrenceTool{},
		speciesProfileTool{},
		speciesImagesTool{},
		distributionByIDTool{},
		listDistributionsTool{},
	}
}

// searchOccurrencesTool searches occurrence records and summarizes the
// first few hits.
type searchOccurrencesTool struct{}

func (searchOccurrencesTool) Name() string { return core.ToolSearchOccurrences }

func (t searchOccurrencesTool) Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome {
	query := baseQuery(tc)
	res, err := tc.Gateway.Invoke(ctx, core.ToolSearchOccurrences, query)
	if err != nil {
		return failureOutcome(core.ToolSearchOccurrences, "Occurrence search failed.", err)
	}

	ref := addResultArtifact(tc, "Occurrence search results", res)
	return successOutcome(core.ToolSearchOccurrences, summarizeOccurrences(res), ref)
}

// countOccurrencesTool counts matching records without fetching them.
type countOccurrencesTool struct{}

func (countOccurrencesTool) Name() string { return core.ToolCountOccurrences }

func (t countOccurrencesTool) Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome {
	query := baseQuery(tc)
	query.Limit = 0
	res, err := tc.Gateway.Invoke(ctx, core.ToolCountOccurrences, query)
	if err != nil {
		return failureOutcome(core.ToolCountOccurrences, "Occurrence count failed.", err)
	}

	subject := tc.Term()
	if subject == "" {
		subject = "your filters"
	}
	msg := fmt.Sprintf("Found %d matching records for %s.", res.TotalRecords, subject)
	ref := addResultArtifact(tc, "Occurrence count", res)
	return successOutcome(core.ToolCountOccurrences, msg, ref)
}

// occurrenceFacetsTool breaks counts down by a categorical field.
type occurrenceFacetsTool struct{}

func (occurrenceFacetsTool) Name() string { return core.ToolOccurrenceFacets }

func (t occurrenceFacetsTool) Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome {
	query := baseQuery(tc)
	query.Limit = 0
	query.Facets = tc.Params.Facets
	if len(query.Facets) == 0 {
		// Grouping was requested but no field named; state is the
		// breakdown people usually mean.
		query.Facets = []string{"stateProvince"}
	}

	res, err := tc.Gateway.Invoke(ctx, core.ToolOccurrenceFacets, query)
	if err != nil {
		return failureOutcome(core.ToolOccurrenceFacets, "Facet breakdown failed.", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Breakdown of %d records:\n", res.TotalRecords)
	for _, field := range res.FacetFields {
		fmt.Fprintf(&b, "%s:\n", field.FieldName)
		for _, fc := range field.Counts {
			fmt.Fprintf(&b, "  %s: %d\n", fc.Label, fc.Count)
		}
	}
	ref := addResultArtifact(tc, "Facet breakdown", res)
	return successOutcome(core.ToolOccurrenceFacets, strings.TrimRight(b.String(), "\n"), ref)
}

// lookupOccurrenceTool fetches one record by UUID.
type lookupOccurrenceTool struct{}

func (lookupOccurrenceTool) Name() string { return core.ToolLookupOccurrence }

func (t lookupOccurrenceTool) Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome {
	recordUUID := tc.Params.RecordUUID
	if recordUUID == "" {
		recordUUID = firstUUIDToken(strings.ToLower(tc.Params.Query))
	}
	if recordUUID == "" {
		return failureOutcome(core.ToolLookupOccurrence, "No record UUID to look up.", core.ErrMissingInput)
	}

	res, err := tc.Gateway.Invoke(ctx, core.ToolLookupOccurrence, &core.GatewayQuery{RecordUUID: recordUUID})
	if err != nil {
		return failureOutcome(core.ToolLookupOccurrence, "Record lookup failed.", err)
	}

	name := recordString(res.Record, "scientificName")
	msg := fmt.Sprintf("Retrieved occurrence record %s", recordUUID)
	if name != "" {
		msg += fmt.Sprintf(" (%s)", name)
	}
	msg += "."
	ref := addResultArtifact(tc, "Occurrence record details", res)
	return successOutcome(core.ToolLookupOccurrence, msg, ref)
}

// speciesProfileTool fetches the taxonomic profile for a species.
type speciesProfileTool struct{}

func (speciesProfileTool) Name() string { return core.ToolSpeciesProfile }

func (t speciesProfileTool) Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome {
	term := tc.Term()
	if term == "" {
		return failureOutcome(core.ToolSpeciesProfile, "No species to look up.", core.ErrMissingInput)
	}

	res, err := tc.Gateway.Invoke(ctx, core.ToolSpeciesProfile, &core.GatewayQuery{Term: term})
	if err != nil {
		return failureOutcome(core.ToolSpeciesProfile, fmt.Sprintf("Species profile lookup for %q failed.", term), err)
	}

	parts := []string{fmt.Sprintf("Profile for %s", term)}
	if rank := recordString(res.Record, "rank", "rankString"); rank != "" {
		parts = append(parts, "rank "+rank)
	}
	if common := recordString(res.Record, "commonNameSingle"); common != "" {
		parts = append(parts, "commonly "+common)
	}
	ref := addResultArtifact(tc, "Species profile", res)
	return successOutcome(core.ToolSpeciesProfile, strings.Join(parts, ", ")+".", ref)
}

// speciesImagesTool searches image records for a taxon.
type speciesImagesTool struct{}

func (speciesImagesTool) Name() string { return core.ToolSpeciesImages }

func (t speciesImagesTool) Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome {
	query := baseQuery(tc)
	res, err := tc.Gateway.Invoke(ctx, core.ToolSpeciesImages, query)
	if err != nil {
		return failureOutcome(core.ToolSpeciesImages, "Image search failed.", err)
	}

	msg := fmt.Sprintf("Found %d records with images for %s.", res.TotalRecords, tc.Term())
	ref := addResultArtifact(tc, "Image search results", res)
	return successOutcome(core.ToolSpeciesImages, msg, ref)
}

// distributionByIDTool fetches expert distribution data for a taxon.
type distributionByIDTool struct{}

func (distributionByIDTool) Name() string { return core.ToolDistributionByID }

func (t distributionByIDTool) Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome {
	if tc.Identity == nil || tc.Identity.StableID == "" {
		return failureOutcome(core.ToolDistributionByID, "No taxon identifier for distribution lookup.", core.ErrMissingInput)
	}

	res, err := tc.Gateway.Invoke(ctx, core.ToolDistributionByID, &core.GatewayQuery{StableID: tc.Identity.StableID})
	if err != nil {
		return failureOutcome(core.ToolDistributionByID, "Distribution lookup failed.", err)
	}

	msg := fmt.Sprintf("Found %d expert distribution layer(s) for %s.", len(res.Records), tc.Term())
	ref := addResultArtifact(tc, "Expert distribution data", res)
	return successOutcome(core.ToolDistributionByID, msg, ref)
}

// listDistributionsTool lists the available expert distribution layers.
type listDistributionsTool struct{}

func (listDistributionsTool) Name() string { return core.ToolListDistributions }

func (t listDistributionsTool) Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome {
	res, err := tc.Gateway.Invoke(ctx, core.ToolListDistributions, &core.GatewayQuery{})
	if err != nil {
		return failureOutcome(core.ToolListDistributions, "Listing distributions failed.", err)
	}

	msg := fmt.Sprintf("The service provides %d expert distribution layer(s).", len(res.Records))
	ref := addResultArtifact(tc, "Available expert distributions", res)
	return successOutcome(core.ToolListDistributions, msg, ref)
}

// baseQuery assembles the common gateway query from the tool context:
// search term, filter clauses, and temporal bounds.
func baseQuery(tc *ToolContext) *core.GatewayQuery {
	p := tc.Params
	query := &core.GatewayQuery{
		Term:      tc.Term(),
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Limit:     p.Limit,
	}
	query.FilterQueries = append(query.FilterQueries, p.Filters...)
	if p.Year != "" {
		query.FilterQueries = append(query.FilterQueries, "year:"+p.Year)
	}
	if query.Limit <= 0 {
		query.Limit = core.DefaultResultLimit
	}
	return query
}

// summarizeOccurrences renders a short human-readable listing of the
// first few records, matching the display format users already know.
func summarizeOccurrences(res *core.GatewayResult) string {
	if res.TotalRecords == 0 {
		return "No occurrences found for your query."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d total records. Showing %d:\n", res.TotalRecords, len(res.Records))

	shown := res.Records
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for i, occ := range shown {
		name := recordString(occ, "scientificName")
		if name == "" {
			name = "Unknown species"
		}

		var locationParts []string
		for _, key := range []string{"locality", "stateProvince", "country"} {
			if v := recordString(occ, key); v != "" {
				locationParts = append(locationParts, v)
			}
		}
		location := "Location not specified"
		if len(locationParts) > 0 {
			location = strings.Join(locationParts, ", ")
		}

		line := fmt.Sprintf("%d. %s - %s", i+1, name, location)
		if date := recordString(occ, "eventDate"); date != "" {
			line += " on " + date
		}
		fmt.Fprintln(&b, line)
	}

	if len(res.Records) < res.TotalRecords {
		fmt.Fprintf(&b, "... and %d more records available.\n", res.TotalRecords-len(res.Records))
	}
	return strings.TrimRight(b.String(), "\n")
}

func recordString(record map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := record[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func addResultArtifact(tc *ToolContext, description string, res *core.GatewayResult) string {
	data, err := json.Marshal(res)
	if err != nil {
		return ""
	}
	return tc.Artifacts.Add(description, "application/json", data)
}

func successOutcome(tool, message string, refs ...string) core.ToolOutcome {
	clean := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref != "" {
			clean = append(clean, ref)
		}
	}
	return core.ToolOutcome{ToolName: tool, Succeeded: true, Message: message, ArtifactRefs: clean}
}

func failureOutcome(tool, message string, err error) core.ToolOutcome {
	return core.ToolOutcome{ToolName: tool, Succeeded: false, Message: message, Error: err.Error()}
}
