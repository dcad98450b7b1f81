package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taxonaut/taxonaut/core"
)

// Client is the data-service gateway: it builds requests, performs the
// I/O and parses responses into core.GatewayResult values. Every call
// is bounded by the configured timeout and guarded by a circuit
// breaker; transport is instrumented with otelhttp.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *Breaker
	logger     core.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBreaker replaces the circuit breaker.
func WithBreaker(b *Breaker) ClientOption {
	return func(c *Client) { c.breaker = b }
}

// New creates a gateway client from configuration.
func New(cfg *core.Config, opts ...ClientOption) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = core.DefaultRequestTimeout
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: NewBreaker(5, 30*time.Second),
		logger:  &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLogger sets the logger provider
func (c *Client) SetLogger(logger core.Logger) {
	if logger == nil {
		c.logger = &core.NoOpLogger{}
	} else {
		c.logger = logger
	}
}

// LookupScientific matches a scientific name via the species profile
// endpoint, which is precise: it answers for exact taxonomy matches
// only.
func (c *Client) LookupScientific(ctx context.Context, name string) (*core.IdentityCandidate, error) {
	u := c.buildSpeciesLookupURL(name)

	var body struct {
		TaxonConcept struct {
			NameString string `json:"nameString"`
			GUID       string `json:"guid"`
			RankString string `json:"rankString"`
		} `json:"taxonConcept"`
		CommonNames []struct {
			NameString string `json:"nameString"`
		} `json:"commonNames"`
	}
	if err := c.getJSON(ctx, "gateway.LookupScientific", u, &body); err != nil {
		return nil, err
	}
	if body.TaxonConcept.GUID == "" {
		return nil, notFound("gateway.LookupScientific", name)
	}

	candidate := &core.IdentityCandidate{
		ScientificName: body.TaxonConcept.NameString,
		StableID:       body.TaxonConcept.GUID,
		Rank:           body.TaxonConcept.RankString,
	}
	if len(body.CommonNames) > 0 {
		candidate.VernacularName = body.CommonNames[0].NameString
	}
	return candidate, nil
}

// LookupVernacular matches a common name via the faceted species
// search; the best-ranked result wins.
func (c *Client) LookupVernacular(ctx context.Context, name string) (*core.IdentityCandidate, error) {
	u := c.buildSpeciesSearchURL(name, 5)

	var body struct {
		SearchResults struct {
			Results []struct {
				Name             string `json:"name"`
				GUID             string `json:"guid"`
				Rank             string `json:"rank"`
				CommonNameSingle string `json:"commonNameSingle"`
			} `json:"results"`
		} `json:"searchResults"`
	}
	if err := c.getJSON(ctx, "gateway.LookupVernacular", u, &body); err != nil {
		return nil, err
	}
	results := body.SearchResults.Results
	if len(results) == 0 {
		return nil, notFound("gateway.LookupVernacular", name)
	}

	best := results[0]
	return &core.IdentityCandidate{
		ScientificName: best.Name,
		StableID:       best.GUID,
		Rank:           best.Rank,
		VernacularName: best.CommonNameSingle,
	}, nil
}

// Invoke runs the named data-service operation. Unknown tool names are
// a configuration error, not a transport failure.
func (c *Client) Invoke(ctx context.Context, toolName string, query *core.GatewayQuery) (*core.GatewayResult, error) {
	switch toolName {
	case core.ToolSearchOccurrences, core.ToolCountOccurrences:
		return c.occurrenceSearch(ctx, query, false)
	case core.ToolSpeciesImages:
		return c.occurrenceSearch(ctx, query, true)
	case core.ToolOccurrenceFacets:
		return c.occurrenceSearch(ctx, query, false)
	case core.ToolLookupOccurrence:
		return c.occurrenceLookup(ctx, query.RecordUUID)
	case core.ToolSpeciesProfile:
		return c.speciesProfile(ctx, query.Term)
	case core.ToolDistributionByID:
		return c.distributions(ctx, query.StableID)
	case core.ToolListDistributions:
		return c.distributions(ctx, "")
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrToolNotFound, toolName)
	}
}

func (c *Client) occurrenceSearch(ctx context.Context, query *core.GatewayQuery, imagesOnly bool) (*core.GatewayResult, error) {
	u := c.buildOccurrenceSearchURL(query, imagesOnly)

	var body struct {
		TotalRecords int                      `json:"totalRecords"`
		Occurrences  []map[string]interface{} `json:"occurrences"`
		FacetResults []struct {
			FieldName   string `json:"fieldName"`
			FieldResult []struct {
				Label string `json:"label"`
				Count int    `json:"count"`
			} `json:"fieldResult"`
		} `json:"facetResults"`
	}
	if err := c.getJSON(ctx, "gateway.occurrenceSearch", u, &body); err != nil {
		return nil, err
	}

	result := &core.GatewayResult{
		TotalRecords: body.TotalRecords,
		Records:      body.Occurrences,
		URL:          u,
	}
	for _, facet := range body.FacetResults {
		field := core.FacetField{FieldName: facet.FieldName}
		for _, fr := range facet.FieldResult {
			field.Counts = append(field.Counts, core.FacetCount{Label: fr.Label, Count: fr.Count})
		}
		result.FacetFields = append(result.FacetFields, field)
	}
	return result, nil
}

func (c *Client) occurrenceLookup(ctx context.Context, recordUUID string) (*core.GatewayResult, error) {
	u := c.buildOccurrenceLookupURL(recordUUID)

	var record map[string]interface{}
	if err := c.getJSON(ctx, "gateway.occurrenceLookup", u, &record); err != nil {
		return nil, err
	}
	return &core.GatewayResult{Record: record, TotalRecords: 1, URL: u}, nil
}

func (c *Client) speciesProfile(ctx context.Context, term string) (*core.GatewayResult, error) {
	u := c.buildSpeciesLookupURL(term)

	var record map[string]interface{}
	if err := c.getJSON(ctx, "gateway.speciesProfile", u, &record); err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, notFound("gateway.speciesProfile", term)
	}
	// Flatten the fields tools read most often.
	if tc, ok := record["taxonConcept"].(map[string]interface{}); ok {
		if rank, ok := tc["rankString"].(string); ok {
			record["rank"] = rank
		}
	}
	return &core.GatewayResult{Record: record, TotalRecords: 1, URL: u}, nil
}

func (c *Client) distributions(ctx context.Context, stableID string) (*core.GatewayResult, error) {
	u := c.buildDistributionsURL(stableID)

	var layers []map[string]interface{}
	if err := c.getJSON(ctx, "gateway.distributions", u, &layers); err != nil {
		return nil, err
	}
	return &core.GatewayResult{Records: layers, TotalRecords: len(layers), URL: u}, nil
}

// getJSON performs a GET through the circuit breaker and decodes the
// JSON response. 404 maps to core.ErrNotFound; any other non-2xx status
// or transport fault maps to UpstreamError.
func (c *Client) getJSON(ctx context.Context, op, u string, target interface{}) error {
	start := time.Now()

	err := c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return &UpstreamError{Op: op, URL: u, Cause: err}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &UpstreamError{Op: op, URL: u, Cause: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			// Read and discard so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			return notFound(op, u)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return &UpstreamError{Op: op, URL: u, StatusCode: resp.StatusCode}
		}

		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return &UpstreamError{Op: op, URL: u, Cause: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	})

	c.logger.Debug("Gateway call finished", map[string]interface{}{
		"operation":   op,
		"url":         u,
		"duration_ms": time.Since(start).Milliseconds(),
		"success":     err == nil,
	})
	return err
}
