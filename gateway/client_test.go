package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonaut/taxonaut/core"
)

func newTestServerClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := core.NewConfig(core.WithBaseURL(server.URL))
	return New(cfg, WithHTTPClient(server.Client()))
}

func TestLookupScientificParsesProfile(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/species/Litoria peronii")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"taxonConcept": {
				"nameString": "Litoria peronii",
				"guid": "urn:lsid:biodiversity.org.au:afd.taxon:0df99ece",
				"rankString": "species"
			},
			"commonNames": [{"nameString": "Peron's Tree Frog"}]
		}`))
	}))

	candidate, err := c.LookupScientific(context.Background(), "Litoria peronii")
	require.NoError(t, err)
	assert.Equal(t, "Litoria peronii", candidate.ScientificName)
	assert.Equal(t, "urn:lsid:biodiversity.org.au:afd.taxon:0df99ece", candidate.StableID)
	assert.Equal(t, "species", candidate.Rank)
	assert.Equal(t, "Peron's Tree Frog", candidate.VernacularName)
}

func TestLookupScientificEmptyProfileIsNotFound(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := c.LookupScientific(context.Background(), "Nonexistus imaginarius")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLookupScientific404IsNotFound(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := c.LookupScientific(context.Background(), "Nonexistus imaginarius")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestLookupVernacularTakesBestMatch(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/species/search", r.URL.Path)
		assert.Equal(t, "Laughing Kookaburra", r.URL.Query().Get("q"))
		w.Write([]byte(`{
			"searchResults": {
				"results": [
					{"name": "Dacelo novaeguineae", "guid": "urn:lsid:test:kooka", "rank": "species", "commonNameSingle": "Laughing Kookaburra"},
					{"name": "Dacelo leachii", "guid": "urn:lsid:test:blue", "rank": "species"}
				]
			}
		}`))
	}))

	candidate, err := c.LookupVernacular(context.Background(), "Laughing Kookaburra")
	require.NoError(t, err)
	assert.Equal(t, "Dacelo novaeguineae", candidate.ScientificName)
	assert.Equal(t, "urn:lsid:test:kooka", candidate.StableID)
}

func TestLookupVernacularNoResults(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"searchResults": {"results": []}}`))
	}))

	_, err := c.LookupVernacular(context.Background(), "gobbledygook bird")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInvokeOccurrenceSearch(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/occurrences/search", r.URL.Path)
		w.Write([]byte(`{
			"totalRecords": 2,
			"occurrences": [
				{"scientificName": "Phascolarctos cinereus", "stateProvince": "Queensland"},
				{"scientificName": "Phascolarctos cinereus", "stateProvince": "Victoria"}
			],
			"facetResults": [{
				"fieldName": "stateProvince",
				"fieldResult": [
					{"label": "Queensland", "count": 1},
					{"label": "Victoria", "count": 1}
				]
			}]
		}`))
	}))

	res, err := c.Invoke(context.Background(), core.ToolSearchOccurrences, &core.GatewayQuery{Term: "koala", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRecords)
	assert.Len(t, res.Records, 2)
	require.Len(t, res.FacetFields, 1)
	assert.Equal(t, "stateProvince", res.FacetFields[0].FieldName)
	assert.Equal(t, "Queensland", res.FacetFields[0].Counts[0].Label)
	assert.NotEmpty(t, res.URL)
}

func TestInvokeOccurrenceLookup(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/occurrences/4b2895d0-6b2f-4387-b0d5-25ef7e0be1b8", r.URL.Path)
		w.Write([]byte(`{"scientificName": "Litoria peronii", "eventDate": "2021-03-14"}`))
	}))

	res, err := c.Invoke(context.Background(), core.ToolLookupOccurrence,
		&core.GatewayQuery{RecordUUID: "4b2895d0-6b2f-4387-b0d5-25ef7e0be1b8"})
	require.NoError(t, err)
	assert.Equal(t, "Litoria peronii", res.Record["scientificName"])
}

func TestInvokeDistributions(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spatial-service/distributions", r.URL.Path)
		assert.Equal(t, "urn:lsid:test:koala", r.URL.Query().Get("lsids"))
		w.Write([]byte(`[{"area_name": "East coast"}, {"area_name": "South east"}]`))
	}))

	res, err := c.Invoke(context.Background(), core.ToolDistributionByID,
		&core.GatewayQuery{StableID: "urn:lsid:test:koala"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRecords)
	assert.Len(t, res.Records, 2)
}

func TestInvokeUnknownTool(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := c.Invoke(context.Background(), "launch_rockets", &core.GatewayQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrToolNotFound)
}

func TestServerErrorIsUpstream(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))

	_, err := c.Invoke(context.Background(), core.ToolSearchOccurrences, &core.GatewayQuery{Term: "koala"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
}

func TestMalformedJSONIsUpstream(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalRecords": `))
	}))

	_, err := c.Invoke(context.Background(), core.ToolSearchOccurrences, &core.GatewayQuery{Term: "koala"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)
}

func TestRepeatedFailuresOpenTheCircuit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	cfg := core.NewConfig(core.WithBaseURL(server.URL))
	c := New(cfg, WithHTTPClient(server.Client()), WithBreaker(NewBreaker(2, time.Hour)))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.Invoke(ctx, core.ToolSearchOccurrences, &core.GatewayQuery{Term: "koala"})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrUpstream)
	}
	assert.Equal(t, "open", c.breaker.State())

	// With the circuit open the gateway fails fast without touching the
	// network.
	_, err := c.Invoke(ctx, core.ToolSearchOccurrences, &core.GatewayQuery{Term: "koala"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCircuitOpen)
}
