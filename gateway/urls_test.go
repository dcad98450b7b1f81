package gateway

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonaut/taxonaut/core"
)

func testClient() *Client {
	return &Client{baseURL: "https://api.example.org"}
}

func parseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestBuildOccurrenceSearchURL(t *testing.T) {
	c := testClient()
	u := c.buildOccurrenceSearchURL(&core.GatewayQuery{
		Term:          "Phascolarctos cinereus",
		FilterQueries: []string{"stateProvince:Queensland"},
		Limit:         20,
	}, false)

	q := parseQuery(t, u)
	assert.Equal(t, "Phascolarctos cinereus", q.Get("q"))
	assert.Equal(t, "stateProvince:Queensland", q.Get("fq"))
	assert.Equal(t, "20", q.Get("pageSize"))
	assert.Empty(t, q.Get("facets"))
}

func TestBuildOccurrenceSearchURLQuotesMultiWordFilters(t *testing.T) {
	c := testClient()
	u := c.buildOccurrenceSearchURL(&core.GatewayQuery{
		Term:          "Dacelo novaeguineae",
		FilterQueries: []string{"stateProvince:New South Wales"},
		Limit:         10,
	}, false)

	q := parseQuery(t, u)
	assert.Equal(t, `stateProvince:"New South Wales"`, q.Get("fq"))
}

func TestBuildOccurrenceSearchURLJoinsFiltersWithAND(t *testing.T) {
	c := testClient()
	u := c.buildOccurrenceSearchURL(&core.GatewayQuery{
		Term:          "koala",
		FilterQueries: []string{"stateProvince:Queensland", "year:2020"},
		Limit:         10,
	}, false)

	q := parseQuery(t, u)
	assert.Equal(t, "stateProvince:Queensland AND year:2020", q.Get("fq"))
}

func TestBuildOccurrenceSearchURLDateRange(t *testing.T) {
	c := testClient()

	tests := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{"both bounds", "2019-01-01", "2020-12-31",
			"occurrence_date:[2019-01-01T00:00:00Z TO 2020-12-31T23:59:59Z]"},
		{"open start", "", "2020-12-31",
			"occurrence_date:[* TO 2020-12-31T23:59:59Z]"},
		{"open end", "2019-01-01", "",
			"occurrence_date:[2019-01-01T00:00:00Z TO NOW]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := c.buildOccurrenceSearchURL(&core.GatewayQuery{
				Term:      "koala",
				StartDate: tt.start,
				EndDate:   tt.end,
				Limit:     10,
			}, false)
			assert.Equal(t, tt.want, parseQuery(t, u).Get("fq"))
		})
	}
}

func TestBuildOccurrenceSearchURLImagesOnly(t *testing.T) {
	c := testClient()
	u := c.buildOccurrenceSearchURL(&core.GatewayQuery{Term: "koala", Limit: 10}, true)
	assert.Equal(t, "multimedia:Image", parseQuery(t, u).Get("fq"))
}

func TestBuildOccurrenceSearchURLFacets(t *testing.T) {
	c := testClient()
	u := c.buildOccurrenceSearchURL(&core.GatewayQuery{
		Term:   "koala",
		Facets: []string{"stateProvince", "year"},
	}, false)

	q := parseQuery(t, u)
	assert.Equal(t, "stateProvince,year", q.Get("facets"))
	assert.Equal(t, "50", q.Get("flimit"))
}

func TestBuildSpeciesLookupURL(t *testing.T) {
	c := testClient()
	u := c.buildSpeciesLookupURL("Litoria peronii")

	assert.Contains(t, u, "/species/Litoria%20peronii")
	q := parseQuery(t, u)
	assert.Equal(t, "false", q.Get("includeChildren"))
	assert.Equal(t, "false", q.Get("includeSynonyms"))
}

func TestBuildSpeciesSearchURL(t *testing.T) {
	c := testClient()
	u := c.buildSpeciesSearchURL("tree frog", 5)

	q := parseQuery(t, u)
	assert.Equal(t, "tree frog", q.Get("q"))
	assert.Equal(t, "5", q.Get("pageSize"))
}

func TestBuildDistributionsURL(t *testing.T) {
	c := testClient()

	assert.Equal(t, "https://api.example.org/spatial-service/distributions",
		c.buildDistributionsURL(""))

	u := c.buildDistributionsURL("urn:lsid:biodiversity.org.au:afd.taxon:abc")
	q := parseQuery(t, u)
	assert.Equal(t, "urn:lsid:biodiversity.org.au:afd.taxon:abc", q.Get("lsids"))
}

func TestQuoteFilterClause(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"stateProvince:Queensland", "stateProvince:Queensland"},
		{"stateProvince:New South Wales", `stateProvince:"New South Wales"`},
		{`stateProvince:"Already Quoted"`, `stateProvince:"Already Quoted"`},
		{"no-colon-here", "no-colon-here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quoteFilterClause(tt.in))
	}
}
