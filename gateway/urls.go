package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/taxonaut/taxonaut/core"
)

// buildOccurrenceSearchURL builds the occurrence search URL. The main
// term goes in q; everything else becomes fq clauses joined with AND.
// Multi-word fq values are quoted, and start/end dates become a single
// occurrence_date range clause (open ends use * and NOW).
func (c *Client) buildOccurrenceSearchURL(q *core.GatewayQuery, imagesOnly bool) string {
	params := url.Values{}
	if q.Term != "" {
		params.Set("q", q.Term)
	}

	fq := make([]string, 0, len(q.FilterQueries)+2)
	for _, clause := range q.FilterQueries {
		fq = append(fq, quoteFilterClause(clause))
	}
	if q.StartDate != "" || q.EndDate != "" {
		start, end := "*", "NOW"
		if q.StartDate != "" {
			start = q.StartDate + "T00:00:00Z"
		}
		if q.EndDate != "" {
			end = q.EndDate + "T23:59:59Z"
		}
		fq = append(fq, fmt.Sprintf("occurrence_date:[%s TO %s]", start, end))
	}
	if imagesOnly {
		fq = append(fq, "multimedia:Image")
	}
	if len(fq) > 0 {
		params.Set("fq", strings.Join(fq, " AND "))
	}

	params.Set("pageSize", strconv.Itoa(q.Limit))
	if q.Offset > 0 {
		params.Set("startIndex", strconv.Itoa(q.Offset))
	}
	if len(q.Facets) > 0 {
		params.Set("facets", strings.Join(q.Facets, ","))
		params.Set("flimit", "50")
	}

	return c.baseURL + "/occurrences/search?" + params.Encode()
}

// buildOccurrenceLookupURL builds the single-record lookup URL.
func (c *Client) buildOccurrenceLookupURL(recordUUID string) string {
	return c.baseURL + "/occurrences/" + url.PathEscape(recordUUID)
}

// buildSpeciesLookupURL builds the species profile URL. Works for both
// names and stable identifiers.
func (c *Client) buildSpeciesLookupURL(term string) string {
	params := url.Values{}
	params.Set("includeChildren", "false")
	params.Set("includeSynonyms", "false")
	return c.baseURL + "/species/" + url.PathEscape(term) + "?" + params.Encode()
}

// buildSpeciesSearchURL builds the faceted species search URL used for
// vernacular name matching.
func (c *Client) buildSpeciesSearchURL(q string, pageSize int) string {
	params := url.Values{}
	params.Set("q", q)
	params.Set("pageSize", strconv.Itoa(pageSize))
	return c.baseURL + "/species/search?" + params.Encode()
}

// buildDistributionsURL builds the expert distribution listing URL,
// optionally scoped to one taxon identifier.
func (c *Client) buildDistributionsURL(stableID string) string {
	u := c.baseURL + "/spatial-service/distributions"
	if stableID != "" {
		params := url.Values{}
		params.Set("lsids", stableID)
		u += "?" + params.Encode()
	}
	return u
}

// quoteFilterClause quotes the value part of a field:value clause when
// it contains spaces, e.g. state:New South Wales -> state:"New South Wales".
func quoteFilterClause(clause string) string {
	idx := strings.Index(clause, ":")
	if idx < 0 {
		return clause
	}
	field, value := clause[:idx], clause[idx+1:]
	if strings.Contains(value, " ") && !strings.HasPrefix(value, "\"") {
		return field + ":\"" + value + "\""
	}
	return clause
}
