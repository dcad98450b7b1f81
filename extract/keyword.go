// Package extract turns free-text research questions into structured
// parameters. Two implementations exist: KeywordExtractor works offline
// from patterns alone, OpenAIExtractor delegates to a chat-completions
// endpoint and falls back to keywords when the endpoint is unavailable.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/taxonaut/taxonaut/core"
	"github.com/taxonaut/taxonaut/resolve"
)

// KeywordExtractor derives structured parameters from a query with
// deterministic pattern matching. It never errors and never needs the
// network, which makes it the default and the fallback path.
type KeywordExtractor struct {
	logger core.Logger
}

// NewKeywordExtractor creates a pattern-based extractor.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{logger: &core.NoOpLogger{}}
}

// SetLogger sets the logger provider
func (e *KeywordExtractor) SetLogger(logger core.Logger) {
	if logger == nil {
		e.logger = &core.NoOpLogger{}
	} else {
		e.logger = logger
	}
}

var (
	yearPattern   = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\b`)
	beforePattern = regexp.MustCompile(`\b(?:before|until|up to)\s+(1[6-9]\d{2}|20\d{2})\b`)
	afterPattern  = regexp.MustCompile(`\b(?:after|since|from)\s+(1[6-9]\d{2}|20\d{2})\b`)
	tokenPattern  = regexp.MustCompile(`[A-Za-z][A-Za-z.'-]*`)
)

// australianStates maps lowercase state references to the canonical
// stateProvince values the occurrence index uses.
var australianStates = map[string]string{
	"queensland":                    "Queensland",
	"qld":                           "Queensland",
	"new south wales":               "New South Wales",
	"nsw":                           "New South Wales",
	"victoria":                      "Victoria",
	"vic":                           "Victoria",
	"tasmania":                      "Tasmania",
	"tas":                           "Tasmania",
	"south australia":               "South Australia",
	"western australia":             "Western Australia",
	"northern territory":            "Northern Territory",
	"australian capital territory":  "Australian Capital Territory",
	"act":                           "Australian Capital Territory",
}

var imageWords = map[string]bool{
	"photo": true, "photos": true, "photograph": true, "photographs": true,
	"image": true, "images": true, "picture": true, "pictures": true,
}

// groupingFields maps "by <word>" targets to facet field names.
var groupingFields = map[string]string{
	"state":    "stateProvince",
	"states":   "stateProvince",
	"region":   "stateProvince",
	"year":     "year",
	"decade":   "decade",
	"month":    "month",
	"species":  "species",
	"family":   "family",
	"genus":    "genus",
	"basis":    "basisOfRecord",
	"dataset":  "dataResourceName",
	"datasets": "dataResourceName",
}

// queryStopwords are tokens that never belong to an organism name, even
// when capitalized at the start of a question.
var queryStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true, "on": true,
	"for": true, "from": true, "with": true, "about": true, "are": true,
	"is": true, "do": true, "does": true, "did": true, "how": true,
	"what": true, "which": true, "where": true, "when": true, "who": true,
	"show": true, "find": true, "get": true, "give": true, "tell": true,
	"list": true, "count": true, "many": true, "me": true, "all": true,
	"any": true, "there": true, "records": true, "record": true,
	"occurrences": true, "occurrence": true, "sightings": true,
	"sighting": true, "observations": true, "observation": true,
	"distribution": true, "distributions": true, "breakdown": true,
	"grouped": true, "group": true, "by": true, "and": true, "or": true,
	"to": true, "i": true, "we": true, "please": true, "australia": true,
	"australian": true, "look": true, "up": true, "information": true,
	"info": true, "details": true, "detail": true, "profile": true,
	"species": true, "taxon": true, "found": true, "seen": true,
	"recorded": true, "photo": true, "photos": true, "image": true,
	"images": true, "picture": true, "pictures": true,
}

// Extract implements core.Extractor.
func (e *KeywordExtractor) Extract(_ context.Context, query string) (*core.ResolvedParams, error) {
	params := &core.ResolvedParams{Query: query}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		params.ClarificationNeeded = true
		params.ClarificationReason = "The question is empty. What would you like to research?"
		return params, nil
	}
	lower := strings.ToLower(trimmed)

	// A stable identifier or a bare UUID short-circuits name guessing.
	if id := firstIdentifierToken(trimmed); id != "" {
		params.SearchTerm = id
	}
	for _, tok := range strings.Fields(lower) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if _, err := uuid.Parse(tok); err == nil {
			params.RecordUUID = tok
			break
		}
	}

	e.extractTemporal(lower, params)
	e.extractFilters(lower, params)
	e.extractFacets(lower, params)

	for word := range imageWords {
		if strings.Contains(lower, word) {
			params.HasImages = true
			break
		}
	}

	// A record reference is already a complete question; guessing an
	// organism out of the surrounding words would only add noise.
	if params.SearchTerm == "" && params.RecordUUID == "" {
		params.SearchTerm = guessOrganismName(trimmed)
	}

	if params.SearchTerm == "" && params.RecordUUID == "" &&
		len(params.Filters) == 0 && len(params.Facets) == 0 {
		params.ClarificationNeeded = true
		params.ClarificationReason = "I could not identify a species, location or record in your question. Could you rephrase it?"
	}

	e.logger.Debug("Keyword extraction complete", map[string]interface{}{
		"query":         query,
		"search_term":   params.SearchTerm,
		"filters":       len(params.Filters),
		"facets":        len(params.Facets),
		"clarification": params.ClarificationNeeded,
	})
	return params, nil
}

func (e *KeywordExtractor) extractTemporal(lower string, params *core.ResolvedParams) {
	if m := beforePattern.FindStringSubmatch(lower); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			params.EndDate = strconv.Itoa(y-1) + "-12-31"
		}
		return
	}
	if m := afterPattern.FindStringSubmatch(lower); m != nil {
		params.StartDate = m[1] + "-01-01"
		return
	}
	if m := yearPattern.FindStringSubmatch(lower); m != nil {
		params.Year = m[1]
	}
}

func (e *KeywordExtractor) extractFilters(lower string, params *core.ResolvedParams) {
	// Longest state names first, so "western australia" wins over the
	// bare "australia" that guessOrganismName already ignores.
	matched := ""
	for ref := range australianStates {
		if len(ref) > len(matched) && containsWordPhrase(lower, ref) {
			matched = ref
		}
	}
	if matched != "" {
		params.Filters = append(params.Filters, "stateProvince:"+australianStates[matched])
	}
}

func (e *KeywordExtractor) extractFacets(lower string, params *core.ResolvedParams) {
	if !strings.Contains(lower, " by ") && !strings.Contains(lower, "breakdown") &&
		!strings.Contains(lower, "grouped") && !strings.Contains(lower, "per ") {
		return
	}
	for target, field := range groupingFields {
		if containsWordPhrase(lower, "by "+target) ||
			containsWordPhrase(lower, "per "+target) ||
			containsWordPhrase(lower, "across "+target) {
			params.Facets = appendUnique(params.Facets, field)
		}
	}
}

// guessOrganismName pulls the most likely organism reference out of the
// question: the longest run of capitalized tokens that are not
// stopwords or place names, or failing that a lowercase binomial.
func guessOrganismName(query string) string {
	tokens := tokenPattern.FindAllString(query, -1)

	var best []string
	var run []string
	flush := func() {
		if len(run) > len(best) {
			best = run
		}
		run = nil
	}
	for i, tok := range tokens {
		lower := strings.ToLower(tok)
		capitalized := tok[0] >= 'A' && tok[0] <= 'Z'
		if !capitalized || queryStopwords[lower] || isStateToken(lower) {
			// A lowercase epithet right after a capitalized genus keeps
			// the binomial together ("Macropus rufus"). Stopwords are
			// never epithets.
			if len(run) == 1 && !capitalized && i > 0 &&
				!queryStopwords[lower] &&
				resolve.IsBinomial(run[0]+" "+tok) {
				run = append(run, tok)
				flush()
				continue
			}
			flush()
			continue
		}
		// Sentence-initial capitals are ambiguous; skip the first token
		// unless it is part of a longer capitalized run.
		if i == 0 && (len(tokens) == 1 || !startsUpper(tokens[1])) {
			continue
		}
		run = append(run, tok)
	}
	flush()

	if len(best) > 0 {
		return strings.Join(best, " ")
	}

	// Last resort: a lowercase binomial written without capitals. Short
	// tokens and place names are too ambiguous to count.
	for i := 0; i+1 < len(tokens); i++ {
		genus, epithet := strings.ToLower(tokens[i]), strings.ToLower(tokens[i+1])
		if len(genus) < 3 || len(epithet) < 3 ||
			queryStopwords[genus] || queryStopwords[epithet] ||
			isStateToken(genus) || isStateToken(epithet) {
			continue
		}
		candidate := strings.ToUpper(genus[:1]) + genus[1:] + " " + epithet
		if resolve.IsBinomial(candidate) {
			return candidate
		}
	}
	return ""
}

// firstIdentifierToken returns the first token that is already a stable
// taxon identifier, if any.
func firstIdentifierToken(query string) string {
	for _, tok := range strings.Fields(query) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if resolve.IsStableIdentifier(tok) {
			return tok
		}
	}
	return ""
}

func isStateToken(lower string) bool {
	for ref := range australianStates {
		for _, word := range strings.Fields(ref) {
			if word == lower {
				return true
			}
		}
	}
	return false
}

func containsWordPhrase(haystack, phrase string) bool {
	idx := strings.Index(haystack, phrase)
	for idx >= 0 {
		beforeOK := idx == 0 || !isLetter(haystack[idx-1])
		end := idx + len(phrase)
		afterOK := end == len(haystack) || !isLetter(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(haystack[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
