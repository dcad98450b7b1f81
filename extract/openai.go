package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taxonaut/taxonaut/core"
)

// extractionPrompt instructs the model to emit only the JSON document
// the decision core consumes. Unknown species stay verbatim in
// search_term; the resolver decides what they are.
const extractionPrompt = `You extract structured search parameters from biodiversity research questions.
Respond with a single JSON object and nothing else, using these fields (omit fields that do not apply):
  "search_term": the organism name or taxon identifier mentioned, verbatim
  "filters": array of field:value filter clauses, e.g. ["stateProvince:Queensland"]
  "facets": array of field names to group counts by, e.g. ["stateProvince"]
  "year": a single year mentioned, e.g. "2020"
  "start_date": ISO date lower bound, e.g. "2019-01-01"
  "end_date": ISO date upper bound, e.g. "2020-12-31"
  "record_uuid": an occurrence record UUID if one is mentioned
  "has_images": true if the question asks for photos or images
  "clarification_needed": true if the question cannot be acted on
  "clarification_reason": a short question to ask the user back
Do not invent a species that is not in the question. Do not resolve or correct names.`

// OpenAIExtractor calls a chat-completions endpoint for structured
// parameter extraction. Any failure, from transport to malformed JSON,
// degrades to the deterministic keyword extractor so a dead endpoint
// never blocks research.
type OpenAIExtractor struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	fallback   *KeywordExtractor
	logger     core.Logger
}

// NewOpenAIExtractor creates an extractor against an OpenAI-compatible
// endpoint. The endpoint is the base URL without the /chat/completions
// suffix.
func NewOpenAIExtractor(cfg *core.Config) *OpenAIExtractor {
	endpoint := strings.TrimRight(cfg.ExtractorEndpoint, "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	model := cfg.ExtractorModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIExtractor{
		endpoint: endpoint,
		model:    model,
		apiKey:   cfg.ExtractorAPIKey,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		fallback: NewKeywordExtractor(),
		logger:   &core.NoOpLogger{},
	}
}

// SetLogger sets the logger provider
func (e *OpenAIExtractor) SetLogger(logger core.Logger) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	e.logger = logger
	e.fallback.SetLogger(logger)
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract implements core.Extractor.
func (e *OpenAIExtractor) Extract(ctx context.Context, query string) (*core.ResolvedParams, error) {
	params, err := e.extractRemote(ctx, query)
	if err != nil {
		e.logger.Warn("Structured extraction failed, using keyword fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return e.fallback.Extract(ctx, query)
	}
	params.Query = query
	return params, nil
}

func (e *OpenAIExtractor) extractRemote(ctx context.Context, query string) (*core.ResolvedParams, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("%w: extractor API key", core.ErrMissingConfiguration)
	}

	payload, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: query},
		},
		Temperature:    0,
		ResponseFormat: &formatSpec{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extractor endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("extractor returned no choices")
	}

	content := stripCodeFence(chat.Choices[0].Message.Content)
	var params core.ResolvedParams
	if err := json.Unmarshal([]byte(content), &params); err != nil {
		return nil, fmt.Errorf("extractor returned malformed JSON: %w", err)
	}

	e.logger.Debug("Structured extraction complete", map[string]interface{}{
		"model":       e.model,
		"duration_ms": time.Since(start).Milliseconds(),
		"search_term": params.SearchTerm,
	})
	return &params, nil
}

// stripCodeFence removes a ```json fence some models wrap output in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
