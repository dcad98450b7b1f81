package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taxonaut/taxonaut/core"
)

// FailureReason classifies a resolution failure.
type FailureReason string

const (
	ReasonNotFound FailureReason = "not_found"
	ReasonUpstream FailureReason = "upstream_error"
)

// Endpoint names used in ResolutionFailure.Tried.
const (
	EndpointScientific = "scientific"
	EndpointVernacular = "vernacular"
)

// ResolutionFailure is returned when a name cannot be resolved.
// ReasonNotFound means both endpoints had no match and is non-fatal to
// planning; ReasonUpstream means a transport or parse error and is never
// cached, so a transient fault cannot poison future lookups.
type ResolutionFailure struct {
	Name   string
	Reason FailureReason
	Tried  []string
	Cause  error
}

func (f *ResolutionFailure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("resolve %q: %s: %v", f.Name, f.Reason, f.Cause)
	}
	return fmt.Sprintf("resolve %q: %s (tried: %s)", f.Name, f.Reason, strings.Join(f.Tried, ", "))
}

func (f *ResolutionFailure) Unwrap() error {
	return f.Cause
}

// Resolver maps organism references to canonical identities. It consults
// the injected IdentityCache before making external calls and chooses
// between the scientific and vernacular lookup endpoints with a
// configurable predicate.
//
// A Resolver is intended to be long-lived and shared across sessions;
// the cache carries the only mutable state.
type Resolver struct {
	gateway core.Gateway
	cache   *IdentityCache
	logger  core.Logger
	tracer  trace.Tracer

	// looksVernacular decides which endpoint to try first. Defaults to
	// LooksVernacular; injectable because the capitalization rule is a
	// documented judgment call, not a fixed contract.
	looksVernacular func(string) bool
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithVernacularPredicate replaces the endpoint-selection predicate.
func WithVernacularPredicate(pred func(string) bool) ResolverOption {
	return func(r *Resolver) {
		if pred != nil {
			r.looksVernacular = pred
		}
	}
}

// NewResolver creates a resolver backed by the given gateway and cache.
func NewResolver(gateway core.Gateway, cache *IdentityCache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		gateway:         gateway,
		cache:           cache,
		logger:          &core.NoOpLogger{},
		tracer:          otel.Tracer("taxonaut/resolve"),
		looksVernacular: LooksVernacular,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger sets the logger provider
func (r *Resolver) SetLogger(logger core.Logger) {
	if logger == nil {
		r.logger = &core.NoOpLogger{}
	} else {
		r.logger = logger
	}
}

// Resolve maps a free-text organism reference to an IdentityRecord.
//
// Resolution order:
//  1. Identifier short-circuit: canonical identifiers return immediately
//     with only StableID and InputName populated, no external call.
//  2. Cache check under the normalized key.
//  3. Endpoint heuristic: vernacular-looking input tries the vernacular
//     endpoint first, anything else tries scientific first; one fallback
//     to the other endpoint on no-match.
//
// Exactly one cache write happens per successful resolution. Upstream
// errors are returned as *ResolutionFailure and never cached.
func (r *Resolver) Resolve(ctx context.Context, name string) (*core.IdentityRecord, error) {
	ctx, span := r.tracer.Start(ctx, "resolve.Resolve")
	defer span.End()

	name = strings.TrimSpace(name)
	span.SetAttributes(attribute.String("resolve.input", name))

	if name == "" {
		return nil, &ResolutionFailure{Name: name, Reason: ReasonNotFound}
	}

	if IsStableIdentifier(name) {
		span.SetAttributes(attribute.Bool("resolve.identifier_shortcut", true))
		r.logger.Debug("Input is already a stable identifier", map[string]interface{}{
			"operation": "resolve",
			"input":     name,
		})
		return &core.IdentityRecord{InputName: name, StableID: name}, nil
	}

	if record, ok := r.cache.Get(name); ok {
		span.SetAttributes(attribute.Bool("resolve.cache_hit", true))
		r.logger.Debug("Identity cache hit", map[string]interface{}{
			"operation":       "resolve",
			"input":           name,
			"scientific_name": record.ScientificName,
		})
		return record, nil
	}

	first, second := EndpointScientific, EndpointVernacular
	if r.looksVernacular(name) {
		first, second = EndpointVernacular, EndpointScientific
	}
	span.SetAttributes(attribute.String("resolve.first_endpoint", first))

	tried := make([]string, 0, 2)
	for _, endpoint := range []string{first, second} {
		tried = append(tried, endpoint)

		candidate, err := r.lookup(ctx, endpoint, name)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			// Transient upstream failure: report, do not cache, and do
			// not burn the fallback attempt on a broken connection.
			r.logger.Warn("Name lookup failed upstream", map[string]interface{}{
				"operation": "resolve",
				"input":     name,
				"endpoint":  endpoint,
				"error":     err.Error(),
			})
			span.RecordError(err)
			return nil, &ResolutionFailure{Name: name, Reason: ReasonUpstream, Tried: tried, Cause: err}
		}

		record := &core.IdentityRecord{
			InputName:      name,
			ScientificName: candidate.ScientificName,
			StableID:       candidate.StableID,
			Rank:           candidate.Rank,
			VernacularName: candidate.VernacularName,
		}
		r.cache.Put(name, record)

		r.logger.Info("Name resolved", map[string]interface{}{
			"operation":       "resolve",
			"input":           name,
			"endpoint":        endpoint,
			"scientific_name": record.ScientificName,
			"stable_id":       record.StableID,
			"rank":            record.Rank,
		})
		return record, nil
	}

	r.logger.Info("Name not found on any endpoint", map[string]interface{}{
		"operation": "resolve",
		"input":     name,
		"tried":     strings.Join(tried, ","),
	})
	return nil, &ResolutionFailure{Name: name, Reason: ReasonNotFound, Tried: tried}
}

func (r *Resolver) lookup(ctx context.Context, endpoint, name string) (*core.IdentityCandidate, error) {
	switch endpoint {
	case EndpointVernacular:
		return r.gateway.LookupVernacular(ctx, name)
	default:
		return r.gateway.LookupScientific(ctx, name)
	}
}
