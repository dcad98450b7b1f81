package core

import "context"

// Logger interface - minimal logging interface
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// NoOpLogger discards all log output. Components fall back to it when no
// logger is injected so logging calls never need nil checks at call sites.
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

// Gateway performs all I/O against the external data service. It owns
// request building, parameter encoding and transport; the core never
// constructs request URLs itself.
//
// Lookup methods return ErrNotFound (possibly wrapped) when the service
// has no match, and any other error for transport or parse failures.
type Gateway interface {
	// LookupScientific matches a scientific name against the taxonomy.
	LookupScientific(ctx context.Context, name string) (*IdentityCandidate, error)

	// LookupVernacular matches a common (vernacular) name. Vernacular
	// names are ambiguous across taxa, so the best-ranked match wins.
	LookupVernacular(ctx context.Context, name string) (*IdentityCandidate, error)

	// Invoke runs the named data-service operation with the given query.
	Invoke(ctx context.Context, toolName string, query *GatewayQuery) (*GatewayResult, error)
}

// Extractor turns a free-text question into structured parameters.
// Implementations live outside the decision core (extract package);
// the resolver and planner only consume the result.
type Extractor interface {
	Extract(ctx context.Context, query string) (*ResolvedParams, error)
}
