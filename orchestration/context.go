package orchestration

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/taxonaut/taxonaut/core"
)

// Tool is the uniform calling contract every capability implementation
// conforms to. Invoke must return an outcome rather than panic; the
// executor contains panics anyway, but tools should treat failures as
// values.
type Tool interface {
	// Name must match a capability registered in the Registry.
	Name() string

	// Invoke runs the tool with the session's context and returns
	// exactly one outcome.
	Invoke(ctx context.Context, tc *ToolContext) core.ToolOutcome
}

// ToolContext carries everything a tool needs for one invocation: the
// resolved parameters, the identity (if any), the gateway handle for
// I/O, and the artifact sink for produced data. Tools never construct
// request URLs; all I/O goes through the Gateway.
type ToolContext struct {
	Params    *core.ResolvedParams
	Identity  *core.IdentityRecord
	Gateway   core.Gateway
	Artifacts *ArtifactStore
	Logger    core.Logger
}

// Term returns the best search term available: the resolved scientific
// name when an identity exists, the raw search term otherwise.
func (tc *ToolContext) Term() string {
	if tc.Identity != nil && tc.Identity.ScientificName != "" {
		return tc.Identity.ScientificName
	}
	if tc.Identity != nil && tc.Identity.StableID != "" {
		return tc.Identity.StableID
	}
	if tc.Params != nil {
		return tc.Params.SearchTerm
	}
	return ""
}

// Artifact is a piece of produced data referenced from tool outcomes.
type Artifact struct {
	Ref         string `json:"ref"`
	Description string `json:"description"`
	MediaType   string `json:"media_type"`
	Data        []byte `json:"data,omitempty"`
}

// ArtifactStore collects artifacts produced during one execution and
// hands out opaque references to them. Safe for concurrent use.
type ArtifactStore struct {
	mu        sync.Mutex
	artifacts []Artifact
}

// NewArtifactStore creates an empty artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{}
}

// Add stores an artifact and returns its opaque reference.
func (s *ArtifactStore) Add(description, mediaType string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := uuid.NewString()
	s.artifacts = append(s.artifacts, Artifact{
		Ref:         ref,
		Description: description,
		MediaType:   mediaType,
		Data:        data,
	})
	return ref
}

// Get returns the artifact stored under ref.
func (s *ArtifactStore) Get(ref string) (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.artifacts {
		if a.Ref == ref {
			return a, true
		}
	}
	return Artifact{}, false
}

// List returns all stored artifacts in production order.
func (s *ArtifactStore) List() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}
