// Package gateway owns all request building and transport against the
// Atlas of Living Australia data services. Nothing outside this package
// constructs request URLs.
package gateway

import (
	"errors"
	"fmt"

	"github.com/taxonaut/taxonaut/core"
)

// UpstreamError wraps a transport or service failure. It matches
// core.ErrUpstream under errors.Is so callers can classify it without
// importing this package's internals.
type UpstreamError struct {
	Op         string
	URL        string
	StatusCode int
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s returned HTTP %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Cause)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

func (e *UpstreamError) Is(target error) bool { return target == core.ErrUpstream }

// notFound wraps core.ErrNotFound with the operation that missed.
func notFound(op, subject string) error {
	return fmt.Errorf("%s: %q: %w", op, subject, core.ErrNotFound)
}

// IsNotFound reports whether err means "the service had no match".
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
