package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/taxonaut/taxonaut/core"
)

// Breaker is a minimal circuit breaker guarding the data service.
// States: closed (normal), open (failing fast), half-open (probing).
// After failureThreshold consecutive failures the circuit opens for
// openTimeout; the first call after that interval probes the service
// and either closes the circuit or re-opens it.
type Breaker struct {
	mu               sync.Mutex
	failures         int
	failureThreshold int
	openTimeout      time.Duration
	openedAt         time.Time
	state            string
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and stays open for openTimeout.
func NewBreaker(threshold int, openTimeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	return &Breaker{
		failureThreshold: threshold,
		openTimeout:      openTimeout,
		state:            "closed",
	}
}

// Execute runs fn with circuit breaker protection. When the circuit is
// open it returns core.ErrCircuitOpen without calling fn.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if !b.allow() {
		return core.ErrCircuitOpen
	}

	err := fn()
	b.record(err == nil && ctx.Err() == nil)
	if err != nil {
		return err
	}
	return ctx.Err()
}

// State returns the current state: "closed", "open" or "half-open".
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == "open" && time.Since(b.openedAt) >= b.openTimeout {
		return "half-open"
	}
	return b.state
}

// Reset closes the circuit and clears the failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = "closed"
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != "open" {
		return true
	}
	if time.Since(b.openedAt) >= b.openTimeout {
		// Half-open: let one probe through.
		b.state = "half-open"
		return true
	}
	return false
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.failures = 0
		b.state = "closed"
		return
	}

	b.failures++
	if b.state == "half-open" || b.failures >= b.failureThreshold {
		b.state = "open"
		b.openedAt = time.Now()
	}
}
