package ports

import (
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
)

// Outcome is the cache path taken by one request.
type Outcome string

const (
	OutcomeHit    Outcome = "hit"
	OutcomeMiss   Outcome = "miss"
	OutcomeBypass Outcome = "bypass"
)

// Event is the per-request trace sent to the observability sink.
type Event struct {
	Operation string
	Resource  resource.Type
	Outcome   Outcome
	// Shared is set when a miss joined another requester's in-flight fetch.
	Shared   bool
	Latency  time.Duration
	Failure  string
	Degraded bool
}

// EventSink receives request events. Emit must never block the request path.
type EventSink interface {
	Emit(ev Event)
}
