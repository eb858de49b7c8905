package feed

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned (possibly wrapped) by adapters when the
// upstream does not know the requested resource id.
var ErrNotFound = errors.New("resource not found")

// Summary is the unit of data produced by a sport adapter: an opaque
// payload plus the metadata the gateway must propagate to clients.
type Summary struct {
	Data        json.RawMessage `json:"data"`
	SourceName  string          `json:"sourceName"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Confidence  float64         `json:"confidence"`
}

// SlotError describes a single failed adapter inside a composite
// snapshot. The failing domain is always named so a dashboard can label
// the missing widget.
type SlotError struct {
	Domain string `json:"domain"`
	Error  string `json:"error"`
}

// Snapshot is the composite dashboard payload: one slot per configured
// domain, plus the failures that occurred while assembling it. A
// snapshot with at least one populated slot is still considered a
// success.
type Snapshot struct {
	Slots  map[string]*Summary `json:"slots"`
	Errors []SlotError         `json:"errors,omitempty"`
}

// Origin says where the payload of a fetch result came from. Callers
// must switch on it rather than inspect booleans.
type Origin int

const (
	// OriginLive means the adapter was invoked and succeeded.
	OriginLive Origin = iota
	// OriginCache means a fresh cache entry was served without
	// invoking the adapter.
	OriginCache
	// OriginStale means the adapter failed and an expired cache entry
	// was served instead.
	OriginStale
)

func (o Origin) String() string {
	switch o {
	case OriginLive:
		return "live"
	case OriginCache:
		return "cache"
	case OriginStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Result pairs a payload with its origin.
type Result[T any] struct {
	Payload T
	Origin  Origin
	// StoredAt is when the payload was written to the cache; equals
	// the fetch time for OriginLive.
	StoredAt time.Time
}

// FromCache reports whether the payload was served from the cache at
// all, fresh or stale.
func (r Result[T]) FromCache() bool { return r.Origin != OriginLive }

// Stale reports whether the payload is known to be past its freshness
// window.
func (r Result[T]) Stale() bool { return r.Origin == OriginStale }

// Envelope is the stored form of a cache entry. StoredAt decides
// freshness at read time; the backing store only ever sees the longer
// stale-retention TTL so expired entries stay readable for fallback.
// Envelopes are never mutated: a rewrite stores a new envelope with a
// later StoredAt.
type Envelope struct {
	Payload  json.RawMessage `json:"payload"`
	StoredAt time.Time       `json:"storedAt"`
}

// Fresh reports whether the envelope is within its freshness window at
// the given instant.
func (e *Envelope) Fresh(now time.Time, freshTTL time.Duration) bool {
	return now.Sub(e.StoredAt) < freshTTL
}

// TTL carries the two durations attached to every cache entry: how
// long it is fresh, and how long after that it is retained for
// stale-if-error serving.
type TTL struct {
	Fresh time.Duration
	Stale time.Duration
}

// Retention is the total time an entry stays in the backing store.
func (t TTL) Retention() time.Duration { return t.Fresh + t.Stale }
