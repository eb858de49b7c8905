package ports

import (
	"context"

	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
)

// FeedService is the gateway's core read path: cached single-domain
// summaries and the composite dashboard snapshot.
type FeedService interface {
	// GetSummary returns the summary for id in the given domain,
	// applying the freshness policy: fresh cache hit without touching
	// the adapter, live fetch on miss, stale fallback when the adapter
	// fails and an expired entry is still retained.
	GetSummary(ctx context.Context, domain, id string) (feed.Result[*feed.Summary], error)
	// GetDashboard assembles one snapshot from all configured domains
	// concurrently. Individual adapter failures are recorded in the
	// snapshot, not propagated; the call errors only when every
	// adapter fails and no cached snapshot is retained.
	GetDashboard(ctx context.Context) (feed.Result[*feed.Snapshot], error)
	// Domains lists the configured adapter domains.
	Domains() []string
	// InvalidateKey removes a single cache entry. Administrative.
	InvalidateKey(ctx context.Context, key string) error
}
