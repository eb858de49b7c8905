package ports

import (
	"context"

	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
)

// SummaryAdapter is the single contract every sport data source must
// satisfy. Implementations wrap an upstream API (or fixtures) and are
// expected to respect ctx cancellation and deadlines.
type SummaryAdapter interface {
	// Name identifies the adapter's domain (e.g. "mlb", "nfl").
	Name() string
	// FetchSummary retrieves the summary for a resource id. It returns
	// an error when the upstream is unreachable, times out, or does
	// not know the id.
	FetchSummary(ctx context.Context, id string) (*feed.Summary, error)
}
