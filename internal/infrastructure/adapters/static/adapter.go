// Package static implements ports.SummaryAdapter over bundled fixture
// data. It backs demo deployments and tests where no stats API is
// reachable.
package static

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
)

var fixtures = map[string]map[string]string{
	"mlb": {
		"138":      `{"team":"St. Louis Cardinals","record":{"wins":83,"losses":79},"runDifferential":12}`,
		"featured": `{"team":"St. Louis Cardinals","record":{"wins":83,"losses":79},"runDifferential":12}`,
	},
	"nfl": {
		"TEN":      `{"team":"Tennessee Titans","record":{"wins":6,"losses":11},"pointDifferential":-111}`,
		"featured": `{"team":"Tennessee Titans","record":{"wins":6,"losses":11},"pointDifferential":-111}`,
	},
	"nba": {
		"MEM":      `{"team":"Memphis Grizzlies","record":{"wins":27,"losses":55},"netRating":-5.2}`,
		"featured": `{"team":"Memphis Grizzlies","record":{"wins":27,"losses":55},"netRating":-5.2}`,
	},
	"cfb": {
		"TEX":      `{"team":"Texas Longhorns","record":{"wins":12,"losses":2},"ranking":3}`,
		"featured": `{"team":"Texas Longhorns","record":{"wins":12,"losses":2},"ranking":3}`,
	},
}

type Adapter struct {
	name string
}

func New(name string) *Adapter { return &Adapter{name: name} }

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) FetchSummary(_ context.Context, id string) (*feed.Summary, error) {
	byID, ok := fixtures[a.name]
	if !ok {
		return nil, fmt.Errorf("no fixtures for domain %s: %w", a.name, feed.ErrNotFound)
	}
	data, ok := byID[id]
	if !ok {
		return nil, fmt.Errorf("%s team %s: %w", a.name, id, feed.ErrNotFound)
	}
	return &feed.Summary{
		Data:        json.RawMessage(data),
		SourceName:  a.name + "-fixtures",
		LastUpdated: time.Now().UTC(),
		Confidence:  1.0,
	}, nil
}
