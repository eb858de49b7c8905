// Package statsapi implements ports.SummaryAdapter over a JSON stats
// API upstream (MLB Stats API shaped). One Adapter instance serves one
// sport domain.
package statsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
)

// defaultConfidence is attached when the upstream payload does not
// carry its own score.
const defaultConfidence = 0.95

type Adapter struct {
	name    string
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// New builds an adapter for one domain. The http.Client timeout is the
// hard upper bound per call; callers usually pass a tighter ctx
// deadline as well.
func New(name, baseURL string, timeout time.Duration, logger *logrus.Logger) *Adapter {
	return &Adapter{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (a *Adapter) Name() string { return a.name }

// FetchSummary retrieves the team summary for id from the upstream.
// A 404 maps to feed.ErrNotFound so the gateway can answer 404 rather
// than 503.
func (a *Adapter) FetchSummary(ctx context.Context, id string) (*feed.Summary, error) {
	url := fmt.Sprintf("%s/%s/teams/%s/summary", a.baseURL, a.name, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", a.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s upstream: %w", a.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s team %s: %w", a.name, id, feed.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s upstream returned status %d", a.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", a.name, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s upstream returned invalid JSON", a.name)
	}

	summary := &feed.Summary{
		Data:        body,
		SourceName:  a.name,
		LastUpdated: time.Now().UTC(),
		Confidence:  defaultConfidence,
	}
	// Upstreams that score their own data win over the default.
	var scored struct {
		Confidence  *float64   `json:"confidence"`
		LastUpdated *time.Time `json:"lastUpdated"`
	}
	if err := json.Unmarshal(body, &scored); err == nil {
		if scored.Confidence != nil && *scored.Confidence >= 0 && *scored.Confidence <= 1 {
			summary.Confidence = *scored.Confidence
		}
		if scored.LastUpdated != nil {
			summary.LastUpdated = scored.LastUpdated.UTC()
		}
	}

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{"domain": a.name, "id": id, "bytes": len(body)}).Debug("fetched upstream summary")
	}
	return summary, nil
}
