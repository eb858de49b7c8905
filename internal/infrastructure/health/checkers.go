package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/blazeintel/edge-gateway/internal/core/ports"
)

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client *redis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// upstreamHealthChecker probes the stats API base URL. Any HTTP
// response counts as reachable; only transport failures are unhealthy.
type upstreamHealthChecker struct {
	name    string
	baseURL string
	client  *http.Client
}

func (u *upstreamHealthChecker) Name() string { return u.name }

func (u *upstreamHealthChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// NewUpstreamHealthChecker creates a health checker for the stats API.
func NewUpstreamHealthChecker(name, baseURL string) ports.HealthChecker {
	return &upstreamHealthChecker{name: name, baseURL: baseURL, client: &http.Client{}}
}
