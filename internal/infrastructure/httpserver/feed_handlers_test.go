package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/blazeintel/edge-gateway/internal/application/services"
	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
	"github.com/blazeintel/edge-gateway/internal/infrastructure/httpserver"
)

type feedServiceMock struct {
	getSummaryFn    func(ctx context.Context, domain, id string) (feed.Result[*feed.Summary], error)
	getDashboardFn  func(ctx context.Context) (feed.Result[*feed.Snapshot], error)
	invalidateKeyFn func(ctx context.Context, key string) error
}

func (m *feedServiceMock) GetSummary(ctx context.Context, domain, id string) (feed.Result[*feed.Summary], error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(ctx, domain, id)
	}
	return feed.Result[*feed.Summary]{
		Payload: &feed.Summary{
			Data:        json.RawMessage(`{"team":"test"}`),
			SourceName:  domain,
			LastUpdated: time.Now().UTC(),
			Confidence:  0.9,
		},
		Origin:   feed.OriginLive,
		StoredAt: time.Now().UTC(),
	}, nil
}

func (m *feedServiceMock) GetDashboard(ctx context.Context) (feed.Result[*feed.Snapshot], error) {
	if m.getDashboardFn != nil {
		return m.getDashboardFn(ctx)
	}
	return feed.Result[*feed.Snapshot]{
		Payload:  &feed.Snapshot{Slots: map[string]*feed.Summary{}},
		Origin:   feed.OriginLive,
		StoredAt: time.Now().UTC(),
	}, nil
}

func (m *feedServiceMock) Domains() []string { return []string{"mlb"} }

func (m *feedServiceMock) InvalidateKey(ctx context.Context, key string) error {
	if m.invalidateKeyFn != nil {
		return m.invalidateKeyFn(ctx, key)
	}
	return nil
}

type rateLimiterMock struct {
	allowFn func(ctx context.Context, clientKey string) (bool, int, int, time.Time, error)
}

func (m *rateLimiterMock) Allow(ctx context.Context, clientKey string) (bool, int, int, time.Time, error) {
	if m.allowFn != nil {
		return m.allowFn(ctx, clientKey)
	}
	return true, 99, 100, time.Now().Add(time.Minute), nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestServer(feedSvc *feedServiceMock, limiter *rateLimiterMock, adminKey string) *httpserver.Server {
	return httpserver.NewServer(&httpserver.ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		AllowedOrigins: []string{"https://blaze-intelligence.com"},
		AdminAPIKey:    adminKey,
	}, quietLogger(), httpserver.ServerDeps{
		FeedService:        feedSvc,
		RateLimiterService: limiter,
	})
}

func doRequest(s *httpserver.Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestGetSummary_Envelope(t *testing.T) {
	s := newTestServer(&feedServiceMock{}, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodGet, "/api/v1/mlb/138", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Meta    struct {
			Cached     bool      `json:"cached"`
			Stale      bool      `json:"stale"`
			AsOf       time.Time `json:"asOf"`
			Source     string    `json:"source"`
			Confidence float64   `json:"confidence"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.JSONEq(t, `{"team":"test"}`, string(body.Data))
	require.False(t, body.Meta.Cached)
	require.False(t, body.Meta.Stale)
	require.Equal(t, "mlb", body.Meta.Source)
	require.InDelta(t, 0.9, body.Meta.Confidence, 1e-9)
	require.False(t, body.Meta.AsOf.IsZero())
}

func TestGetSummary_StaleMeta(t *testing.T) {
	storedAt := time.Now().Add(-time.Hour).UTC()
	feedSvc := &feedServiceMock{getSummaryFn: func(_ context.Context, domain, _ string) (feed.Result[*feed.Summary], error) {
		return feed.Result[*feed.Summary]{
			Payload:  &feed.Summary{Data: json.RawMessage(`{}`), SourceName: domain, Confidence: 0.8},
			Origin:   feed.OriginStale,
			StoredAt: storedAt,
		}, nil
	}}
	s := newTestServer(feedSvc, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodGet, "/api/v1/mlb/138", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	var meta struct {
		Cached bool      `json:"cached"`
		Stale  bool      `json:"stale"`
		AsOf   time.Time `json:"asOf"`
	}
	require.NoError(t, json.Unmarshal(body["meta"], &meta))
	require.True(t, meta.Cached)
	require.True(t, meta.Stale)
	require.True(t, meta.AsOf.Equal(storedAt))
}

func TestGetSummary_UnknownDomainProblem(t *testing.T) {
	feedSvc := &feedServiceMock{getSummaryFn: func(_ context.Context, domain, _ string) (feed.Result[*feed.Summary], error) {
		return feed.Result[*feed.Summary]{}, fmt.Errorf("%w: %s", services.ErrUnknownDomain, domain)
	}}
	s := newTestServer(feedSvc, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodGet, "/api/v1/curling/1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Type     string `json:"type"`
			Title    string `json:"title"`
			Status   int    `json:"status"`
			Detail   string `json:"detail"`
			Instance string `json:"instance"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, http.StatusNotFound, body.Error.Status)
	require.Equal(t, "Not Found", body.Error.Title)
	require.Contains(t, body.Error.Detail, "curling")
	require.NotEmpty(t, body.Error.Instance)
}

func TestGetSummary_UpstreamFailureIs503(t *testing.T) {
	feedSvc := &feedServiceMock{getSummaryFn: func(context.Context, string, string) (feed.Result[*feed.Summary], error) {
		return feed.Result[*feed.Summary]{}, errors.New("connection refused to 10.0.0.1:443")
	}}
	s := newTestServer(feedSvc, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodGet, "/api/v1/mlb/138", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	// The failing domain is named, internals are not leaked.
	require.Contains(t, rec.Body.String(), "mlb")
	require.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestGetDashboard_RoutesBeforeDomainParam(t *testing.T) {
	feedSvc := &feedServiceMock{getDashboardFn: func(context.Context) (feed.Result[*feed.Snapshot], error) {
		return feed.Result[*feed.Snapshot]{
			Payload: &feed.Snapshot{
				Slots: map[string]*feed.Summary{
					"mlb": {Data: json.RawMessage(`{"team":"a"}`), SourceName: "mlb", Confidence: 0.9},
					"nba": {Data: json.RawMessage(`{"team":"b"}`), SourceName: "nba", Confidence: 0.7},
				},
				Errors: []feed.SlotError{{Domain: "nfl", Error: "nfl feed offline"}},
			},
			Origin:   feed.OriginLive,
			StoredAt: time.Now().UTC(),
		}, nil
	}}
	s := newTestServer(feedSvc, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodGet, "/api/v1/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                       `json:"success"`
		Data    map[string]json.RawMessage `json:"data"`
		Meta    struct {
			Confidence float64 `json:"confidence"`
		} `json:"meta"`
		Errors []feed.SlotError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success, "partial failure is still a success")
	require.Len(t, body.Data, 2)
	require.Len(t, body.Errors, 1)
	require.Equal(t, "nfl", body.Errors[0].Domain)
	require.InDelta(t, 0.7, body.Meta.Confidence, 1e-9, "composite confidence is the weakest slot")
}

func TestUnmatchedPathIsProblem404(t *testing.T) {
	s := newTestServer(&feedServiceMock{}, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	require.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRateLimit_DeniedWith429AndRetryAfter(t *testing.T) {
	limiter := &rateLimiterMock{allowFn: func(context.Context, string) (bool, int, int, time.Time, error) {
		return false, 0, 100, time.Now().Add(30 * time.Second), nil
	}}
	s := newTestServer(&feedServiceMock{}, limiter, "")

	rec := doRequest(s, http.MethodGet, "/api/v1/mlb/138", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	limiter := &rateLimiterMock{allowFn: func(context.Context, string) (bool, int, int, time.Time, error) {
		return true, 0, 100, time.Now(), errors.New("store down")
	}}
	s := newTestServer(&feedServiceMock{}, limiter, "")

	rec := doRequest(s, http.MethodGet, "/api/v1/mlb/138", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_HealthExempt(t *testing.T) {
	limiter := &rateLimiterMock{allowFn: func(context.Context, string) (bool, int, int, time.Time, error) {
		return false, 0, 100, time.Now().Add(time.Minute), nil
	}}
	s := newTestServer(&feedServiceMock{}, limiter, "")

	rec := doRequest(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCacheDelete(t *testing.T) {
	var deleted string
	feedSvc := &feedServiceMock{invalidateKeyFn: func(_ context.Context, key string) error {
		deleted = key
		return nil
	}}
	s := newTestServer(feedSvc, &rateLimiterMock{}, "secret")

	rec := doRequest(s, http.MethodDelete, "/api/v1/admin/cache/summary:mlb:138", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/v1/admin/cache/summary:mlb:138", http.Header{"X-Admin-Key": {"secret"}})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "summary:mlb:138", deleted)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s := newTestServer(&feedServiceMock{}, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodDelete, "/api/v1/admin/cache/k", http.Header{"X-Admin-Key": {"anything"}})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS_AllowlistedOriginOnly(t *testing.T) {
	s := newTestServer(&feedServiceMock{}, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodGet, "/api/v1/mlb/138", http.Header{"Origin": {"https://blaze-intelligence.com"}})
	require.Equal(t, "https://blaze-intelligence.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = doRequest(s, http.MethodGet, "/api/v1/mlb/138", http.Header{"Origin": {"https://evil.example"}})
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&feedServiceMock{}, &rateLimiterMock{}, "")

	rec := doRequest(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"healthy"`)
}
