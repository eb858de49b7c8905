package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/blazeintel/edge-gateway/internal/application/services"
	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
	customMiddleware "github.com/blazeintel/edge-gateway/internal/infrastructure/httpserver/middleware"
)

// responseMeta is the non-negotiable envelope attached to every
// successful response; consumers use cached/stale to decide whether to
// show a "data may be delayed" indicator.
type responseMeta struct {
	Cached     bool      `json:"cached"`
	Stale      bool      `json:"stale"`
	AsOf       time.Time `json:"asOf"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
}

type apiResponse struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Meta    *responseMeta    `json:"meta"`
	Errors  []feed.SlotError `json:"errors,omitempty"`
}

// getSummary handles GET /api/v1/:domain/:id.
func (s *Server) getSummary(c echo.Context) error {
	domain := c.Param("domain")
	id := c.Param("id")

	result, err := s.feedService.GetSummary(c.Request().Context(), domain, id)
	if err != nil {
		return s.mapFeedError(err, domain)
	}

	c.Set(customMiddleware.FeedOriginContextKey, result.Origin)
	c.Set(customMiddleware.FeedDomainContextKey, domain)
	sum := result.Payload
	return c.JSON(http.StatusOK, apiResponse{
		Success: true,
		Data:    sum.Data,
		Meta: &responseMeta{
			Cached:     result.FromCache(),
			Stale:      result.Stale(),
			AsOf:       result.StoredAt.UTC(),
			Source:     sum.SourceName,
			Confidence: sum.Confidence,
		},
	})
}

// getDashboard handles GET /api/v1/dashboard/summary. A snapshot with
// failed slots is still a success; the failures ride along in errors.
func (s *Server) getDashboard(c echo.Context) error {
	result, err := s.feedService.GetDashboard(c.Request().Context())
	if err != nil {
		return s.mapFeedError(err, "dashboard")
	}

	c.Set(customMiddleware.FeedOriginContextKey, result.Origin)
	c.Set(customMiddleware.FeedDomainContextKey, "dashboard")
	snap := result.Payload
	data, err := json.Marshal(snap.Slots)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{
		Success: true,
		Data:    data,
		Meta: &responseMeta{
			Cached:     result.FromCache(),
			Stale:      result.Stale(),
			AsOf:       result.StoredAt.UTC(),
			Source:     "dashboard",
			Confidence: snapshotConfidence(snap),
		},
		Errors: snap.Errors,
	})
}

// snapshotConfidence is the most conservative slot score.
func snapshotConfidence(snap *feed.Snapshot) float64 {
	min := 1.0
	for _, sum := range snap.Slots {
		if sum.Confidence < min {
			min = sum.Confidence
		}
	}
	return min
}

// invalidateCacheKey handles DELETE /api/v1/admin/cache/:key.
func (s *Server) invalidateCacheKey(c echo.Context) error {
	key := c.Param("key")
	if err := s.feedService.InvalidateKey(c.Request().Context(), key); err != nil {
		s.logger.WithError(err).WithField("key", key).Error("cache invalidation failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cache backend unavailable")
	}
	return c.NoContent(http.StatusNoContent)
}

// requireAdminKey guards administrative routes with a shared key.
func (s *Server) requireAdminKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.config.AdminAPIKey == "" {
			return echo.NewHTTPError(http.StatusNotFound, "admin API disabled")
		}
		given := c.Request().Header.Get("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(given), []byte(s.config.AdminAPIKey)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin key")
		}
		return next(c)
	}
}

// mapFeedError translates feed-layer errors into the HTTP taxonomy:
// unknown domain or resource → 404, everything else → 503 naming the
// failed domain but never its internals.
func (s *Server) mapFeedError(err error, domain string) error {
	switch {
	case errors.Is(err, services.ErrUnknownDomain):
		return echo.NewHTTPError(http.StatusNotFound, "unknown domain: "+domain)
	case errors.Is(err, feed.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "resource not found in domain "+domain)
	default:
		s.logger.WithError(err).WithField("domain", domain).Error("upstream fetch failed with no cache fallback")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "upstream data source unavailable for "+domain)
	}
}
