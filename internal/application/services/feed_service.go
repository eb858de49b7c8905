package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/blazeintel/edge-gateway/internal/core/domain/feed"
	"github.com/blazeintel/edge-gateway/internal/core/ports"
)

// ErrUnknownDomain is returned when a request names a sport no adapter
// is configured for.
var ErrUnknownDomain = errors.New("unknown domain")

// SummaryKey builds the cache key for a single-domain summary.
func SummaryKey(domain, id string) string { return "summary:" + domain + ":" + id }

// DashboardKey is the cache key for the composite snapshot. The whole
// aggregation is cached as one unit.
const DashboardKey = "dashboard:summary"

// FeedServiceConfig groups the tunables of the feed read path.
type FeedServiceConfig struct {
	// SummaryTTL applies to single-domain entries, DashboardTTL to the
	// composite snapshot. The dashboard window should be the shorter
	// one: it is more expensive to recompute but more likely to carry
	// an already-stale sub-source.
	SummaryTTL     feed.TTL
	DashboardTTL   feed.TTL
	AdapterTimeout time.Duration
	// Featured maps each domain to the resource id shown on the
	// dashboard.
	Featured map[string]string
}

// FeedService implements ports.FeedService: cache-first reads over the
// configured sport adapters, with stale-if-error fallback. Cache
// backend failures are logged and treated as misses; adapter failures
// are fatal only when no retained entry can cover for them.
type FeedService struct {
	adapters map[string]ports.SummaryAdapter
	order    []string
	cache    ports.Cache
	cfg      FeedServiceConfig
	logger   *logrus.Logger
	sf       singleflight.Group

	now func() time.Time
}

func NewFeedService(adapters []ports.SummaryAdapter, cache ports.Cache, cfg FeedServiceConfig, logger *logrus.Logger) *FeedService {
	byName := make(map[string]ports.SummaryAdapter, len(adapters))
	order := make([]string, 0, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
		order = append(order, a.Name())
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 8 * time.Second
	}
	return &FeedService{
		adapters: byName,
		order:    order,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Domains lists the configured adapter domains in wiring order.
func (s *FeedService) Domains() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// GetSummary serves the summary for id in domain through the freshness
// policy.
func (s *FeedService) GetSummary(ctx context.Context, domain, id string) (feed.Result[*feed.Summary], error) {
	adapter, ok := s.adapters[domain]
	if !ok {
		return feed.Result[*feed.Summary]{}, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	return fetchThrough(s, ctx, SummaryKey(domain, id), s.cfg.SummaryTTL, func(ctx context.Context) (*feed.Summary, error) {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
		defer cancel()
		return adapter.FetchSummary(cctx, id)
	})
}

// GetDashboard serves the composite snapshot through the freshness
// policy. The fetcher settles all adapters and only fails when every
// slot failed, so a fully dark upstream can still be covered by a
// retained snapshot.
func (s *FeedService) GetDashboard(ctx context.Context) (feed.Result[*feed.Snapshot], error) {
	return fetchThrough(s, ctx, DashboardKey, s.cfg.DashboardTTL, s.assembleSnapshot)
}

// InvalidateKey removes one cache entry. Unlike the silent writes on
// the read path, failures here are reported: the caller asked for the
// delete explicitly.
func (s *FeedService) InvalidateKey(ctx context.Context, key string) error {
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete cache key %q: %w", key, err)
	}
	return nil
}

// assembleSnapshot launches every configured adapter concurrently and
// waits for all of them to settle. One slow or failing sport must not
// take the dashboard down with it.
func (s *FeedService) assembleSnapshot(ctx context.Context) (*feed.Snapshot, error) {
	type slot struct {
		summary *feed.Summary
		err     error
	}
	slots := make([]slot, len(s.order))

	var wg sync.WaitGroup
	for i, domain := range s.order {
		wg.Add(1)
		go func(i int, domain string) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
			defer cancel()
			sum, err := s.adapters[domain].FetchSummary(cctx, s.featuredID(domain))
			slots[i] = slot{summary: sum, err: err}
		}(i, domain)
	}
	wg.Wait()

	snapshot := &feed.Snapshot{Slots: make(map[string]*feed.Summary, len(s.order))}
	failed := 0
	for i, domain := range s.order {
		if slots[i].err != nil {
			failed++
			snapshot.Errors = append(snapshot.Errors, feed.SlotError{Domain: domain, Error: slots[i].err.Error()})
			if s.logger != nil {
				s.logger.WithError(slots[i].err).WithField("domain", domain).Warn("dashboard slot failed")
			}
			continue
		}
		snapshot.Slots[domain] = slots[i].summary
	}
	if failed == len(s.order) && failed > 0 {
		return nil, fmt.Errorf("all %d dashboard adapters failed, first: %s", failed, snapshot.Errors[0].Error)
	}
	return snapshot, nil
}

func (s *FeedService) featuredID(domain string) string {
	if id, ok := s.cfg.Featured[domain]; ok {
		return id
	}
	return "featured"
}

// fetchThrough is the central freshness policy:
//
//  1. A retained entry still inside its fresh window is served without
//     invoking the fetcher.
//  2. Otherwise the fetcher runs (coalesced per key) and the result is
//     written back with the stale-retention TTL. Write failures are
//     logged, never fatal: caching is an optimization.
//  3. When the fetcher fails, a retained entry past its fresh window is
//     served as stale. Only with no retained entry does the fetcher's
//     error propagate.
func fetchThrough[T any](s *FeedService, ctx context.Context, key string, ttl feed.TTL, fetch func(ctx context.Context) (T, error)) (feed.Result[T], error) {
	now := s.now()
	if env := s.readEnvelope(ctx, key); env != nil && env.Fresh(now, ttl.Fresh) {
		if v, ok := decodePayload[T](s, key, env); ok {
			return feed.Result[T]{Payload: v, Origin: feed.OriginCache, StoredAt: env.StoredAt}, nil
		}
	}

	fetched, err, _ := s.sf.Do(key, func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.writeEnvelope(ctx, key, v, ttl)
		return v, nil
	})
	if err == nil {
		return feed.Result[T]{Payload: fetched.(T), Origin: feed.OriginLive, StoredAt: now}, nil
	}

	if env := s.readEnvelope(ctx, key); env != nil {
		if v, ok := decodePayload[T](s, key, env); ok {
			if s.logger != nil {
				s.logger.WithError(err).WithField("key", key).Warn("fetch failed, serving stale cache entry")
			}
			return feed.Result[T]{Payload: v, Origin: feed.OriginStale, StoredAt: env.StoredAt}, nil
		}
	}
	return feed.Result[T]{}, fmt.Errorf("fetch %q: %w", key, err)
}

// readEnvelope returns nil on miss and on backend error; the cache
// never fails a read path.
func (s *FeedService) readEnvelope(ctx context.Context, key string) *feed.Envelope {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("key", key).Error("cache get failed, treating as miss")
		}
		return nil
	}
	if !ok {
		return nil
	}
	var env feed.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("key", key).Error("corrupt cache envelope, treating as miss")
		}
		return nil
	}
	return &env
}

func (s *FeedService) writeEnvelope(ctx context.Context, key string, v any, ttl feed.TTL) {
	payload, err := json.Marshal(v)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("key", key).Error("cache envelope marshal failed")
		}
		return
	}
	env := feed.Envelope{Payload: payload, StoredAt: s.now()}
	b, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, ttl.Retention()); err != nil && s.logger != nil {
		s.logger.WithError(err).WithField("key", key).Error("cache set failed")
	}
}

func decodePayload[T any](s *FeedService, key string, env *feed.Envelope) (T, bool) {
	var v T
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("key", key).Error("corrupt cache payload, treating as miss")
		}
		return v, false
	}
	return v, true
}
