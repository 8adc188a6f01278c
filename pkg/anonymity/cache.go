package anonymity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/malbeclabs/pathscope/internal/metrics"
)

const exitListKey = "tor_exits"

type ExitListCacheConfig struct {
	Logger  *slog.Logger
	Fetcher ExitListFetcher

	// TTL of a fetched list. Zero keeps it for the life of the cache.
	TTL time.Duration
}

func (c *ExitListCacheConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Fetcher == nil {
		return errors.New("fetcher is required")
	}
	if c.TTL < 0 {
		return errors.New("ttl must not be negative")
	}
	return nil
}

// ExitListCache holds the Tor exit list. The first lookup fetches it; a
// failed fetch stores an empty set, which is reused like any other until it
// expires or Invalidate is called. At most one fetch runs at a time.
type ExitListCache struct {
	log *slog.Logger
	cfg *ExitListCacheConfig

	mu    sync.Mutex
	cache *ttlcache.Cache[string, ExitSet]
}

func NewExitListCache(cfg *ExitListCacheConfig) (*ExitListCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = ttlcache.NoTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, ExitSet](ttl),
		ttlcache.WithDisableTouchOnHit[string, ExitSet](),
	)
	return &ExitListCache{log: cfg.Logger, cfg: cfg, cache: cache}, nil
}

// Exits returns the cached exit set, fetching it if absent.
func (c *ExitListCache) Exits(ctx context.Context) ExitSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item := c.cache.Get(exitListKey); item != nil {
		return item.Value()
	}

	set, err := c.cfg.Fetcher.FetchExitList(ctx)
	if err != nil {
		c.log.Warn("anonymity: failed to fetch tor exit list, tor detection disabled", "error", err)
		metrics.LookupsTotal.WithLabelValues("tor_exit_list", "error").Inc()
		set = ExitSet{}
	} else {
		metrics.LookupsTotal.WithLabelValues("tor_exit_list", "ok").Inc()
	}
	if set == nil {
		set = ExitSet{}
	}
	metrics.TorExitListSize.Set(float64(len(set)))
	c.log.Debug("anonymity: tor exit list cached", "size", len(set))

	c.cache.Set(exitListKey, set, ttlcache.DefaultTTL)
	return set
}

func (c *ExitListCache) Contains(ctx context.Context, ip string) bool {
	if ip == "" {
		return false
	}
	return c.Exits(ctx).Contains(ip)
}

// Invalidate drops the cached list so the next lookup fetches again.
func (c *ExitListCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.DeleteAll()
}
