package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/malbeclabs/pathscope/internal/metrics"
	"github.com/malbeclabs/pathscope/internal/netutil"
)

const (
	DefaultIPAPIURL      = "http://ip-api.com/json"
	DefaultIPAPITimeout  = 4 * time.Second
	DefaultIPAPICacheTTL = 10 * time.Minute
)

type IPAPIConfig struct {
	Logger     *slog.Logger
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPClient

	// CacheTTL bounds how long a per-address answer is reused, so that the
	// location and ASN of a hop cost one request.
	CacheTTL time.Duration
}

func (c *IPAPIConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultIPAPIURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout < 0 || c.CacheTTL < 0 {
		return errors.New("timeout and cache ttl must not be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultIPAPITimeout
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultIPAPICacheTTL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	return nil
}

// IPAPIClient locates traceroute hops and resolves their AS with ip-api.com.
type IPAPIClient struct {
	log   *slog.Logger
	cfg   *IPAPIConfig
	cache *ttlcache.Cache[string, *ipapiResponse]
}

func NewIPAPIClient(cfg *IPAPIConfig) (*IPAPIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *ipapiResponse](cfg.CacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *ipapiResponse](),
	)
	return &IPAPIClient{log: cfg.Logger, cfg: cfg, cache: cache}, nil
}

type ipapiResponse struct {
	Status string  `json:"status"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	AS     string  `json:"as"`
}

func (c *IPAPIClient) HopLocation(ctx context.Context, ip string) *Coordinates {
	resp := c.lookup(ctx, ip)
	if resp == nil {
		return nil
	}
	return &Coordinates{Latitude: resp.Lat, Longitude: resp.Lon}
}

func (c *IPAPIClient) ASN(ctx context.Context, ip string) uint {
	resp := c.lookup(ctx, ip)
	if resp == nil {
		return 0
	}
	return ParseASN(resp.AS)
}

// lookup returns nil for private addresses, failed requests and
// unsuccessful answers. Failures are cached like answers.
func (c *IPAPIClient) lookup(ctx context.Context, ip string) *ipapiResponse {
	if netutil.IsPrivate(ip) {
		return nil
	}
	if item := c.cache.Get(ip); item != nil {
		return item.Value()
	}

	resp, err := c.fetch(ctx, ip)
	switch {
	case err != nil:
		metrics.LookupsTotal.WithLabelValues("ipapi", "error").Inc()
		c.log.Debug("ipapi: lookup failed", "ip", ip, "error", err)
		resp = nil
	case resp.Status != "success":
		metrics.LookupsTotal.WithLabelValues("ipapi", "not_found").Inc()
		resp = nil
	default:
		metrics.LookupsTotal.WithLabelValues("ipapi", "ok").Inc()
	}
	c.cache.Set(ip, resp, ttlcache.DefaultTTL)
	return resp
}

func (c *IPAPIClient) fetch(ctx context.Context, ip string) (*ipapiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := c.cfg.BaseURL + "/" + ip + "?fields=status,lat,lon,as"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	var out ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// ParseASN extracts the number from an AS description such as
// "AS15169 Google LLC". It returns 0 when none is present.
func ParseASN(s string) uint {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	tok := strings.TrimPrefix(strings.ToUpper(fields[0]), "AS")
	n, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}
