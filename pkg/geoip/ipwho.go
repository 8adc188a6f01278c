package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/malbeclabs/pathscope/internal/metrics"
	"github.com/malbeclabs/pathscope/internal/netutil"
)

const (
	DefaultIPWhoURL     = "https://ipwho.is"
	DefaultIPWhoTimeout = 6 * time.Second

	maxResponseBytes = 1 << 20
)

type IPWhoConfig struct {
	Logger     *slog.Logger
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPClient
}

func (c *IPWhoConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultIPWhoURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultIPWhoTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	return nil
}

// IPWhoClient looks up target locations with the ipwho.is API.
type IPWhoClient struct {
	log *slog.Logger
	cfg *IPWhoConfig
}

func NewIPWhoClient(cfg *IPWhoConfig) (*IPWhoClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &IPWhoClient{log: cfg.Logger, cfg: cfg}, nil
}

type ipwhoResponse struct {
	IP            string   `json:"ip"`
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	Hostname      string   `json:"hostname"`
	Continent     string   `json:"continent"`
	ContinentCode string   `json:"continent_code"`
	Country       string   `json:"country"`
	CountryCode   string   `json:"country_code"`
	Capital       string   `json:"capital"`
	Borders       string   `json:"borders"`
	Region        string   `json:"region"`
	City          string   `json:"city"`
	Postal        string   `json:"postal"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Connection    struct {
		ASN    uint   `json:"asn"`
		Org    string `json:"org"`
		ISP    string `json:"isp"`
		Domain string `json:"domain"`
	} `json:"connection"`
	Timezone struct {
		ID          string `json:"id"`
		Abbr        string `json:"abbr"`
		UTC         string `json:"utc"`
		IsDST       bool   `json:"is_dst"`
		CurrentTime string `json:"current_time"`
	} `json:"timezone"`
}

func (c *IPWhoClient) Lookup(ctx context.Context, target string) *Location {
	ip := target
	if !netutil.IsIP(target) {
		addr, err := netutil.ResolveIPv4(ctx, target)
		if err != nil {
			c.log.Debug("ipwho: failed to resolve target", "target", target, "error", err)
			return nil
		}
		ip = addr.String()
	}

	if netutil.IsPrivate(ip) {
		return &Location{IP: ip, Private: true}
	}

	body, err := c.fetch(ctx, ip)
	if err != nil {
		metrics.LookupsTotal.WithLabelValues("ipwho", "error").Inc()
		c.log.Debug("ipwho: lookup failed", "ip", ip, "error", err)
		return nil
	}

	resp, raw, err := decodeIPWho(body)
	if err != nil {
		metrics.LookupsTotal.WithLabelValues("ipwho", "error").Inc()
		c.log.Debug("ipwho: failed to decode response", "ip", ip, "error", err)
		return nil
	}
	if !resp.Success {
		metrics.LookupsTotal.WithLabelValues("ipwho", "not_found").Inc()
		c.log.Debug("ipwho: lookup unsuccessful", "ip", ip, "message", resp.Message)
		return nil
	}

	metrics.LookupsTotal.WithLabelValues("ipwho", "ok").Inc()

	org := resp.Connection.Org
	if org == "" {
		org = resp.Connection.ISP
	}
	loc := &Location{
		IP:            ip,
		Hostname:      resp.Hostname,
		Org:           org,
		ISP:           resp.Connection.ISP,
		Domain:        resp.Connection.Domain,
		ASN:           resp.Connection.ASN,
		Continent:     resp.Continent,
		ContinentCode: resp.ContinentCode,
		Country:       resp.Country,
		CountryCode:   resp.CountryCode,
		Capital:       resp.Capital,
		Borders:       resp.Borders,
		Region:        resp.Region,
		City:          resp.City,
		Postal:        resp.Postal,
		Latitude:      resp.Latitude,
		Longitude:     resp.Longitude,
		Timezone:      resp.Timezone.ID,
		Raw:           raw,
	}
	if tz := resp.Timezone; tz.Abbr != "" || tz.UTC != "" || tz.CurrentTime != "" {
		loc.Zone = &Zone{Abbr: tz.Abbr, UTCOffset: tz.UTC, DST: tz.IsDST, LocalTime: tz.CurrentTime}
	}
	return loc
}

// decodeIPWho decodes a response body both into its typed form and into the
// generic map kept as the raw record.
func decodeIPWho(body []byte) (*ipwhoResponse, map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to decode raw record: %w", err)
	}
	var resp ipwhoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &resp, raw, nil
}

func (c *IPWhoClient) fetch(ctx context.Context, ip string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/"+ip, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
