package trace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/malbeclabs/pathscope/internal/metrics"
	"github.com/malbeclabs/pathscope/pkg/geoip"
)

const (
	DefaultMaxHops = 30
	DefaultTimeout = 60 * time.Second
)

type Hop struct {
	Index     int       `json:"hop"`
	IP        string    `json:"ip"`
	Private   bool      `json:"private"`
	RTTMS     []float64 `json:"rtt_ms"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	ASN       uint      `json:"asn,omitempty"`
}

type Report struct {
	Target string `json:"target"`
	Hops   []Hop  `json:"hops"`
	Error  string `json:"error,omitempty"`
}

func (r *Report) OK() bool {
	return r != nil && r.Error == ""
}

type TracerConfig struct {
	Logger  *slog.Logger
	MaxHops int
	Timeout time.Duration

	// Runner defaults to ExecRunner.
	Runner Runner

	// Locator and ASNResolver are optional; public hops are enriched only
	// when they are set.
	Locator     geoip.HopLocator
	ASNResolver geoip.ASNResolver
}

func (c *TracerConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.MaxHops < 0 || c.Timeout < 0 {
		return errors.New("max hops and timeout must not be negative")
	}
	if c.MaxHops == 0 {
		c.MaxHops = DefaultMaxHops
	}
	if c.MaxHops > 255 {
		return fmt.Errorf("max hops %d exceeds 255", c.MaxHops)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Runner == nil {
		c.Runner = ExecRunner{}
	}
	return nil
}

// Tracer runs traceroute to a host and enriches each public hop with its
// location and origin AS.
type Tracer struct {
	log *slog.Logger
	cfg *TracerConfig
}

func NewTracer(cfg *TracerConfig) (*Tracer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracer{log: cfg.Logger, cfg: cfg}, nil
}

// Run never fails; facility errors are reported in Report.Error with no
// partial hops.
func (t *Tracer) Run(ctx context.Context, host string) *Report {
	runCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	lines, err := t.cfg.Runner.Run(runCtx, host, t.cfg.MaxHops)
	cancel()
	if err != nil {
		t.log.Debug("trace: traceroute failed", "host", host, "error", err)
		metrics.TracerouteTotal.WithLabelValues("error").Inc()
		return &Report{Target: host, Error: err.Error()}
	}

	hops := ParseLines(lines)
	for i := range hops {
		hop := &hops[i]
		if hop.Private {
			continue
		}
		if t.cfg.Locator != nil {
			if c := t.cfg.Locator.HopLocation(ctx, hop.IP); c != nil {
				lat, lon := c.Latitude, c.Longitude
				hop.Latitude, hop.Longitude = &lat, &lon
			}
		}
		if t.cfg.ASNResolver != nil {
			hop.ASN = t.cfg.ASNResolver.ASN(ctx, hop.IP)
		}
	}

	metrics.TracerouteTotal.WithLabelValues("ok").Inc()
	metrics.TracerouteHops.Observe(float64(len(hops)))
	t.log.Debug("trace: traceroute complete", "host", host, "hops", len(hops))

	if hops == nil {
		hops = []Hop{}
	}
	return &Report{Target: host, Hops: hops}
}
