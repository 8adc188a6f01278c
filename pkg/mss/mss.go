package mss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/pathscope/internal/metrics"
	"github.com/malbeclabs/pathscope/internal/netutil"
)

const (
	DefaultPort         = 443
	DefaultMinSize      = 536
	DefaultMaxSize      = 1460
	DefaultProbeTimeout = 1 * time.Second
	DefaultProbeDelay   = 50 * time.Millisecond
)

type Method string

const (
	MethodProbed    Method = "probed"
	MethodEstimated Method = "estimated"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

type Report struct {
	Reachable  bool       `json:"reachable"`
	Method     Method     `json:"method"`
	MSS        int        `json:"mss"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason,omitempty"`
}

// Hints are the passive signals used when the path cannot be probed.
type Hints struct {
	MedianRTTMS  *float64
	TracerouteOK bool
}

// SYNProber sends a single TCP SYN to dst:port advertising the given MSS and
// reports whether the peer answered with SYN+ACK within its timeout.
type SYNProber interface {
	Probe(ctx context.Context, dst net.IP, port int, mss int) (bool, error)
}

// SYNProberFunc adapts a function to the SYNProber interface.
type SYNProberFunc func(ctx context.Context, dst net.IP, port int, mss int) (bool, error)

func (f SYNProberFunc) Probe(ctx context.Context, dst net.IP, port int, mss int) (bool, error) {
	return f(ctx, dst, port, mss)
}

type DiscovererConfig struct {
	Logger *slog.Logger

	// Prober is optional; without it discovery always estimates.
	Prober SYNProber

	// Capability reports whether active probing is permitted in this
	// process. Defaults to RequireRawCapability.
	Capability func() error

	Clock clockwork.Clock

	Port       int
	MinSize    int
	MaxSize    int
	ProbeDelay time.Duration
}

func (c *DiscovererConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Capability == nil {
		c.Capability = RequireRawCapability
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MinSize == 0 {
		c.MinSize = DefaultMinSize
	}
	if c.MaxSize == 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.MinSize < 0 || c.MaxSize > 65535 || c.MinSize > c.MaxSize {
		return fmt.Errorf("invalid size range [%d, %d]", c.MinSize, c.MaxSize)
	}
	if c.ProbeDelay < 0 {
		return errors.New("probe delay must not be negative")
	}
	if c.ProbeDelay == 0 {
		c.ProbeDelay = DefaultProbeDelay
	}
	return nil
}

// Discoverer finds the largest TCP MSS a path accepts end-to-end, falling
// back to a heuristic when raw packets cannot be sent.
type Discoverer struct {
	log *slog.Logger
	cfg *DiscovererConfig
}

func NewDiscoverer(cfg *DiscovererConfig) (*Discoverer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Discoverer{log: cfg.Logger, cfg: cfg}, nil
}

type Strategy string

const (
	StrategyProbed    Strategy = "probed"
	StrategyEstimated Strategy = "estimated"
)

// SelectStrategy picks the discovery method once, up front. Probing needs
// both a prober and a nil capability error.
func SelectStrategy(prober SYNProber, capabilityErr error) Strategy {
	if prober == nil || capabilityErr != nil {
		return StrategyEstimated
	}
	return StrategyProbed
}

// Discover never fails: any obstacle to probing routes to Estimate.
func (d *Discoverer) Discover(ctx context.Context, host string, hints Hints) *Report {
	var capErr error
	if d.cfg.Prober != nil {
		capErr = d.cfg.Capability()
	}
	strategy := SelectStrategy(d.cfg.Prober, capErr)
	d.log.Debug("mss: strategy selected", "host", host, "strategy", strategy, "capabilityError", capErr)

	if strategy == StrategyProbed {
		report, err := d.probe(ctx, host)
		if err == nil {
			metrics.SegmentSizeMethodTotal.WithLabelValues(string(MethodProbed)).Inc()
			return report
		}
		d.log.Debug("mss: active probing unavailable, estimating", "host", host, "error", err)
	}

	metrics.SegmentSizeMethodTotal.WithLabelValues(string(MethodEstimated)).Inc()
	return Estimate(hints)
}

var errMinSizeRejected = errors.New("minimum segment size not accepted")

func (d *Discoverer) probe(ctx context.Context, host string) (*Report, error) {
	dst, err := netutil.ResolveIPv4(ctx, host)
	if err != nil {
		return nil, err
	}

	accept := func(size int) (bool, error) {
		ok, err := d.cfg.Prober.Probe(ctx, dst, d.cfg.Port, size)
		switch {
		case err != nil:
			metrics.SegmentSizeProbesTotal.WithLabelValues("error").Inc()
		case ok:
			metrics.SegmentSizeProbesTotal.WithLabelValues("accepted").Inc()
		default:
			metrics.SegmentSizeProbesTotal.WithLabelValues("rejected").Inc()
		}
		return ok, err
	}

	ok, err := accept(d.cfg.MinSize)
	if err != nil {
		return nil, fmt.Errorf("failed to probe minimum size: %w", err)
	}
	if !ok {
		return nil, errMinSizeRejected
	}

	res, err := Search(d.cfg.MinSize, d.cfg.MaxSize, accept, func() {
		d.cfg.Clock.Sleep(d.cfg.ProbeDelay)
	})
	if err != nil {
		return nil, err
	}
	d.log.Debug("mss: search complete", "host", host, "mss", res.Best, "probes", res.Probes)

	return &Report{
		Reachable:  true,
		Method:     MethodProbed,
		MSS:        res.Best,
		Confidence: ConfidenceHigh,
	}, nil
}

type SearchResult struct {
	Best   int
	Probes int
	// Steps holds the value of Best after each probe.
	Steps []int
}

// Search binary-searches [low, high] for the largest size accepted, assuming
// low itself has already been confirmed. pause runs between probes.
func Search(low, high int, accept func(size int) (bool, error), pause func()) (SearchResult, error) {
	res := SearchResult{Best: low}
	for low <= high {
		if res.Probes > 0 && pause != nil {
			pause()
		}
		mid := (low + high) / 2
		ok, err := accept(mid)
		res.Probes++
		if err != nil {
			return res, fmt.Errorf("failed to probe size %d: %w", mid, err)
		}
		if ok {
			res.Best = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
		res.Steps = append(res.Steps, res.Best)
	}
	return res, nil
}

const (
	ReasonMobileOrCGNAT    = "mobile_or_cgnat_likely"
	ReasonHighRTT          = "high_rtt_path"
	ReasonPossibleTunnel   = "possible_tunneling"
	ReasonStandardEthernet = "standard_ethernet_assumed"
)

// Estimate guesses the MSS from passive signals. A missing RTT or a failed
// traceroute suggests a mobile or carrier-grade NAT path; elevated RTT
// suggests encapsulation overhead along the way.
func Estimate(h Hints) *Report {
	report := func(size int, confidence Confidence, reason string) *Report {
		return &Report{
			Reachable:  true,
			Method:     MethodEstimated,
			MSS:        size,
			Confidence: confidence,
			Reason:     reason,
		}
	}

	switch {
	case h.MedianRTTMS == nil || !h.TracerouteOK:
		return report(1360, ConfidenceLow, ReasonMobileOrCGNAT)
	case *h.MedianRTTMS > 40:
		return report(1360, ConfidenceLow, ReasonHighRTT)
	case *h.MedianRTTMS > 20:
		return report(1420, ConfidenceMedium, ReasonPossibleTunnel)
	default:
		return report(1460, ConfidenceMedium, ReasonStandardEthernet)
	}
}
