// Package mtu discovers the path MTU towards a host by binary-searching the
// largest echo payload that crosses the path with the don't-fragment bit set.
package mtu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/pathscope/internal/metrics"
	"github.com/malbeclabs/pathscope/pkg/mss"
)

const (
	DefaultMinPayload = 1200
	DefaultMaxPayload = 1472

	// HeaderBytes is the IPv4 (20) plus ICMP (8) overhead added to a payload
	// to get the packet size.
	HeaderBytes = 28
)

type PathType string

const (
	PathStandard    PathType = "standard"
	PathLightTunnel PathType = "pppoe / light tunneling"
	PathHeavyTunnel PathType = "vpn / heavy tunneling"
)

const (
	ReasonNoReply     = "no_reply"
	ReasonUnavailable = "probe_unavailable"
)

type Report struct {
	Reachable   bool     `json:"reachable"`
	MTU         int      `json:"mtu,omitempty"`
	PayloadSize int      `json:"payload_size,omitempty"`
	PathType    PathType `json:"path_type,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// Prober sends one don't-fragment echo request carrying payload bytes and
// reports whether a reply came back. An error means the path cannot be
// probed at all, as opposed to a lost or oversized packet.
type Prober interface {
	Probe(ctx context.Context, host string, payload int) (bool, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, host string, payload int) (bool, error)

func (f ProberFunc) Probe(ctx context.Context, host string, payload int) (bool, error) {
	return f(ctx, host, payload)
}

type DiscovererConfig struct {
	Logger *slog.Logger
	Prober Prober

	MinPayload int
	MaxPayload int
}

func (c *DiscovererConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Prober == nil {
		return errors.New("prober is required")
	}
	if c.MinPayload == 0 {
		c.MinPayload = DefaultMinPayload
	}
	if c.MaxPayload == 0 {
		c.MaxPayload = DefaultMaxPayload
	}
	if c.MinPayload < 0 || c.MaxPayload > 65507 || c.MinPayload > c.MaxPayload {
		return fmt.Errorf("invalid payload range [%d, %d]", c.MinPayload, c.MaxPayload)
	}
	return nil
}

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

// Discover never fails. When even the smallest payload gets no reply, or the
// prober cannot run, the report is unreachable with a reason.
func (d *Discoverer) Discover(ctx context.Context, host string) *Report {
	accept := func(payload int) (bool, error) {
		ok, err := d.cfg.Prober.Probe(ctx, host, payload)
		switch {
		case err != nil:
			metrics.PathMTUProbesTotal.WithLabelValues("error").Inc()
		case ok:
			metrics.PathMTUProbesTotal.WithLabelValues("accepted").Inc()
		default:
			metrics.PathMTUProbesTotal.WithLabelValues("rejected").Inc()
		}
		return ok, err
	}

	ok, err := accept(d.cfg.MinPayload)
	if err != nil {
		d.log.Debug("mtu: probing unavailable", "host", host, "error", err)
		return &Report{Reachable: false, Reason: ReasonUnavailable}
	}
	if !ok {
		d.log.Debug("mtu: no reply to minimum payload", "host", host, "payload", d.cfg.MinPayload)
		return &Report{Reachable: false, Reason: ReasonNoReply}
	}

	res, err := mss.Search(d.cfg.MinPayload, d.cfg.MaxPayload, accept, nil)
	if err != nil {
		d.log.Debug("mtu: search aborted", "host", host, "error", err)
		return &Report{Reachable: false, Reason: ReasonUnavailable}
	}
	d.log.Debug("mtu: search complete", "host", host, "payload", res.Best, "probes", res.Probes+1)

	size := res.Best + HeaderBytes
	return &Report{
		Reachable:   true,
		MTU:         size,
		PayloadSize: res.Best,
		PathType:    Classify(size),
	}
}

// Classify infers the kind of path from its MTU. Anything below Ethernet's
// 1500 bytes points to encapsulation along the way.
func Classify(mtu int) PathType {
	switch {
	case mtu >= 1500:
		return PathStandard
	case mtu >= 1400:
		return PathLightTunnel
	default:
		return PathHeavyTunnel
	}
}
