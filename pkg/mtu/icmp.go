package mtu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const DefaultProbeTimeout = 1 * time.Second

type DFPingerConfig struct {
	Logger *slog.Logger

	// GOOS gates the don't-fragment socket option, which pro-bing only
	// implements on linux. Defaults to runtime.GOOS.
	GOOS string

	// Privileged selects raw ICMP sockets over unprivileged datagram ones.
	Privileged bool
	Timeout    time.Duration
}

func (c *DFPingerConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultProbeTimeout
	}
	if c.GOOS == "" {
		c.GOOS = runtime.GOOS
	}
	return nil
}

// DFPinger sends single echo requests with the don't-fragment bit set using
// pro-bing.
type DFPinger struct {
	log *slog.Logger
	cfg *DFPingerConfig
}

func NewDFPinger(cfg *DFPingerConfig) (*DFPinger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DFPinger{log: cfg.Logger, cfg: cfg}, nil
}

// Probe treats a payload the local stack refuses to send unfragmented the
// same as one dropped along the path. Platforms without DF support and
// missing socket permissions are errors.
func (p *DFPinger) Probe(ctx context.Context, host string, payload int) (bool, error) {
	if p.cfg.GOOS != "linux" {
		return false, probing.ErrDFNotSupported
	}
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, fmt.Errorf("failed to create pinger: %w", err)
	}
	defer pinger.Stop()
	pinger.SetPrivileged(p.cfg.Privileged)
	pinger.SetDoNotFragment(true)

	pinger.Count = 1
	pinger.Size = payload
	pinger.Timeout = p.cfg.Timeout

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := pinger.RunWithContext(ctx); err != nil {
		if errors.Is(err, probing.ErrDFNotSupported) || errors.Is(err, os.ErrPermission) {
			return false, err
		}
		p.log.Debug("mtu: echo probe not sent", "host", host, "payload", payload, "error", err)
		return false, nil
	}

	stats := pinger.Statistics()
	return stats != nil && stats.PacketsRecv > 0, nil
}
