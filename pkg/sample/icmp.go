package sample

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/malbeclabs/pathscope/internal/metrics"
)

const (
	defaultICMPSize = 56 // 64 bytes - 8 byte ICMP header
)

type ICMPCollectorConfig struct {
	// Privileged selects raw ICMP sockets. When false, unprivileged
	// datagram-oriented ICMP sockets are used (Linux ping_group_range).
	Privileged bool
	Size       int
}

// ICMPCollector sends ICMP echo requests with pro-bing.
type ICMPCollector struct {
	log *slog.Logger
	cfg *ICMPCollectorConfig
}

func NewICMPCollector(log *slog.Logger, cfg *ICMPCollectorConfig) (*ICMPCollector, error) {
	if log == nil {
		return nil, fmt.Errorf("log is nil")
	}
	if cfg == nil {
		cfg = &ICMPCollectorConfig{}
	}
	if cfg.Size < 0 {
		return nil, fmt.Errorf("size must not be negative")
	}
	if cfg.Size == 0 {
		cfg.Size = defaultICMPSize
	}
	return &ICMPCollector{log: log, cfg: cfg}, nil
}

// Probe pings host once. Resolution errors, socket permission errors and
// timeouts all yield a lost sample.
func (c *ICMPCollector) Probe(ctx context.Context, host string, timeout time.Duration) Sample {
	s, err := c.probe(ctx, host, timeout)
	if err != nil {
		c.log.Debug("sample: echo probe lost", "host", host, "error", err)
		metrics.ProbesTotal.WithLabelValues("lost").Inc()
		return Lost()
	}
	metrics.ProbesTotal.WithLabelValues("ok").Inc()
	metrics.ProbeDurations.Observe(s.RTT.Seconds())
	return s
}

func (c *ICMPCollector) probe(ctx context.Context, host string, timeout time.Duration) (Sample, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return Lost(), fmt.Errorf("failed to create pinger: %w", err)
	}
	defer pinger.Stop()
	pinger.SetPrivileged(c.cfg.Privileged)

	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.Size = c.cfg.Size
	pinger.RecordRtts = true

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pinger.RunWithContext(ctx); err != nil {
		return Lost(), err
	}

	stats := pinger.Statistics()
	if stats == nil || stats.PacketsRecv == 0 || len(stats.Rtts) == 0 {
		return Lost(), fmt.Errorf("no reply within %s", timeout)
	}
	return Received(stats.Rtts[0]), nil
}
