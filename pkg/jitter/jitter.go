package jitter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/malbeclabs/pathscope/internal/stats"
	"github.com/malbeclabs/pathscope/pkg/sample"
)

const (
	DefaultCount   = 20
	DefaultTimeout = 1 * time.Second

	// At least this many replies are needed for a deviation to mean anything.
	minReceived = 2
)

type Stability string

const (
	StabilityStable   Stability = "stable"
	StabilityModerate Stability = "moderate"
	StabilityUnstable Stability = "unstable"
)

type RTTSummary struct {
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

type Report struct {
	Reachable         bool        `json:"reachable"`
	Sent              int         `json:"sent"`
	Received          int         `json:"received"`
	PacketLossPercent float64     `json:"packet_loss_percent"`
	RTT               *RTTSummary `json:"rtt_ms,omitempty"`
	JitterMS          float64     `json:"jitter_ms,omitempty"`
	Stability         Stability   `json:"stability,omitempty"`
}

type AnalyzerConfig struct {
	Logger    *slog.Logger
	Collector sample.Collector
	Count     int
	Timeout   time.Duration
}

func (c *AnalyzerConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Collector == nil {
		return errors.New("collector is required")
	}
	if c.Count < 0 {
		return errors.New("count must not be negative")
	}
	if c.Count == 0 {
		c.Count = DefaultCount
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// Analyzer measures RTT variability as the mean absolute deviation of each
// reply from the median reply.
type Analyzer struct {
	log *slog.Logger
	cfg *AnalyzerConfig
}

func NewAnalyzer(cfg *AnalyzerConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{log: cfg.Logger, cfg: cfg}, nil
}

func (a *Analyzer) Measure(ctx context.Context, host string) *Report {
	samples := sample.Batch(ctx, a.cfg.Collector, host, a.cfg.Count, a.cfg.Timeout)
	report := Analyze(samples)
	a.log.Debug("jitter: measured", "host", host, "received", report.Received, "jitterMs", report.JitterMS, "stability", report.Stability)
	return report
}

// Analyze builds a Report from a batch of samples.
func Analyze(samples []sample.Sample) *Report {
	rtts := sample.Successful(samples)
	sent := len(samples)
	received := len(rtts)
	loss := stats.LossPercent(sent, received)

	if received < minReceived {
		return &Report{
			Reachable:         false,
			Sent:              sent,
			Received:          received,
			PacketLossPercent: loss,
		}
	}

	summary, _ := stats.Summarize(rtts)
	jitter := stats.Round(stats.MeanAbsDeviation(rtts, summary.Median), 2)

	return &Report{
		Reachable:         true,
		Sent:              sent,
		Received:          received,
		PacketLossPercent: loss,
		RTT: &RTTSummary{
			Min:    stats.Round(summary.Min, 2),
			Median: stats.Round(summary.Median, 2),
			Max:    stats.Round(summary.Max, 2),
		},
		JitterMS:  jitter,
		Stability: Classify(jitter),
	}
}

// Classify maps a jitter value in milliseconds to a stability class.
func Classify(jitterMS float64) Stability {
	switch {
	case jitterMS < 3:
		return StabilityStable
	case jitterMS < 10:
		return StabilityModerate
	default:
		return StabilityUnstable
	}
}
