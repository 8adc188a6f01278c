package latency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/malbeclabs/pathscope/internal/stats"
	"github.com/malbeclabs/pathscope/pkg/sample"
)

const (
	DefaultCount   = 5
	DefaultTimeout = 1 * time.Second

	FiberSpeedKMPerMS     = 200 // physical upper bound
	RealWorldFactor       = 0.5 // routing + overhead penalty
	EffectiveSpeedKMPerMS = FiberSpeedKMPerMS * RealWorldFactor
)

type RTTSummary struct {
	Min    float64 `json:"min"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

type DistanceKM struct {
	Min       int `json:"min"`
	Estimated int `json:"estimated"`
	Max       int `json:"max"`
}

type Report struct {
	Reachable         bool           `json:"reachable"`
	Sent              int            `json:"sent"`
	Received          int            `json:"received"`
	PacketLossPercent float64        `json:"packet_loss_percent"`
	RTT               *RTTSummary    `json:"rtt_ms,omitempty"`
	Distance          *DistanceKM    `json:"distance_km,omitempty"`
	Classification    Classification `json:"classification,omitempty"`
}

// MedianRTT returns the median RTT in milliseconds and whether it is known.
func (r *Report) MedianRTT() (float64, bool) {
	if r == nil || !r.Reachable || r.RTT == nil {
		return 0, false
	}
	return r.RTT.Median, true
}

type ProberConfig struct {
	Logger    *slog.Logger
	Collector sample.Collector
	Count     int
	Timeout   time.Duration
}

func (c *ProberConfig) Validate() error {
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

// Prober measures round-trip latency to a host with a short batch of echo
// probes and derives a distance estimate and a qualitative classification.
type Prober struct {
	log *slog.Logger
	cfg *ProberConfig
}

func NewProber(cfg *ProberConfig) (*Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Prober{log: cfg.Logger, cfg: cfg}, nil
}

func (p *Prober) Measure(ctx context.Context, host string) *Report {
	samples := sample.Batch(ctx, p.cfg.Collector, host, p.cfg.Count, p.cfg.Timeout)
	report := Aggregate(samples)
	p.log.Debug("latency: measured", "host", host, "sent", report.Sent, "received", report.Received, "lossPercent", report.PacketLossPercent)
	return report
}

// Aggregate builds a Report from a batch of samples.
func Aggregate(samples []sample.Sample) *Report {
	rtts := sample.Successful(samples)
	sent := len(samples)
	received := len(rtts)

	summary, ok := stats.Summarize(rtts)
	if !ok {
		return &Report{
			Reachable:         false,
			Sent:              sent,
			Received:          0,
			PacketLossPercent: 100,
		}
	}

	median := stats.Round(summary.Median, 2)
	distance := EstimateDistance(median)

	return &Report{
		Reachable:         true,
		Sent:              sent,
		Received:          received,
		PacketLossPercent: stats.LossPercent(sent, received),
		RTT: &RTTSummary{
			Min:    stats.Round(summary.Min, 2),
			Avg:    stats.Round(summary.Mean, 2),
			Median: median,
			Max:    stats.Round(summary.Max, 2),
		},
		Distance:       &distance,
		Classification: Classify(median),
	}
}

// EstimateDistance converts an RTT into a rough great-circle distance range
// assuming fibre propagation slowed down by routing overhead.
func EstimateDistance(rttMS float64) DistanceKM {
	oneWay := rttMS / 2
	estimated := oneWay * EffectiveSpeedKMPerMS
	return DistanceKM{
		Min:       int(estimated * 0.7),
		Estimated: int(estimated),
		Max:       int(estimated * 1.3),
	}
}
