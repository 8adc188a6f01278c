package sample

import (
	"context"
	"time"
)

// Sample is the outcome of a single echo probe. OK is false when the probe
// was lost, whatever the cause.
type Sample struct {
	RTT time.Duration
	OK  bool
}

// Lost returns a sample marking a probe that got no reply.
func Lost() Sample {
	return Sample{}
}

// Received returns a sample for a probe answered after rtt.
func Received(rtt time.Duration) Sample {
	return Sample{RTT: rtt, OK: true}
}

// Milliseconds returns the RTT in fractional milliseconds.
func (s Sample) Milliseconds() float64 {
	return float64(s.RTT) / float64(time.Millisecond)
}

// Collector sends one echo probe to host and waits at most timeout for the
// reply. Implementations never return errors: every failure is a lost sample.
type Collector interface {
	Probe(ctx context.Context, host string, timeout time.Duration) Sample
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc func(ctx context.Context, host string, timeout time.Duration) Sample

func (f CollectorFunc) Probe(ctx context.Context, host string, timeout time.Duration) Sample {
	return f(ctx, host, timeout)
}

// Batch runs count sequential probes against host.
func Batch(ctx context.Context, c Collector, host string, count int, timeout time.Duration) []Sample {
	samples := make([]Sample, 0, max(count, 0))
	for range count {
		if ctx.Err() != nil {
			samples = append(samples, Lost())
			continue
		}
		samples = append(samples, c.Probe(ctx, host, timeout))
	}
	return samples
}

// Successful returns the RTTs of the received samples in milliseconds, in
// probe order.
func Successful(samples []Sample) []float64 {
	rtts := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.OK {
			rtts = append(rtts, s.Milliseconds())
		}
	}
	return rtts
}
