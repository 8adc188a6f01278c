package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pathscope_build_info",
			Help: "Build information of pathscope",
		},
		[]string{"version", "commit", "date"},
	)

	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathscope_probes_total",
		Help: "Total number of echo probes sent, by result",
	}, []string{"result"})

	ProbeDurations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathscope_probe_duration_seconds",
		Help:    "Round-trip time of successful echo probes",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 13), // 0.5ms .. ~2s
	})

	SegmentSizeProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathscope_mss_probes_total",
		Help: "Total number of SYN probes sent during segment size discovery, by result",
	}, []string{"result"})

	SegmentSizeMethodTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathscope_mss_method_total",
		Help: "Total number of segment size discoveries, by method",
	}, []string{"method"})

	PathMTUProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathscope_mtu_probes_total",
		Help: "Total number of don't-fragment echo probes sent during path MTU discovery, by result",
	}, []string{"result"})

	TracerouteTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathscope_traceroute_total",
		Help: "Total number of traceroute runs, by result",
	}, []string{"result"})

	TracerouteHops = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathscope_traceroute_hops",
		Help:    "Number of hops parsed from a traceroute run",
		Buckets: prometheus.LinearBuckets(0, 4, 9),
	})

	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathscope_lookups_total",
		Help: "Total number of remote lookups, by provider and result",
	}, []string{"provider", "result"})

	TorExitListSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pathscope_tor_exit_list_size",
		Help: "Number of addresses in the cached Tor exit list",
	})
)

// WriteTextfile writes every registered metric to path in the text
// exposition format, for pickup by the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
