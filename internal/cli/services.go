package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/pathscope/internal/config"
	"github.com/malbeclabs/pathscope/internal/netutil"
	"github.com/malbeclabs/pathscope/pkg/anonymity"
	"github.com/malbeclabs/pathscope/pkg/geoip"
	"github.com/malbeclabs/pathscope/pkg/jitter"
	"github.com/malbeclabs/pathscope/pkg/latency"
	"github.com/malbeclabs/pathscope/pkg/mss"
	"github.com/malbeclabs/pathscope/pkg/mtu"
	"github.com/malbeclabs/pathscope/pkg/sample"
	"github.com/malbeclabs/pathscope/pkg/trace"
)

// Services are the collaborators one run uses.
type Services struct {
	Geo        geoip.LocationLookup
	PublicIP   func(ctx context.Context) (string, error)
	HopLocator geoip.HopLocator

	Ping      *latency.Prober
	Jitter    *jitter.Analyzer
	MSS       *mss.Discoverer
	MTU       *mtu.Discoverer
	Tracer    *trace.Tracer
	Anonymity *anonymity.Assessor

	closers []func() error
}

func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewServices wires the production collaborators from cfg. Hop location and
// ASN come from local MaxMind databases when configured, else ip-api.com.
func NewServices(log *slog.Logger, cfg *config.Config) (*Services, error) {
	svc := &Services{}

	collector, err := sample.NewICMPCollector(log, &sample.ICMPCollectorConfig{Privileged: cfg.Privileged})
	if err != nil {
		return nil, fmt.Errorf("failed to create icmp collector: %w", err)
	}
	svc.Ping, err = latency.NewProber(&latency.ProberConfig{
		Logger:    log,
		Collector: collector,
		Count:     cfg.Ping.Count,
		Timeout:   cfg.Ping.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create latency prober: %w", err)
	}
	svc.Jitter, err = jitter.NewAnalyzer(&jitter.AnalyzerConfig{
		Logger:    log,
		Collector: collector,
		Count:     cfg.Jitter.Count,
		Timeout:   cfg.Jitter.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create jitter analyzer: %w", err)
	}

	synProber, err := mss.NewRawSYNProber(&mss.RawSYNProberConfig{
		Logger:  log,
		Router:  netutil.NewRouter(),
		Timeout: cfg.MSS.ProbeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create syn prober: %w", err)
	}
	svc.MSS, err = mss.NewDiscoverer(&mss.DiscovererConfig{
		Logger:     log,
		Prober:     synProber,
		Port:       cfg.MSS.Port,
		MinSize:    cfg.MSS.MinSize,
		MaxSize:    cfg.MSS.MaxSize,
		ProbeDelay: cfg.MSS.ProbeDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mss discoverer: %w", err)
	}

	dfPinger, err := mtu.NewDFPinger(&mtu.DFPingerConfig{
		Logger:     log,
		Privileged: cfg.Privileged,
		Timeout:    cfg.MTU.ProbeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create df pinger: %w", err)
	}
	svc.MTU, err = mtu.NewDiscoverer(&mtu.DiscovererConfig{
		Logger:     log,
		Prober:     dfPinger,
		MinPayload: cfg.MTU.MinPayload,
		MaxPayload: cfg.MTU.MaxPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mtu discoverer: %w", err)
	}

	svc.Geo, err = geoip.NewIPWhoClient(&geoip.IPWhoConfig{Logger: log, BaseURL: cfg.Endpoints.IPWho})
	if err != nil {
		return nil, fmt.Errorf("failed to create ipwho client: %w", err)
	}
	publicIPURL := cfg.Endpoints.PublicIP
	svc.PublicIP = func(ctx context.Context) (string, error) {
		return geoip.PublicIP(ctx, nil, publicIPURL)
	}

	var asns geoip.ASNResolver
	if cfg.GeoIP.CityDB != "" || cfg.GeoIP.ASNDB != "" {
		mm, err := geoip.OpenMaxMindResolver(log, cfg.GeoIP.CityDB, cfg.GeoIP.ASNDB)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, mm.Close)
		svc.HopLocator, asns = mm, mm
		log.Debug("cli: using maxmind databases for hop lookups", "city", cfg.GeoIP.CityDB, "asn", cfg.GeoIP.ASNDB)
	} else {
		ipapi, err := geoip.NewIPAPIClient(&geoip.IPAPIConfig{Logger: log, BaseURL: cfg.Endpoints.IPAPI})
		if err != nil {
			return nil, fmt.Errorf("failed to create ip-api client: %w", err)
		}
		svc.HopLocator, asns = ipapi, ipapi
	}

	svc.Tracer, err = trace.NewTracer(&trace.TracerConfig{
		Logger:      log,
		MaxHops:     cfg.Trace.MaxHops,
		Timeout:     cfg.Trace.Timeout,
		Locator:     svc.HopLocator,
		ASNResolver: asns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	exits, err := anonymity.NewExitListCache(&anonymity.ExitListCacheConfig{
		Logger:  log,
		Fetcher: anonymity.NewHTTPExitListFetcher(cfg.Endpoints.TorExitList),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exit list cache: %w", err)
	}
	svc.Anonymity, err = anonymity.NewAssessor(&anonymity.AssessorConfig{Logger: log, ExitList: exits})
	if err != nil {
		return nil, fmt.Errorf("failed to create anonymity assessor: %w", err)
	}

	return svc, nil
}
