package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/malbeclabs/pathscope/internal/output"
	"github.com/malbeclabs/pathscope/pkg/bandwidth"
	"github.com/malbeclabs/pathscope/pkg/mss"
	"github.com/malbeclabs/pathscope/pkg/trace"
)

const stoppedUnreachable = "host unreachable"

// Modules selects which analyses run for each target.
type Modules struct {
	Ping      bool
	Jitter    bool
	MSS       bool
	MTU       bool
	Bandwidth bool
	Trace     bool
	Anonymity bool
}

func AllModules() Modules {
	return Modules{Ping: true, Jitter: true, MSS: true, MTU: true, Bandwidth: true, Trace: true, Anonymity: true}
}

// Analyze characterizes the path to one target. It returns nil when the
// target cannot be geolocated. An unreachable ping stops the remaining
// modules.
func Analyze(ctx context.Context, log *slog.Logger, svc *Services, mods Modules, targetASN uint, target string) *output.Result {
	geo := svc.Geo.Lookup(ctx, target)
	if geo == nil {
		log.Warn("cli: failed to retrieve geolocation data", "target", target)
		return nil
	}
	r := &output.Result{Target: target, Geo: geo}

	if mods.Ping {
		r.Ping = svc.Ping.Measure(ctx, target)
		if !r.Ping.Reachable {
			log.Info("cli: stopping analysis, host unreachable", "target", target)
			r.Stopped = stoppedUnreachable
			return r
		}
	}

	if mods.Jitter {
		r.Jitter = svc.Jitter.Measure(ctx, target)
	}

	// Traceroute runs ahead of segment size discovery so its outcome can
	// feed the estimate.
	if mods.Trace {
		r.Traceroute = svc.Tracer.Run(ctx, target)
	}

	if mods.MSS {
		hints := mss.Hints{TracerouteOK: true}
		if median, ok := r.Ping.MedianRTT(); ok {
			hints.MedianRTTMS = &median
		}
		if r.Traceroute != nil {
			hints.TracerouteOK = r.Traceroute.OK()
		}
		r.MSS = svc.MSS.Discover(ctx, target, hints)
	}

	if mods.MTU {
		r.MTU = svc.MTU.Discover(ctx, target)
	}

	if mods.Bandwidth {
		size := bandwidth.DefaultMSSBytes
		if r.MSS != nil {
			size = r.MSS.MSS
		}
		r.Bandwidth = bandwidth.Estimate(r.Ping, size)
	}

	if r.Traceroute != nil {
		asn := targetASN
		if asn == 0 {
			asn = geo.ASN
		}
		r.Ingress = trace.FindIngress(ctx, r.Traceroute, &asn, svc.HopLocator)
	}

	if mods.Anonymity {
		r.Anonymity = svc.Anonymity.Assess(ctx, geo)
	}

	return r
}

var errNoTargets = errors.New("no valid targets to process")

// CollectTargets merges positional targets with those listed one per line in
// file, and falls back to this host's public address when both are empty.
func CollectTargets(ctx context.Context, log *slog.Logger, args []string, file string, publicIP func(context.Context) (string, error)) ([]string, error) {
	var targets []string
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			targets = append(targets, a)
		}
	}

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open target file: %w", err)
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				targets = append(targets, line)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read target file: %w", err)
		}
	}

	if len(targets) == 0 && publicIP != nil {
		log.Info("cli: no targets given, defaulting to public ip")
		ip, err := publicIP(ctx)
		if err != nil {
			log.Warn("cli: failed to discover public ip", "error", err)
		} else {
			targets = append(targets, ip)
		}
	}

	if len(targets) == 0 {
		return nil, errNoTargets
	}
	return targets, nil
}
