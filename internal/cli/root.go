package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/malbeclabs/pathscope/internal/config"
	"github.com/malbeclabs/pathscope/internal/metrics"
	"github.com/malbeclabs/pathscope/internal/output"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Deps are the process-level dependencies of the command tree.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer

	Build BuildInfo

	// NewServices builds the collaborators for a run. Defaults to
	// NewServices.
	NewServices func(log *slog.Logger, cfg *config.Config) (*Services, error)
}

func Run(build BuildInfo) ExitCode {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd(&Deps{Stdout: os.Stdout, Stderr: os.Stderr, Build: build})
	if err := cmd.ExecuteContext(ctx); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

type rootFlags struct {
	verbose         bool
	configPath      string
	format          string
	outputFile      string
	metricsTextfile string
	geoipCityDB     string
	geoipASNDB      string
	file            string
	targetASN       uint
	all             bool
	privileged      bool
	modules         Modules
}

func NewRootCmd(deps *Deps) *cobra.Command {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.NewServices == nil {
		deps.NewServices = NewServices
	}

	var f rootFlags
	rootCmd := &cobra.Command{
		Use:   "pathscope [targets...]",
		Short: "Characterize the network path to a host.",
		Long: "Geolocate IPs or domains and analyze the path to them: latency, jitter, " +
			"segment size, throughput bound, traceroute with ingress detection and " +
			"anonymity signals.",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, deps, &f, args)
		},
	}
	rootCmd.SetOut(deps.Stdout)
	rootCmd.SetErr(deps.Stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&f.verbose, "verbose", false, "set debug logging level")
	pf.StringVar(&f.configPath, "config", "", "path to a YAML config file")

	fl := rootCmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "", "file with IPs or domains, one per line")
	addModuleFlags(fl, &f.modules)
	fl.BoolVarP(&f.all, "all", "a", false, "run all modules")
	fl.UintVar(&f.targetASN, "target-asn", 0, "AS number whose ingress hop to locate (defaults to the target's own AS)")
	fl.BoolVar(&f.privileged, "privileged", false, "use raw ICMP sockets for echo probes")
	fl.StringVarP(&f.format, "output", "o", string(output.FormatText), "output format (text, json, csv)")
	fl.StringVar(&f.outputFile, "output-file", "", "also write results to this file (format from extension unless --output is set)")
	fl.StringVar(&f.geoipCityDB, "geoip-city-db", "", "MaxMind City database for offline hop geolocation")
	fl.StringVar(&f.geoipASNDB, "geoip-asn-db", "", "MaxMind ASN database for offline hop AS lookup")
	fl.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file for the node_exporter textfile collector")

	rootCmd.AddCommand(newVersionCmd(deps))
	return rootCmd
}

func addModuleFlags(fl *pflag.FlagSet, m *Modules) {
	fl.BoolVarP(&m.Ping, "ping", "p", false, "ping test")
	fl.BoolVarP(&m.Jitter, "jitter", "j", false, "jitter analysis")
	fl.BoolVarP(&m.MSS, "mss", "m", false, "MSS discovery")
	fl.BoolVar(&m.MTU, "mtu", false, "path MTU discovery with don't-fragment pings")
	fl.BoolVarP(&m.Bandwidth, "bandwidth", "b", false, "bandwidth estimate")
	fl.BoolVarP(&m.Trace, "trace", "t", false, "traceroute with ingress detection")
	fl.BoolVarP(&m.Anonymity, "hidecheck", "c", false, "anonymity detection")
}

func runRoot(cmd *cobra.Command, deps *Deps, f *rootFlags, args []string) error {
	log := newLogger(deps.Stderr, f.verbose)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := output.ParseFormat(f.format)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		log.Error("Failed to load config", "error", err)
		return err
	}
	if cmd.Flags().Changed("metrics-textfile") {
		cfg.MetricsTextfile = f.metricsTextfile
	}
	if cmd.Flags().Changed("geoip-city-db") {
		cfg.GeoIP.CityDB = f.geoipCityDB
	}
	if cmd.Flags().Changed("geoip-asn-db") {
		cfg.GeoIP.ASNDB = f.geoipASNDB
	}
	if cmd.Flags().Changed("privileged") {
		cfg.Privileged = f.privileged
	}

	metrics.BuildInfo.WithLabelValues(deps.Build.Version, deps.Build.Commit, deps.Build.Date).Set(1)

	svc, err := deps.NewServices(log, cfg)
	if err != nil {
		log.Error("Failed to initialize", "error", err)
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn("Failed to close services", "error", err)
		}
	}()

	mods := f.modules
	if f.all {
		mods = AllModules()
	}

	targets, err := CollectTargets(ctx, log, args, f.file, svc.PublicIP)
	if err != nil {
		log.Error("No targets", "error", err)
		return err
	}

	var results []*output.Result
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug("cli: analyzing target", "target", target)
		if r := Analyze(ctx, log, svc, mods, f.targetASN, target); r != nil {
			results = append(results, r)
		}
	}

	if err := output.Write(deps.Stdout, format, results); err != nil {
		return err
	}

	if f.outputFile != "" {
		fileFormat := output.FormatFromPath(f.outputFile)
		if cmd.Flags().Changed("output") {
			fileFormat = format
		}
		if err := writeFile(f.outputFile, fileFormat, results); err != nil {
			log.Error("Failed to write output file", "error", err)
			return err
		}
		log.Info("Wrote results", "path", f.outputFile, "format", fileFormat)
	}

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Error("Failed to write metrics", "error", err)
			return err
		}
	}

	if len(results) == 0 {
		return fmt.Errorf("no target could be analyzed")
	}
	return nil
}

func writeFile(path string, format output.Format, results []*output.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := output.Write(f, format, results); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
