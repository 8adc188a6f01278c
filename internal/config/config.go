package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/malbeclabs/pathscope/pkg/anonymity"
	"github.com/malbeclabs/pathscope/pkg/geoip"
	"github.com/malbeclabs/pathscope/pkg/jitter"
	"github.com/malbeclabs/pathscope/pkg/latency"
	"github.com/malbeclabs/pathscope/pkg/mss"
	"github.com/malbeclabs/pathscope/pkg/mtu"
	"github.com/malbeclabs/pathscope/pkg/trace"
)

const (
	EnvGeoIPCityDB     = "PATHSCOPE_GEOIP_CITY_DB"
	EnvGeoIPASNDB      = "PATHSCOPE_GEOIP_ASN_DB"
	EnvTorExitListURL  = "PATHSCOPE_TOR_EXIT_LIST_URL"
	EnvMetricsTextfile = "PATHSCOPE_METRICS_TEXTFILE"
)

type ProbeConfig struct {
	Count   int           `yaml:"count"`
	Timeout time.Duration `yaml:"timeout"`
}

type MSSConfig struct {
	Port         int           `yaml:"port"`
	MinSize      int           `yaml:"min_size"`
	MaxSize      int           `yaml:"max_size"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	ProbeDelay   time.Duration `yaml:"probe_delay"`
}

type MTUConfig struct {
	MinPayload   int           `yaml:"min_payload"`
	MaxPayload   int           `yaml:"max_payload"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

type TraceConfig struct {
	MaxHops int           `yaml:"max_hops"`
	Timeout time.Duration `yaml:"timeout"`
}

type EndpointsConfig struct {
	IPWho       string `yaml:"ipwho"`
	IPAPI       string `yaml:"ipapi"`
	PublicIP    string `yaml:"public_ip"`
	TorExitList string `yaml:"tor_exit_list"`
}

type GeoIPConfig struct {
	CityDB string `yaml:"city_db"`
	ASNDB  string `yaml:"asn_db"`
}

type Config struct {
	// Privileged sends echo probes on a raw socket instead of an
	// unprivileged datagram socket.
	Privileged bool `yaml:"privileged"`

	Ping      ProbeConfig     `yaml:"ping"`
	Jitter    ProbeConfig     `yaml:"jitter"`
	MSS       MSSConfig       `yaml:"mss"`
	MTU       MTUConfig       `yaml:"mtu"`
	Trace     TraceConfig     `yaml:"trace"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
	GeoIP     GeoIPConfig     `yaml:"geoip"`

	MetricsTextfile string `yaml:"metrics_textfile"`
}

// Load builds a Config from the optional YAML file at path, then overlays
// the environment (after loading .env when present) and applies defaults.
// Command line flags are applied by the caller on top of the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set and
// non-empty.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvGeoIPCityDB, &c.GeoIP.CityDB)
	set(EnvGeoIPASNDB, &c.GeoIP.ASNDB)
	set(EnvTorExitListURL, &c.Endpoints.TorExitList)
	set(EnvMetricsTextfile, &c.MetricsTextfile)
}

func (c *Config) Validate() error {
	if c.Ping.Count < 0 || c.Ping.Timeout < 0 {
		return errors.New("ping count and timeout must not be negative")
	}
	if c.Ping.Count == 0 {
		c.Ping.Count = latency.DefaultCount
	}
	if c.Ping.Timeout == 0 {
		c.Ping.Timeout = latency.DefaultTimeout
	}

	if c.Jitter.Count < 0 || c.Jitter.Timeout < 0 {
		return errors.New("jitter count and timeout must not be negative")
	}
	if c.Jitter.Count == 0 {
		c.Jitter.Count = jitter.DefaultCount
	}
	if c.Jitter.Timeout == 0 {
		c.Jitter.Timeout = jitter.DefaultTimeout
	}

	if c.MSS.Port < 0 || c.MSS.MinSize < 0 || c.MSS.MaxSize < 0 || c.MSS.ProbeTimeout < 0 || c.MSS.ProbeDelay < 0 {
		return errors.New("mss settings must not be negative")
	}
	if c.MSS.Port == 0 {
		c.MSS.Port = mss.DefaultPort
	}
	if c.MSS.Port > 65535 {
		return fmt.Errorf("mss port %d out of range", c.MSS.Port)
	}
	if c.MSS.MinSize == 0 {
		c.MSS.MinSize = mss.DefaultMinSize
	}
	if c.MSS.MaxSize == 0 {
		c.MSS.MaxSize = mss.DefaultMaxSize
	}
	if c.MSS.MinSize > c.MSS.MaxSize {
		return fmt.Errorf("mss min size %d exceeds max size %d", c.MSS.MinSize, c.MSS.MaxSize)
	}
	if c.MSS.ProbeTimeout == 0 {
		c.MSS.ProbeTimeout = mss.DefaultProbeTimeout
	}
	if c.MSS.ProbeDelay == 0 {
		c.MSS.ProbeDelay = mss.DefaultProbeDelay
	}

	if c.MTU.MinPayload < 0 || c.MTU.MaxPayload < 0 || c.MTU.ProbeTimeout < 0 {
		return errors.New("mtu settings must not be negative")
	}
	if c.MTU.MinPayload == 0 {
		c.MTU.MinPayload = mtu.DefaultMinPayload
	}
	if c.MTU.MaxPayload == 0 {
		c.MTU.MaxPayload = mtu.DefaultMaxPayload
	}
	if c.MTU.MinPayload > c.MTU.MaxPayload {
		return fmt.Errorf("mtu min payload %d exceeds max payload %d", c.MTU.MinPayload, c.MTU.MaxPayload)
	}
	if c.MTU.ProbeTimeout == 0 {
		c.MTU.ProbeTimeout = mtu.DefaultProbeTimeout
	}

	if c.Trace.MaxHops < 0 || c.Trace.Timeout < 0 {
		return errors.New("trace max hops and timeout must not be negative")
	}
	if c.Trace.MaxHops == 0 {
		c.Trace.MaxHops = trace.DefaultMaxHops
	}
	if c.Trace.Timeout == 0 {
		c.Trace.Timeout = trace.DefaultTimeout
	}

	if c.Endpoints.IPWho == "" {
		c.Endpoints.IPWho = geoip.DefaultIPWhoURL
	}
	if c.Endpoints.IPAPI == "" {
		c.Endpoints.IPAPI = geoip.DefaultIPAPIURL
	}
	if c.Endpoints.PublicIP == "" {
		c.Endpoints.PublicIP = geoip.DefaultPublicIPURL
	}
	if c.Endpoints.TorExitList == "" {
		c.Endpoints.TorExitList = anonymity.DefaultExitListURL
	}
	return nil
}
