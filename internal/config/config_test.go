package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/pathscope/pkg/anonymity"
	"github.com/malbeclabs/pathscope/pkg/geoip"
	"github.com/malbeclabs/pathscope/pkg/jitter"
	"github.com/malbeclabs/pathscope/pkg/latency"
	"github.com/malbeclabs/pathscope/pkg/mss"
	"github.com/malbeclabs/pathscope/pkg/mtu"
	"github.com/malbeclabs/pathscope/pkg/trace"
)

func TestConfig_Validate_defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	require.Equal(t, latency.DefaultCount, cfg.Ping.Count)
	require.Equal(t, latency.DefaultTimeout, cfg.Ping.Timeout)
	require.Equal(t, jitter.DefaultCount, cfg.Jitter.Count)
	require.Equal(t, mss.DefaultPort, cfg.MSS.Port)
	require.Equal(t, mss.DefaultMinSize, cfg.MSS.MinSize)
	require.Equal(t, mss.DefaultMaxSize, cfg.MSS.MaxSize)
	require.Equal(t, mss.DefaultProbeDelay, cfg.MSS.ProbeDelay)
	require.Equal(t, mtu.DefaultMinPayload, cfg.MTU.MinPayload)
	require.Equal(t, mtu.DefaultMaxPayload, cfg.MTU.MaxPayload)
	require.Equal(t, mtu.DefaultProbeTimeout, cfg.MTU.ProbeTimeout)
	require.Equal(t, trace.DefaultMaxHops, cfg.Trace.MaxHops)
	require.Equal(t, trace.DefaultTimeout, cfg.Trace.Timeout)
	require.Equal(t, geoip.DefaultIPWhoURL, cfg.Endpoints.IPWho)
	require.Equal(t, geoip.DefaultIPAPIURL, cfg.Endpoints.IPAPI)
	require.Equal(t, geoip.DefaultPublicIPURL, cfg.Endpoints.PublicIP)
	require.Equal(t, anonymity.DefaultExitListURL, cfg.Endpoints.TorExitList)
}

func TestConfig_Validate_rejects(t *testing.T) {
	t.Parallel()

	for name, cfg := range map[string]*Config{
		"negative ping count":  {Ping: ProbeConfig{Count: -1}},
		"negative jitter":      {Jitter: ProbeConfig{Timeout: -time.Second}},
		"negative mss delay":   {MSS: MSSConfig{ProbeDelay: -1}},
		"port out of range":    {MSS: MSSConfig{Port: 70000}},
		"inverted mss range":   {MSS: MSSConfig{MinSize: 1400, MaxSize: 1300}},
		"negative hops":        {Trace: TraceConfig{MaxHops: -3}},
		"negative mtu timeout": {MTU: MTUConfig{ProbeTimeout: -time.Second}},
		"inverted mtu range":   {MTU: MTUConfig{MinPayload: 1472, MaxPayload: 1200}},
	} {
		require.Error(t, cfg.Validate(), name)
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvGeoIPCityDB:     "/var/lib/GeoLite2-City.mmdb",
		EnvGeoIPASNDB:      "",
		EnvTorExitListURL:  "https://mirror.example/exits",
		EnvMetricsTextfile: "/var/lib/node_exporter/pathscope.prom",
	}
	cfg := &Config{GeoIP: GeoIPConfig{ASNDB: "/etc/asn.mmdb"}}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	require.Equal(t, "/var/lib/GeoLite2-City.mmdb", cfg.GeoIP.CityDB)
	require.Equal(t, "/etc/asn.mmdb", cfg.GeoIP.ASNDB)
	require.Equal(t, "https://mirror.example/exits", cfg.Endpoints.TorExitList)
	require.Equal(t, "/var/lib/node_exporter/pathscope.prom", cfg.MetricsTextfile)
}

func TestConfig_Load_yaml_then_env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
privileged: true
ping:
  count: 10
  timeout: 2s
mss:
  port: 80
  probe_delay: 100ms
trace:
  max_hops: 20
geoip:
  city_db: /from/yaml.mmdb
endpoints:
  tor_exit_list: https://yaml.example/exits
`), 0o644))
	t.Setenv(EnvTorExitListURL, "https://env.example/exits")
	t.Setenv(EnvGeoIPCityDB, "")
	t.Chdir(t.TempDir())

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Privileged)
	require.Equal(t, 10, cfg.Ping.Count)
	require.Equal(t, 2*time.Second, cfg.Ping.Timeout)
	require.Equal(t, 80, cfg.MSS.Port)
	require.Equal(t, 100*time.Millisecond, cfg.MSS.ProbeDelay)
	require.Equal(t, 20, cfg.Trace.MaxHops)
	require.Equal(t, "/from/yaml.mmdb", cfg.GeoIP.CityDB)
	require.Equal(t, "https://env.example/exits", cfg.Endpoints.TorExitList)
	require.Equal(t, jitter.DefaultCount, cfg.Jitter.Count)
}

func TestConfig_Load_dotenv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvMetricsTextfile+"=/tmp/dotenv.prom\n"), 0o644))
	t.Chdir(dir)
	t.Setenv(EnvMetricsTextfile, "")
	require.NoError(t, os.Unsetenv(EnvMetricsTextfile))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/dotenv.prom", cfg.MetricsTextfile)
}

func TestConfig_Load_errors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ping: [1, 2"), 0o644))
	_, err = Load(bad)
	require.ErrorContains(t, err, "failed to parse config file")

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("trace:\n  max_hops: -1\n"), 0o644))
	_, err = Load(invalid)
	require.Error(t, err)
}
