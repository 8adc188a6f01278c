package mtu

import (
	"context"
	"errors"
	"testing"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/stretchr/testify/require"
)

func thresholdProber(limit int, calls *[]int) Prober {
	return ProberFunc(func(ctx context.Context, host string, payload int) (bool, error) {
		if calls != nil {
			*calls = append(*calls, payload)
		}
		return payload <= limit, nil
	})
}

func newTestDiscoverer(t *testing.T, prober Prober) *Discoverer {
	t.Helper()
	d, err := NewDiscoverer(&DiscovererConfig{Logger: logger, Prober: prober})
	require.NoError(t, err)
	return d
}

func TestMTU_DiscovererConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := &DiscovererConfig{Logger: logger, Prober: thresholdProber(0, nil)}
	require.NoError(t, cfg.Validate())
	require.Equal(t, DefaultMinPayload, cfg.MinPayload)
	require.Equal(t, DefaultMaxPayload, cfg.MaxPayload)

	_, err := NewDiscoverer(&DiscovererConfig{Prober: thresholdProber(0, nil)})
	require.ErrorContains(t, err, "logger is required")
	_, err = NewDiscoverer(&DiscovererConfig{Logger: logger})
	require.ErrorContains(t, err, "prober is required")
	_, err = NewDiscoverer(&DiscovererConfig{Logger: logger, Prober: thresholdProber(0, nil), MinPayload: 1400, MaxPayload: 1300})
	require.ErrorContains(t, err, "invalid payload range")
}

func TestMTU_Discover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		limit    int
		mtu      int
		pathType PathType
	}{
		{"ethernet", 1472, 1500, PathStandard},
		{"pppoe", 1464, 1492, PathLightTunnel},
		{"light tunnel floor", 1372, 1400, PathLightTunnel},
		{"wireguard", 1392, 1420, PathLightTunnel},
		{"heavy tunnel", 1250, 1278, PathHeavyTunnel},
		{"minimum only", 1200, 1228, PathHeavyTunnel},
		{"above range", 8972, 1500, PathStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls []int
			got := newTestDiscoverer(t, thresholdProber(tt.limit, &calls)).Discover(context.Background(), "example.com")
			require.Equal(t, &Report{
				Reachable:   true,
				MTU:         tt.mtu,
				PayloadSize: tt.mtu - HeaderBytes,
				PathType:    tt.pathType,
			}, got)
			require.Equal(t, DefaultMinPayload, calls[0])
			require.LessOrEqual(t, len(calls), 11)
		})
	}
}

func TestMTU_Discover_no_reply_is_unreachable(t *testing.T) {
	t.Parallel()

	var calls []int
	got := newTestDiscoverer(t, thresholdProber(1000, &calls)).Discover(context.Background(), "example.com")
	require.Equal(t, &Report{Reachable: false, Reason: ReasonNoReply}, got)
	require.Equal(t, []int{DefaultMinPayload}, calls)
}

func TestMTU_Discover_send_error_is_unavailable(t *testing.T) {
	t.Parallel()

	failing := ProberFunc(func(context.Context, string, int) (bool, error) {
		return false, probing.ErrDFNotSupported
	})
	got := newTestDiscoverer(t, failing).Discover(context.Background(), "example.com")
	require.Equal(t, &Report{Reachable: false, Reason: ReasonUnavailable}, got)

	n := 0
	flaky := ProberFunc(func(context.Context, string, int) (bool, error) {
		n++
		if n == 3 {
			return false, errors.New("socket closed")
		}
		return true, nil
	})
	got = newTestDiscoverer(t, flaky).Discover(context.Background(), "example.com")
	require.False(t, got.Reachable)
	require.Equal(t, ReasonUnavailable, got.Reason)
	require.Equal(t, 3, n)
}

func TestMTU_Classify(t *testing.T) {
	t.Parallel()

	require.Equal(t, PathStandard, Classify(1500))
	require.Equal(t, PathStandard, Classify(9000))
	require.Equal(t, PathLightTunnel, Classify(1499))
	require.Equal(t, PathLightTunnel, Classify(1400))
	require.Equal(t, PathHeavyTunnel, Classify(1399))
	require.Equal(t, PathHeavyTunnel, Classify(1228))
}
