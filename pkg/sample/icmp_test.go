package sample

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSample_NewICMPCollector_validation(t *testing.T) {
	t.Parallel()

	_, err := NewICMPCollector(nil, nil)
	require.Error(t, err)

	_, err = NewICMPCollector(logger, &ICMPCollectorConfig{Size: -1})
	require.Error(t, err)

	c, err := NewICMPCollector(logger, nil)
	require.NoError(t, err)
	require.Equal(t, defaultICMPSize, c.cfg.Size)
}

func TestSample_ICMPCollector_unresolvable_host_is_lost(t *testing.T) {
	t.Parallel()

	c, err := NewICMPCollector(logger, nil)
	require.NoError(t, err)

	s := c.Probe(context.Background(), "host.invalid", 200*time.Millisecond)
	require.False(t, s.OK)
	require.Zero(t, s.RTT)
}
