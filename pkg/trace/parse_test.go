package trace

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/pathscope/pkg/fixtures"
)

func TestTrace_ParseLines(t *testing.T) {
	t.Parallel()

	lines := []string{
		" 1  _gateway (192.168.1.1)  0.512 ms  0.480 ms  0.455 ms",
		" 2  * * *",
		" 3  100.64.0.1 (100.64.0.1)  8.1 ms  7.9 ms",
		" 4  ae1.cr1.example.net (203.0.114.9)  12 ms *  11.5ms",
		" 5  dns.google (8.8.8.8)  14.201 ms",
		" 6  10.0.0.1",
	}

	got := ParseLines(lines)
	want := []Hop{
		{Index: 1, IP: "192.168.1.1", Private: true, RTTMS: []float64{0.512, 0.480, 0.455}},
		{Index: 3, IP: "100.64.0.1", Private: false, RTTMS: []float64{8.1, 7.9}},
		{Index: 4, IP: "203.0.114.9", Private: false, RTTMS: []float64{12, 11.5}},
		{Index: 5, IP: "8.8.8.8", Private: false, RTTMS: []float64{14.201}},
		{Index: 6, IP: "10.0.0.1", Private: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseLines mismatch (-want +got):\n%s", diff)
	}
}

func TestTrace_ParseLines_windows_tracert(t *testing.T) {
	t.Parallel()

	lines := []string{
		"",
		"Tracing route to dns.google [8.8.8.8]",
		"over a maximum of 30 hops:",
		"",
		"  1    <1 ms    <1 ms    <1 ms  192.168.0.1",
		"  2     9 ms     8 ms     9 ms  72.14.215.85",
		"",
		"Trace complete.",
	}

	got := ParseLines(lines)
	require.Len(t, got, 3)

	// The banner names the target and counts as a hop, as it would from the
	// raw facility output.
	require.Equal(t, 2, got[0].Index)
	require.Equal(t, "8.8.8.8", got[0].IP)
	require.Empty(t, got[0].RTTMS)

	require.Equal(t, 5, got[1].Index)
	require.Equal(t, "192.168.0.1", got[1].IP)
	require.Equal(t, []float64{1, 1, 1}, got[1].RTTMS)

	require.Equal(t, 6, got[2].Index)
	require.Equal(t, []float64{9, 8, 9}, got[2].RTTMS)
}

func TestTrace_ParseLines_no_address_yields_no_hop(t *testing.T) {
	t.Parallel()

	require.Empty(t, ParseLines([]string{" 1  * * *", "", "garbage 12 ms"}))
	require.Empty(t, ParseLines(nil))
}

func TestTrace_ParseLines_first_address_wins(t *testing.T) {
	t.Parallel()

	got := ParseLines([]string{" 7  198.51.100.1  1.0 ms 203.0.114.1  2.0 ms"})
	require.Len(t, got, 1)
	require.Equal(t, "198.51.100.1", got[0].IP)
	require.True(t, got[0].Private)
	require.Equal(t, []float64{1.0, 2.0}, got[0].RTTMS)
}

func TestTrace_ParseLines_rendered_path(t *testing.T) {
	t.Parallel()

	lines, err := fixtures.RenderLines(filepath.Join("testdata", "traceroute_linux.tmpl"), map[string]int{"Hops": 30})
	require.NoError(t, err)

	got := ParseLines(lines)
	require.Len(t, got, 30)
	for i, hop := range got {
		require.Equal(t, i+1, hop.Index)
		require.Equal(t, fmt.Sprintf("203.0.114.%d", i+1), hop.IP)
		require.Len(t, hop.RTTMS, 3)
		require.InDelta(t, float64(i+1)*1.5+0.125, hop.RTTMS[0], 1e-9)
	}
}
