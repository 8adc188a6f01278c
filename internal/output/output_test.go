package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/pathscope/pkg/anonymity"
	"github.com/malbeclabs/pathscope/pkg/bandwidth"
	"github.com/malbeclabs/pathscope/pkg/geoip"
	"github.com/malbeclabs/pathscope/pkg/latency"
	"github.com/malbeclabs/pathscope/pkg/mss"
	"github.com/malbeclabs/pathscope/pkg/mtu"
	"github.com/malbeclabs/pathscope/pkg/sample"
	"github.com/malbeclabs/pathscope/pkg/trace"
)

func f64(v float64) *float64 { return &v }

func fullResult() *Result {
	ping := latency.Aggregate([]sample.Sample{
		sample.Received(10_000_000), sample.Received(12_000_000), sample.Lost(),
	})
	hop, asn := 3, uint(15169)
	return &Result{
		Target: "8.8.8.8",
		Geo: &geoip.Location{
			IP: "8.8.8.8", Org: "Google LLC", ASN: 15169, Country: "United States", CountryCode: "US",
			Continent: "North America", ContinentCode: "NA", Capital: "Washington D.C.", Borders: "CA,MX",
			Latitude: f64(37.386), Longitude: f64(-122.0838), Timezone: "America/Los_Angeles",
			Zone: &geoip.Zone{Abbr: "PDT", UTCOffset: "-07:00", DST: true, LocalTime: "2026-10-19T09:12:44-07:00"},
			Raw: map[string]any{
				"continent": "North America",
				"timezone":  map[string]any{"abbr": "PDT", "is_dst": true},
			},
		},
		Ping:      ping,
		MSS:       &mss.Report{Reachable: true, Method: mss.MethodEstimated, MSS: 1460, Confidence: mss.ConfidenceMedium, Reason: mss.ReasonStandardEthernet},
		MTU:       &mtu.Report{Reachable: true, MTU: 1500, PayloadSize: 1472, PathType: mtu.PathStandard},
		Bandwidth: bandwidth.Estimate(ping, 1460),
		Traceroute: &trace.Report{Target: "8.8.8.8", Hops: []trace.Hop{
			{Index: 1, IP: "192.168.1.1", Private: true, RTTMS: []float64{0.6, 0.4}},
			{Index: 3, IP: "8.8.8.8", RTTMS: []float64{11.2}, ASN: 15169, Latitude: f64(37.4), Longitude: f64(-122.1)},
		}},
		Ingress: &trace.IngressReport{
			Available: true, IngressHop: &hop, IP: "8.8.8.8", ASN: &asn, Latitude: f64(37.4), Longitude: f64(-122.1),
		},
		Anonymity: &anonymity.Assessment{IP: "8.8.8.8", VPNSuspected: true, Confidence: anonymity.ConfidenceHigh, Org: "Google LLC"},
	}
}

func TestOutput_ParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"json": FormatJSON, "CSV": FormatCSV, "text": FormatText, "normal": FormatText, "": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)

	require.Equal(t, FormatJSON, FormatFromPath("logs/out.json"))
	require.Equal(t, FormatCSV, FormatFromPath("out.CSV"))
	require.Equal(t, FormatText, FormatFromPath("out.txt"))
	require.Equal(t, FormatText, FormatFromPath("out"))
}

func TestOutput_WriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, []*Result{fullResult(), {Target: "10.0.0.1", Stopped: "host unreachable"}}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	ping := decoded[0]["ping"].(map[string]any)
	require.Equal(t, 11.0, ping["rtt_ms"].(map[string]any)["median"])
	require.Equal(t, 33.3, ping["packet_loss_percent"])
	require.Equal(t, "estimated", decoded[0]["mss"].(map[string]any)["method"])

	geo := decoded[0]["geo"].(map[string]any)
	require.Equal(t, "North America", geo["continent"])
	require.Equal(t, "PDT", geo["zone"].(map[string]any)["abbr"])
	raw := geo["raw"].(map[string]any)
	require.Equal(t, "North America", raw["continent"])
	require.Equal(t, true, raw["timezone"].(map[string]any)["is_dst"])

	_, hasPing := decoded[1]["ping"]
	require.False(t, hasPing)
	require.Equal(t, "host unreachable", decoded[1]["stopped"])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	require.Equal(t, "[]\n", buf.String())
}

func TestOutput_WriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, []*Result{fullResult(), {Target: "example.com", Stopped: "host unreachable"}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	require.True(t, sort.StringsAreSorted(header))
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q missing from %v", name, header)
		return -1
	}

	require.Equal(t, "11", records[1][col("ping.rtt_ms.median")])
	require.Equal(t, "1460", records[1][col("mss.mss")])
	require.Equal(t, "1500", records[1][col("mtu.mtu")])
	require.Equal(t, "true", records[1][col("anonymity.vpn")])
	require.Equal(t, "AS15169", "AS"+records[1][col("geo.asn")])
	require.True(t, strings.HasPrefix(records[1][col("traceroute.hops")], `[{"hop":1,`))
	require.Equal(t, "North America", records[1][col("geo.raw.continent")])
	require.Equal(t, "PDT", records[1][col("geo.raw.timezone.abbr")])
	require.Equal(t, "-07:00", records[1][col("geo.zone.utc")])

	require.Equal(t, "example.com", records[2][col("target")])
	require.Equal(t, "", records[2][col("ping.rtt_ms.median")])
	require.Equal(t, "host unreachable", records[2][col("stopped")])

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, nil))
	require.Empty(t, buf.String())
}

func TestOutput_Flatten(t *testing.T) {
	t.Parallel()

	got, err := Flatten(&Result{Target: "x", Ping: &latency.Report{Sent: 5, PacketLossPercent: 100}})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"target":                   "x",
		"ping.reachable":           "false",
		"ping.sent":                "5",
		"ping.received":            "0",
		"ping.packet_loss_percent": "100",
	}, got)
}

func TestOutput_WriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, []*Result{fullResult()}))
	out := buf.String()

	for _, want := range []string{
		"Target: 8.8.8.8",
		"[ GEOLOCATION ]", "AS15169", "North America (NA)", "Washington D.C.", "CA,MX",
		"America/Los_Angeles", "PDT", "-07:00", "2026-10-19T09:12:44-07:00",
		"[ PING ]", "10 / 11 / 11 / 12 ms", "33.3%",
		"[ MSS ]", "standard_ethernet_assumed",
		"[ PATH MTU ]", "1500 bytes", "1472 bytes", "STANDARD",
		"[ BANDWIDTH ]", "packet_loss",
		"[ TRACEROUTE ]", "PRIVATE", "0.4 ms", "37.400, -122.100",
		"[ INGRESS ]",
		"[ ANONYMITY ]", "VPN / Proxy Suspected", "HIGH",
	} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "[ JITTER ]")
}

func TestOutput_WriteText_failures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, []*Result{{
		Target:     "example.com",
		Geo:        &geoip.Location{IP: "10.0.0.5", Private: true},
		Traceroute: &trace.Report{Target: "example.com", Error: trace.ErrFacilityNotFound.Error()},
		Ingress:    &trace.IngressReport{Reason: trace.ReasonMissingData},
		Bandwidth:  &bandwidth.Report{Reason: bandwidth.ReasonNoPingData},
		MTU:        &mtu.Report{Reason: mtu.ReasonNoReply},
		Stopped:    "host unreachable",
	}}))
	out := buf.String()
	require.Contains(t, out, "Private / non-routable address")
	require.Contains(t, out, "Traceroute error: Traceroute command not found")
	require.Contains(t, out, "missing_data")
	require.Contains(t, out, "no_ping_data")
	require.Contains(t, out, "no_reply")
	require.Contains(t, out, "Stopped: host unreachable")
}
