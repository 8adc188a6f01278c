package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/malbeclabs/pathscope/pkg/anonymity"
	"github.com/malbeclabs/pathscope/pkg/bandwidth"
	"github.com/malbeclabs/pathscope/pkg/geoip"
	"github.com/malbeclabs/pathscope/pkg/jitter"
	"github.com/malbeclabs/pathscope/pkg/latency"
	"github.com/malbeclabs/pathscope/pkg/mss"
	"github.com/malbeclabs/pathscope/pkg/mtu"
	"github.com/malbeclabs/pathscope/pkg/trace"
)

const na = "N/A"

// WriteText renders each result as a series of titled tables.
func WriteText(w io.Writer, results []*Result) error {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Target: %s\n", r.Target)
		if r.Geo != nil {
			section(w, "GEOLOCATION", geoRows(r.Geo))
		}
		if r.Ping != nil {
			section(w, "PING", pingRows(r.Ping))
		}
		if r.Jitter != nil {
			section(w, "JITTER", jitterRows(r.Jitter))
		}
		if r.MSS != nil {
			section(w, "MSS", mssRows(r.MSS))
		}
		if r.MTU != nil {
			section(w, "PATH MTU", mtuRows(r.MTU))
		}
		if r.Bandwidth != nil {
			section(w, "BANDWIDTH", bandwidthRows(r.Bandwidth))
		}
		if r.Traceroute != nil {
			writeTraceroute(w, r.Traceroute)
		}
		if r.Ingress != nil {
			section(w, "INGRESS", ingressRows(r.Ingress))
		}
		if r.Anonymity != nil {
			section(w, "ANONYMITY", anonymityRows(r.Anonymity))
		}
		if r.Stopped != "" {
			fmt.Fprintf(w, "\nStopped: %s\n", r.Stopped)
		}
	}
	return nil
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(true)
	return table
}

func section(w io.Writer, title string, rows [][]string) {
	fmt.Fprintf(w, "\n[ %s ]\n", title)
	table := newTable(w)
	table.AppendBulk(rows)
	table.Render()
}

func orNA(s string) string {
	if s == "" {
		return na
	}
	return s
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return na
	}
	return fmtFloat(*v)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "No"
}

func geoRows(g *geoip.Location) [][]string {
	if g.Private {
		return [][]string{
			{"IP", g.IP},
			{"Note", "Private / non-routable address"},
		}
	}
	asn := na
	if g.ASN != 0 {
		asn = fmt.Sprintf("AS%d", g.ASN)
	}
	rows := [][]string{
		{"IP", g.IP},
		{"ASN", asn},
		{"ISP / Org", orNA(g.Org)},
		{"Domain", orNA(g.Domain)},
		{"Continent", fmt.Sprintf("%s (%s)", orNA(g.Continent), orNA(g.ContinentCode))},
		{"Country", fmt.Sprintf("%s (%s)", orNA(g.Country), orNA(g.CountryCode))},
		{"Region", orNA(g.Region)},
		{"City", orNA(g.City)},
		{"Postal Code", g.Postal},
		{"Latitude", fmtFloatPtr(g.Latitude)},
		{"Longitude", fmtFloatPtr(g.Longitude)},
		{"Capital", orNA(g.Capital)},
		{"Borders", orNA(g.Borders)},
		{"Timezone", orNA(g.Timezone)},
	}
	if z := g.Zone; z != nil {
		rows = append(rows,
			[]string{"Abbreviation", orNA(z.Abbr)},
			[]string{"UTC Offset", orNA(z.UTCOffset)},
			[]string{"DST Active", yesNo(z.DST)},
			[]string{"Local Time", orNA(z.LocalTime)},
		)
	}
	return rows
}

func pingRows(r *latency.Report) [][]string {
	rows := [][]string{
		{"Reachable", yesNo(r.Reachable)},
		{"Packets", fmt.Sprintf("%d sent, %d received", r.Sent, r.Received)},
		{"Packet Loss", fmtFloat(r.PacketLossPercent) + "%"},
	}
	if r.RTT != nil {
		rows = append(rows,
			[]string{"RTT min/avg/median/max", fmt.Sprintf("%s / %s / %s / %s ms",
				fmtFloat(r.RTT.Min), fmtFloat(r.RTT.Avg), fmtFloat(r.RTT.Median), fmtFloat(r.RTT.Max))},
		)
	}
	if r.Distance != nil {
		rows = append(rows, []string{"Distance", fmt.Sprintf("~%d km (%d-%d km)",
			r.Distance.Estimated, r.Distance.Min, r.Distance.Max)})
	}
	if r.Classification != "" {
		rows = append(rows, []string{"Classification", string(r.Classification)})
	}
	return rows
}

func jitterRows(r *jitter.Report) [][]string {
	rows := [][]string{
		{"Reachable", yesNo(r.Reachable)},
		{"Packets", fmt.Sprintf("%d sent, %d received", r.Sent, r.Received)},
		{"Packet Loss", fmtFloat(r.PacketLossPercent) + "%"},
	}
	if r.RTT != nil {
		rows = append(rows,
			[]string{"RTT min/median/max", fmt.Sprintf("%s / %s / %s ms",
				fmtFloat(r.RTT.Min), fmtFloat(r.RTT.Median), fmtFloat(r.RTT.Max))},
			[]string{"Jitter", fmtFloat(r.JitterMS) + " ms"},
			[]string{"Stability", string(r.Stability)},
		)
	}
	return rows
}

func mssRows(r *mss.Report) [][]string {
	rows := [][]string{
		{"Method", string(r.Method)},
		{"MSS", strconv.Itoa(r.MSS) + " bytes"},
		{"Confidence", strings.ToUpper(string(r.Confidence))},
	}
	if r.Reason != "" {
		rows = append(rows, []string{"Reason", r.Reason})
	}
	return rows
}

func mtuRows(r *mtu.Report) [][]string {
	if !r.Reachable {
		return [][]string{
			{"Reachable", "No"},
			{"Reason", r.Reason},
		}
	}
	return [][]string{
		{"Path MTU", strconv.Itoa(r.MTU) + " bytes"},
		{"Payload Size", strconv.Itoa(r.PayloadSize) + " bytes"},
		{"Inference", strings.ToUpper(string(r.PathType))},
	}
}

func bandwidthRows(r *bandwidth.Report) [][]string {
	if !r.Available {
		return [][]string{
			{"Available", "No"},
			{"Reason", r.Reason},
		}
	}
	return [][]string{
		{"Estimated", fmtFloatPtr(r.EstimatedMbps) + " Mbps"},
		{"RTT", fmtFloatPtr(r.RTTMS) + " ms"},
		{"Packet Loss", fmtFloatPtr(r.PacketLossPercent) + "%"},
		{"Limiting Factor", r.LimitingFactor},
		{"Model", r.Model},
	}
}

func writeTraceroute(w io.Writer, r *trace.Report) {
	fmt.Fprintf(w, "\n[ TRACEROUTE ]\n")
	if !r.OK() {
		fmt.Fprintf(w, "Traceroute error: %s\n", r.Error)
		return
	}
	table := newTable(w)
	table.SetHeader([]string{"Hop", "IP", "Type", "RTT", "ASN", "Location"})
	for _, h := range r.Hops {
		kind := "PUBLIC"
		if h.Private {
			kind = "PRIVATE"
		}
		rtt := "*"
		if len(h.RTTMS) > 0 {
			best := h.RTTMS[0]
			for _, v := range h.RTTMS[1:] {
				best = min(best, v)
			}
			rtt = fmt.Sprintf("%.1f ms", best)
		}
		asn := ""
		if h.ASN != 0 {
			asn = fmt.Sprintf("AS%d", h.ASN)
		}
		loc := ""
		if h.Latitude != nil && h.Longitude != nil {
			loc = fmt.Sprintf("%.3f, %.3f", *h.Latitude, *h.Longitude)
		}
		table.Append([]string{strconv.Itoa(h.Index), h.IP, kind, rtt, asn, loc})
	}
	table.Render()
}

func ingressRows(r *trace.IngressReport) [][]string {
	if !r.Available {
		return [][]string{
			{"Available", "No"},
			{"Reason", r.Reason},
		}
	}
	return [][]string{
		{"Hop", strconv.Itoa(*r.IngressHop)},
		{"IP", r.IP},
		{"ASN", fmt.Sprintf("AS%d", *r.ASN)},
		{"Coordinates", fmt.Sprintf("%.3f, %.3f", *r.Latitude, *r.Longitude)},
	}
}

func anonymityRows(a *anonymity.Assessment) [][]string {
	org := a.Org
	if org == "" {
		org = a.ISP
	}
	return [][]string{
		{"IP", a.IP},
		{"Hostname", orNA(a.Hostname)},
		{"Org / ISP", orNA(org)},
		{"Tor Exit Node", yesNo(a.TorExitNode)},
		{"VPN / Proxy Suspected", yesNo(a.VPNSuspected)},
		{"Confidence", strings.ToUpper(string(a.Confidence))},
	}
}
