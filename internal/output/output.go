package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/malbeclabs/pathscope/pkg/anonymity"
	"github.com/malbeclabs/pathscope/pkg/bandwidth"
	"github.com/malbeclabs/pathscope/pkg/geoip"
	"github.com/malbeclabs/pathscope/pkg/jitter"
	"github.com/malbeclabs/pathscope/pkg/latency"
	"github.com/malbeclabs/pathscope/pkg/mss"
	"github.com/malbeclabs/pathscope/pkg/mtu"
	"github.com/malbeclabs/pathscope/pkg/trace"
)

// Result collects every report produced for one target. Modules that did
// not run are nil.
type Result struct {
	Target     string                `json:"target"`
	Geo        *geoip.Location       `json:"geo,omitempty"`
	Ping       *latency.Report       `json:"ping,omitempty"`
	Jitter     *jitter.Report        `json:"jitter,omitempty"`
	MSS        *mss.Report           `json:"mss,omitempty"`
	MTU        *mtu.Report           `json:"mtu,omitempty"`
	Bandwidth  *bandwidth.Report     `json:"bandwidth,omitempty"`
	Traceroute *trace.Report         `json:"traceroute,omitempty"`
	Ingress    *trace.IngressReport  `json:"ingress,omitempty"`
	Anonymity  *anonymity.Assessment `json:"anonymity,omitempty"`

	// Stopped explains why later modules were skipped.
	Stopped string `json:"stopped,omitempty"`
}

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "", "normal":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or csv)", s)
	}
}

// FormatFromPath picks a format from a file extension, defaulting to text.
func FormatFromPath(path string) Format {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return FormatText
	}
	f, err := ParseFormat(path[i+1:])
	if err != nil {
		return FormatText
	}
	return f
}

func Write(w io.Writer, format Format, results []*Result) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatText, "":
		return WriteText(w, results)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func WriteJSON(w io.Writer, results []*Result) error {
	if results == nil {
		results = []*Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
