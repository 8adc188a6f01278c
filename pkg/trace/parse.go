package trace

import (
	"regexp"
	"strconv"

	"github.com/malbeclabs/pathscope/internal/netutil"
)

var (
	ipPattern  = regexp.MustCompile(`(\d{1,3}(?:\.\d{1,3}){3})`)
	rttPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ms`)
)

// ParseLines turns traceroute output into hops. The hop index is the 1-based
// line position; lines without an IPv4 token yield no hop but still consume
// an index. Location and ASN are left for the caller to fill in.
func ParseLines(lines []string) []Hop {
	var hops []Hop
	for i, line := range lines {
		ip := ipPattern.FindString(line)
		if ip == "" {
			continue
		}
		hop := Hop{
			Index:   i + 1,
			IP:      ip,
			Private: netutil.IsPrivate(ip),
		}
		for _, m := range rttPattern.FindAllStringSubmatch(line, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			hop.RTTMS = append(hop.RTTMS, v)
		}
		hops = append(hops, hop)
	}
	return hops
}
