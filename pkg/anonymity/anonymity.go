package anonymity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/malbeclabs/pathscope/pkg/geoip"
)

type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very high"
)

type Assessment struct {
	IP           string     `json:"ip"`
	TorExitNode  bool       `json:"tor"`
	VPNSuspected bool       `json:"vpn"`
	Confidence   Confidence `json:"confidence"`
	Hostname     string     `json:"hostname,omitempty"`
	Org          string     `json:"org,omitempty"`
	ISP          string     `json:"isp,omitempty"`
	Domain       string     `json:"domain,omitempty"`
	ASN          uint       `json:"asn,omitempty"`
}

type AssessorConfig struct {
	Logger   *slog.Logger
	ExitList *ExitListCache

	// Keywords defaults to the embedded vocabulary.
	Keywords Keywords
}

func (c *AssessorConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.ExitList == nil {
		return errors.New("exit list cache is required")
	}
	if len(c.Keywords) == 0 {
		kw, err := DefaultKeywords()
		if err != nil {
			return err
		}
		c.Keywords = kw
	}
	return nil
}

// Assessor scores how likely a target is to sit behind Tor, a VPN or a
// hosting provider.
type Assessor struct {
	log *slog.Logger
	cfg *AssessorConfig
}

func NewAssessor(cfg *AssessorConfig) (*Assessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Assessor{log: cfg.Logger, cfg: cfg}, nil
}

func (a *Assessor) Assess(ctx context.Context, loc *geoip.Location) *Assessment {
	if loc == nil {
		loc = &geoip.Location{}
	}

	tor := a.cfg.ExitList.Contains(ctx, loc.IP)
	vpn := a.cfg.Keywords.Match(loc.Org) ||
		a.cfg.Keywords.Match(loc.Hostname) ||
		a.cfg.Keywords.Match(loc.ISP) ||
		a.cfg.Keywords.Match(loc.Domain)

	a.log.Debug("anonymity: assessed", "ip", loc.IP, "tor", tor, "vpn", vpn)

	return &Assessment{
		IP:           loc.IP,
		TorExitNode:  tor,
		VPNSuspected: vpn,
		Confidence:   Score(tor, vpn),
		Hostname:     loc.Hostname,
		Org:          loc.Org,
		ISP:          loc.ISP,
		Domain:       loc.Domain,
		ASN:          loc.ASN,
	}
}

// Score labels the combined signals. Tor membership outranks the VPN signal.
func Score(tor, vpn bool) Confidence {
	switch {
	case tor:
		return ConfidenceVeryHigh
	case vpn:
		return ConfidenceHigh
	default:
		return ConfidenceLow
	}
}
