package trace

import (
	"context"

	"github.com/malbeclabs/pathscope/pkg/geoip"
)

const (
	ReasonMissingData        = "missing_data"
	ReasonGeoLookupFailed    = "geo_lookup_failed"
	ReasonIngressNotDetected = "ingress_not_detected"
)

type IngressReport struct {
	Available  bool     `json:"available"`
	IngressHop *int     `json:"ingress_hop,omitempty"`
	IP         string   `json:"ip,omitempty"`
	ASN        *uint    `json:"asn,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// FindIngress returns the first public hop at which the path enters
// targetASN. A hop with unknown ASN resets the previous AS, so a transition
// directly after an unknown hop counts as an entry. A nil or zero ASN is
// treated as missing.
func FindIngress(ctx context.Context, report *Report, targetASN *uint, locator geoip.HopLocator) *IngressReport {
	if report == nil || !report.OK() || targetASN == nil || *targetASN == 0 {
		return &IngressReport{Reason: ReasonMissingData}
	}
	target := *targetASN

	var previous uint
	for _, hop := range report.Hops {
		if hop.Private {
			continue
		}
		if hop.ASN == 0 {
			previous = 0
			continue
		}
		if hop.ASN == target && hop.ASN != previous {
			var coords *geoip.Coordinates
			if locator != nil {
				coords = locator.HopLocation(ctx, hop.IP)
			}
			if coords == nil {
				return &IngressReport{Reason: ReasonGeoLookupFailed}
			}
			index, asn := hop.Index, hop.ASN
			lat, lon := coords.Latitude, coords.Longitude
			return &IngressReport{
				Available:  true,
				IngressHop: &index,
				IP:         hop.IP,
				ASN:        &asn,
				Latitude:   &lat,
				Longitude:  &lon,
			}
		}
		previous = hop.ASN
	}
	return &IngressReport{Reason: ReasonIngressNotDetected}
}
