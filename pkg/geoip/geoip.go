package geoip

import (
	"context"
	"net/http"
)

// Location is the geolocation record of a target address. Raw holds the
// provider payload as received.
type Location struct {
	IP            string         `json:"ip"`
	Private       bool           `json:"private,omitempty"`
	Hostname      string         `json:"hostname,omitempty"`
	Org           string         `json:"org,omitempty"`
	ISP           string         `json:"isp,omitempty"`
	Domain        string         `json:"domain,omitempty"`
	ASN           uint           `json:"asn,omitempty"`
	Continent     string         `json:"continent,omitempty"`
	ContinentCode string         `json:"continent_code,omitempty"`
	Country       string         `json:"country,omitempty"`
	CountryCode   string         `json:"country_code,omitempty"`
	Capital       string         `json:"capital,omitempty"`
	Borders       string         `json:"borders,omitempty"`
	Region        string         `json:"region,omitempty"`
	City          string         `json:"city,omitempty"`
	Postal        string         `json:"postal,omitempty"`
	Latitude      *float64       `json:"latitude,omitempty"`
	Longitude     *float64       `json:"longitude,omitempty"`
	Timezone      string         `json:"timezone,omitempty"`
	Zone          *Zone          `json:"zone,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// Zone is the time zone detail reported alongside a location.
type Zone struct {
	Abbr      string `json:"abbr,omitempty"`
	UTCOffset string `json:"utc,omitempty"`
	DST       bool   `json:"is_dst"`
	LocalTime string `json:"current_time,omitempty"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationLookup geolocates a target given as an IP literal or hostname.
// It returns nil when the target cannot be resolved or located.
type LocationLookup interface {
	Lookup(ctx context.Context, target string) *Location
}

// HopLocator returns the coordinates of a public hop address, or nil.
type HopLocator interface {
	HopLocation(ctx context.Context, ip string) *Coordinates
}

// ASNResolver returns the origin AS of an address, or 0 when unknown.
type ASNResolver interface {
	ASN(ctx context.Context, ip string) uint
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
