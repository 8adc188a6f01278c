package geoip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/malbeclabs/pathscope/internal/metrics"
	"github.com/malbeclabs/pathscope/internal/netutil"
)

type Record struct {
	IP          net.IP
	CountryCode string
	Country     string
	Region      string
	City        string
	Latitude    float64
	Longitude   float64
	PostalCode  string
	TimeZone    string
	ASN         uint
	ASNOrg      string
}

// MaxMindResolver answers hop location and ASN queries from local GeoIP2 or
// GeoLite2 databases. Either reader may be nil.
type MaxMindResolver struct {
	log *slog.Logger

	cityDB *geoip2.Reader
	asnDB  *geoip2.Reader
}

func NewMaxMindResolver(log *slog.Logger, cityDB *geoip2.Reader, asnDB *geoip2.Reader) (*MaxMindResolver, error) {
	if log == nil {
		return nil, fmt.Errorf("log is nil")
	}
	if cityDB == nil && asnDB == nil {
		return nil, errors.New("at least one of cityDB or asnDB is required")
	}
	return &MaxMindResolver{
		log:    log,
		cityDB: cityDB,
		asnDB:  asnDB,
	}, nil
}

// OpenMaxMindResolver opens the databases at the given paths. An empty path
// skips that database.
func OpenMaxMindResolver(log *slog.Logger, cityPath, asnPath string) (*MaxMindResolver, error) {
	var cityDB, asnDB *geoip2.Reader
	var err error
	if cityPath != "" {
		cityDB, err = geoip2.Open(cityPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open city database: %w", err)
		}
	}
	if asnPath != "" {
		asnDB, err = geoip2.Open(asnPath)
		if err != nil {
			if cityDB != nil {
				_ = cityDB.Close()
			}
			return nil, fmt.Errorf("failed to open asn database: %w", err)
		}
	}
	return NewMaxMindResolver(log, cityDB, asnDB)
}

func (r *MaxMindResolver) Close() error {
	var errs []error
	if r.cityDB != nil {
		errs = append(errs, r.cityDB.Close())
	}
	if r.asnDB != nil {
		errs = append(errs, r.asnDB.Close())
	}
	return errors.Join(errs...)
}

func (r *MaxMindResolver) Resolve(ip net.IP) *Record {
	if ip == nil {
		return nil
	}

	var (
		countryCode, country, region, city, postalCode, timeZone string
		lat, lon                                                 float64
		hasLocation                                              bool
		asnNum                                                   uint
		asnOrg                                                   string
	)

	if r.cityDB != nil {
		rec, err := r.cityDB.City(ip)
		if err != nil {
			r.log.Debug("maxmind: city lookup failed", "ip", ip.String(), "error", err)
		} else {
			countryCode = rec.Country.IsoCode
			country = rec.Country.Names["en"]
			if len(rec.Subdivisions) > 0 {
				region = rec.Subdivisions[0].Names["en"]
			}
			city = rec.City.Names["en"]
			lat = rec.Location.Latitude
			lon = rec.Location.Longitude
			hasLocation = lat != 0 || lon != 0
			postalCode = rec.Postal.Code
			timeZone = rec.Location.TimeZone
		}
	}

	if r.asnDB != nil {
		rec, err := r.asnDB.ASN(ip)
		if err != nil {
			r.log.Debug("maxmind: asn lookup failed", "ip", ip.String(), "error", err)
		} else {
			asnNum = rec.AutonomousSystemNumber
			asnOrg = rec.AutonomousSystemOrganization
		}
	}

	if country == "" && !hasLocation && asnNum == 0 {
		return nil
	}

	return &Record{
		IP:          ip,
		CountryCode: countryCode,
		Country:     country,
		Region:      region,
		City:        city,
		Latitude:    lat,
		Longitude:   lon,
		PostalCode:  postalCode,
		TimeZone:    timeZone,
		ASN:         asnNum,
		ASNOrg:      asnOrg,
	}
}

func (r *MaxMindResolver) resolvePublic(ip string) *Record {
	if netutil.IsPrivate(ip) {
		return nil
	}
	rec := r.Resolve(net.ParseIP(ip))
	if rec == nil {
		metrics.LookupsTotal.WithLabelValues("maxmind", "not_found").Inc()
		return nil
	}
	metrics.LookupsTotal.WithLabelValues("maxmind", "ok").Inc()
	return rec
}

func (r *MaxMindResolver) HopLocation(_ context.Context, ip string) *Coordinates {
	rec := r.resolvePublic(ip)
	if rec == nil || (rec.Latitude == 0 && rec.Longitude == 0) {
		return nil
	}
	return &Coordinates{Latitude: rec.Latitude, Longitude: rec.Longitude}
}

func (r *MaxMindResolver) ASN(_ context.Context, ip string) uint {
	rec := r.resolvePublic(ip)
	if rec == nil {
		return 0
	}
	return rec.ASN
}
