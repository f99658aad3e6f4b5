package geoip

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"ipcheck-tools/internal/domain/ipdistance"
)

const (
	DefaultIPAPIURL   = "http://ip-api.com"
	DefaultIPAPICoURL = "https://ipapi.co"
	DefaultIPInfoURL  = "https://ipinfo.io"
)

var errProviderFailed = errors.New("provider reported failure")

// Provider describes one upstream geolocation service: where to ask and how
// to turn its JSON body into a GeoRecord.
type Provider struct {
	Name    string
	URL     func(ip string) string
	Headers map[string]string
	Decode  func(ip string, body []byte) (ipdistance.GeoRecord, error)
}

// DefaultProviders returns the standard rotation: ip-api.com, ipapi.co, ipinfo.io.
func DefaultProviders(userAgent string) []Provider {
	return []Provider{
		IPAPIProvider(DefaultIPAPIURL, userAgent),
		IPAPICoProvider(DefaultIPAPICoURL),
		IPInfoProvider(DefaultIPInfoURL),
	}
}

type ipAPIResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	City        string   `json:"city"`
	RegionName  string   `json:"regionName"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
}

// IPAPIProvider queries ip-api.com (GET {base}/json/{ip}).
func IPAPIProvider(baseURL, userAgent string) Provider {
	return Provider{
		Name: "ip-api.com",
		URL: func(ip string) string {
			return fmt.Sprintf("%s/json/%s", strings.TrimRight(baseURL, "/"), url.PathEscape(ip))
		},
		Headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": userAgent,
		},
		Decode: func(ip string, body []byte) (ipdistance.GeoRecord, error) {
			var data ipAPIResponse
			if err := json.Unmarshal(body, &data); err != nil {
				return ipdistance.GeoRecord{}, fmt.Errorf("decode ip-api.com: %w", err)
			}
			if data.Status == "fail" {
				return ipdistance.GeoRecord{}, fmt.Errorf("%w: %s", errProviderFailed, data.Message)
			}
			return buildRecord(ip, data.Lat, data.Lon, data.City, data.RegionName, data.Country, data.CountryCode)
		},
	}
}

type ipAPICoResponse struct {
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	CountryCode string   `json:"country_code"`
}

// IPAPICoProvider queries ipapi.co (GET {base}/{ip}/json/).
func IPAPICoProvider(baseURL string) Provider {
	return Provider{
		Name: "ipapi.co",
		URL: func(ip string) string {
			return fmt.Sprintf("%s/%s/json/", strings.TrimRight(baseURL, "/"), url.PathEscape(ip))
		},
		Headers: map[string]string{"Accept": "application/json"},
		Decode: func(ip string, body []byte) (ipdistance.GeoRecord, error) {
			var data ipAPICoResponse
			if err := json.Unmarshal(body, &data); err != nil {
				return ipdistance.GeoRecord{}, fmt.Errorf("decode ipapi.co: %w", err)
			}
			if data.Error {
				return ipdistance.GeoRecord{}, fmt.Errorf("%w: %s", errProviderFailed, data.Reason)
			}
			return buildRecord(ip, data.Latitude, data.Longitude, data.City, data.Region, data.CountryName, data.CountryCode)
		},
	}
}

type ipInfoResponse struct {
	Error   json.RawMessage `json:"error"`
	Bogon   bool            `json:"bogon"`
	Loc     string          `json:"loc"`
	City    string          `json:"city"`
	Region  string          `json:"region"`
	Country string          `json:"country"`
}

// IPInfoProvider queries ipinfo.io (GET {base}/{ip}/json). Coordinates come
// as a single "lat,lon" string and only the country code is available.
func IPInfoProvider(baseURL string) Provider {
	return Provider{
		Name: "ipinfo.io",
		URL: func(ip string) string {
			return fmt.Sprintf("%s/%s/json", strings.TrimRight(baseURL, "/"), url.PathEscape(ip))
		},
		Headers: map[string]string{"Accept": "application/json"},
		Decode: func(ip string, body []byte) (ipdistance.GeoRecord, error) {
			var data ipInfoResponse
			if err := json.Unmarshal(body, &data); err != nil {
				return ipdistance.GeoRecord{}, fmt.Errorf("decode ipinfo.io: %w", err)
			}
			if len(data.Error) > 0 && string(data.Error) != "null" {
				return ipdistance.GeoRecord{}, fmt.Errorf("%w: %s", errProviderFailed, string(data.Error))
			}
			if data.Bogon {
				return ipdistance.GeoRecord{}, fmt.Errorf("%w: bogon address", errProviderFailed)
			}
			lat, lon, err := parseLoc(data.Loc)
			if err != nil {
				return ipdistance.GeoRecord{}, err
			}
			return buildRecord(ip, lat, lon, data.City, data.Region, data.Country, data.Country)
		},
	}
}

func parseLoc(loc string) (*float64, *float64, error) {
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid loc %q", loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid latitude in loc %q", loc)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid longitude in loc %q", loc)
	}
	return &lat, &lon, nil
}

// buildRecord accepts a result only when both coordinates are present and in range.
func buildRecord(ip string, lat, lon *float64, city, region, country, code string) (ipdistance.GeoRecord, error) {
	if lat == nil || lon == nil {
		return ipdistance.GeoRecord{}, errors.New("missing coordinates")
	}
	if !validCoord(*lat, 90) || !validCoord(*lon, 180) {
		return ipdistance.GeoRecord{}, fmt.Errorf("coordinates out of range: %v,%v", *lat, *lon)
	}
	return ipdistance.GeoRecord{
		IP:          ip,
		Lat:         *lat,
		Lon:         *lon,
		City:        orDefault(city, "Unknown"),
		RegionName:  orDefault(region, "Unknown"),
		Country:     orDefault(country, "Unknown"),
		CountryCode: orDefault(code, "XX"),
	}, nil
}

func validCoord(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
