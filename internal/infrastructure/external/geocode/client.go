package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

const (
	DefaultNominatimURL   = "https://nominatim.openstreetmap.org"
	DefaultTimezoneDBURL  = "https://api.timezonedb.com"
	defaultAddressTimeout = 8 * time.Second
	defaultZoneTimeout    = 5 * time.Second
)

// ErrInvalidCoordinates 表示經緯度超出合法範圍。
var ErrInvalidCoordinates = errors.New("latitude must be between -90 and 90, longitude must be between -180 and 180")

// Address 為反查後整理過的地址；欄位可能為 nil。
type Address struct {
	Formatted string  `json:"formatted"`
	Country   *string `json:"country"`
	Region    *string `json:"region"`
	City      *string `json:"city"`
	District  *string `json:"district"`
	Street    *string `json:"street"`
	Postcode  *string `json:"postcode"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Result 為 /api/geocode 的回應內容。
type Result struct {
	Address     Address     `json:"address"`
	Timezone    *string     `json:"timezone"`
	Coordinates Coordinates `json:"coordinates"`
	Error       *string     `json:"error"`
}

// Config 設定上游服務位址與金鑰；TimezoneAPIKey 為空時略過時區查詢。
type Config struct {
	NominatimURL   string
	TimezoneURL    string
	TimezoneAPIKey string
	UserAgent      string
}

// Client 以 Nominatim 反查地址，並可選擇以 timezonedb 查時區。
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = DefaultNominatimURL
	}
	if cfg.TimezoneURL == "" {
		cfg.TimezoneURL = DefaultTimezoneDBURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// ValidCoordinates 檢查經緯度範圍。
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Reverse 反查座標。上游失敗不會回傳 error，而是寫入 Result.Error 並使用座標字串作為地址。
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Result, error) {
	if !ValidCoordinates(lat, lon) {
		return Result{}, ErrInvalidCoordinates
	}
	res := Result{Coordinates: Coordinates{Latitude: lat, Longitude: lon}}

	addr, err := c.lookupAddress(ctx, lat, lon)
	if err != nil {
		klog.ErrorS(err, "Nominatim API error", "lat", lat, "lon", lon)
		msg := "Failed to fetch address information"
		res.Error = &msg
	}

	if c.cfg.TimezoneAPIKey == "" {
		klog.V(2).InfoS("Timezone API key not provided, skipping timezone lookup")
	} else {
		zone, err := c.lookupZone(ctx, lat, lon)
		if err != nil {
			klog.ErrorS(err, "Timezone API error", "lat", lat, "lon", lon)
		} else if zone != "" {
			res.Timezone = &zone
		}
	}

	if addr == nil {
		addr = &Address{Formatted: fmt.Sprintf("%.6f, %.6f", lat, lon)}
	}
	res.Address = *addr
	return res, nil
}

type nominatimResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

func (c *Client) lookupAddress(ctx context.Context, lat, lon float64) (*Address, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lon))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	var data nominatimResponse
	if err := c.getJSON(ctx, defaultAddressTimeout, c.cfg.NominatimURL+"/reverse?"+q.Encode(), &data); err != nil {
		return nil, err
	}
	if len(data.Address) == 0 {
		return nil, nil
	}
	a := data.Address
	return &Address{
		Formatted: data.DisplayName,
		Country:   firstOf(a, "country"),
		Region:    firstOf(a, "state", "province", "region"),
		City:      firstOf(a, "city", "town", "village", "municipality"),
		District:  firstOf(a, "suburb", "neighbourhood", "quarter"),
		Street:    firstOf(a, "road", "pedestrian"),
		Postcode:  firstOf(a, "postcode"),
	}, nil
}

type timezoneResponse struct {
	Status   string `json:"status"`
	ZoneName string `json:"zoneName"`
}

func (c *Client) lookupZone(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("key", c.cfg.TimezoneAPIKey)
	q.Set("format", "json")
	q.Set("by", "position")
	q.Set("lat", formatCoord(lat))
	q.Set("lng", formatCoord(lon))

	var data timezoneResponse
	if err := c.getJSON(ctx, defaultZoneTimeout, c.cfg.TimezoneURL+"/v2.1/get-time-zone?"+q.Encode(), &data); err != nil {
		return "", err
	}
	if data.Status != "OK" {
		return "", nil
	}
	return data.ZoneName, nil
}

func (c *Client) getJSON(ctx context.Context, timeout time.Duration, rawURL string, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("geocode api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func firstOf(m map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != "" {
			return &v
		}
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
