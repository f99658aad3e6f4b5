package geoip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ipcheck-tools/internal/domain/ipdistance"

	"k8s.io/klog/v2"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultMaxRetries = 3
	maxBodyBytes      = 1 << 20
)

// Options 控制解析器的重試與測試用假資料。
type Options struct {
	// Timeout 為單次供應商呼叫上限。
	Timeout time.Duration
	// MaxRetries 為首次之外的重試次數，總嘗試次數為 MaxRetries+1。
	MaxRetries int
	// SyntheticFallback 允許在全部失敗後回傳標記為 Unknown 的隨機座標，
	// 僅於非 production 環境且非 production build 時生效。
	SyntheticFallback bool
	// Production 為 true 時一律停用假資料。
	Production bool
}

// Resolver 依序輪替多個定位供應商解析 IP，不做快取。
type Resolver struct {
	providers      []Provider
	httpClient     *http.Client
	timeout        time.Duration
	maxRetries     int
	allowSynthetic bool
}

// NewResolver 建立 Resolver；httpClient 為 nil 時使用預設 client。
func NewResolver(providers []Provider, httpClient *http.Client, opts Options) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	return &Resolver{
		providers:      providers,
		httpClient:     httpClient,
		timeout:        opts.Timeout,
		maxRetries:     opts.MaxRetries,
		allowSynthetic: opts.SyntheticFallback && !opts.Production && syntheticAvailable,
	}
}

// Resolve 解析 ip；第 n 次嘗試使用第 n%len 個供應商，全部失敗時回傳 ErrResolutionFailed。
func (r *Resolver) Resolve(ctx context.Context, ip string) (ipdistance.GeoRecord, error) {
	if len(r.providers) == 0 {
		return ipdistance.GeoRecord{}, fmt.Errorf("%w: no providers configured", ipdistance.ErrResolutionFailed)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		p := r.providers[attempt%len(r.providers)]
		klog.V(1).InfoS("Fetching IP info", "ip", ip, "provider", p.Name, "attempt", attempt+1)

		rec, err := r.fetch(ctx, p, ip)
		if err == nil {
			return rec, nil
		}
		lastErr = err
		klog.ErrorS(err, "IP info attempt failed", "ip", ip, "provider", p.Name, "attempt", attempt+1)
	}

	if r.allowSynthetic {
		klog.InfoS("All IP providers failed, using synthetic location", "ip", ip)
		return syntheticRecord(ip), nil
	}
	return ipdistance.GeoRecord{}, fmt.Errorf("%w: %v", ipdistance.ErrResolutionFailed, lastErr)
}

func (r *Resolver) fetch(ctx context.Context, p Provider, ip string) (ipdistance.GeoRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, p.URL(ip), nil)
	if err != nil {
		return ipdistance.GeoRecord{}, err
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return ipdistance.GeoRecord{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ipdistance.GeoRecord{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ipdistance.GeoRecord{}, fmt.Errorf("%s api error (status %d)", p.Name, resp.StatusCode)
	}
	return p.Decode(ip, body)
}
