package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

const unknownIP = "0.0.0.0"

// clientIP 依序讀取 X-Forwarded-For（第一個）、X-Real-IP、CF-Connecting-IP，
// 最後才使用連線來源位址。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	for _, h := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if ip := strings.TrimSpace(r.Header.Get(h)); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return unknownIP
}

// requestHost 回傳分享連結使用的主機名，優先採用反向代理轉送的 Host。
func requestHost(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); h != "" {
		first, _, _ := strings.Cut(h, ",")
		return strings.TrimSpace(first)
	}
	return r.Host
}

func parseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
