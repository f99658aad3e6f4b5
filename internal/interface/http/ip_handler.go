package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

type ipLookupResponse struct {
	IP          string  `json:"ip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	City        string  `json:"city"`
	RegionName  string  `json:"regionName"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Query       string  `json:"query"`
	UserAgent   string  `json:"userAgent"`
}

// handleIPLookup 查詢 ?ip= 指定的位址，未指定時查詢呼叫者本身。
func (s *Server) handleIPLookup(c *gin.Context) {
	target := strings.TrimSpace(c.Query("ip"))
	if target == "" {
		target = clientIP(c.Request)
	}
	ua := c.GetHeader("User-Agent")
	if ua == "" {
		ua = "Unknown"
	}

	rec, err := s.resolver.Resolve(c.Request.Context(), target)
	if err != nil {
		klog.ErrorS(err, "IP lookup failed", "ip", target)
		writeError(c, http.StatusInternalServerError, errCodeUpstream, "Failed to fetch IP information")
		return
	}

	c.JSON(http.StatusOK, ipLookupResponse{
		IP:          rec.IP,
		Lat:         rec.Lat,
		Lon:         rec.Lon,
		City:        rec.City,
		RegionName:  rec.RegionName,
		Country:     rec.Country,
		CountryCode: rec.CountryCode,
		Query:       target,
		UserAgent:   ua,
	})
}
