package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// handleDistanceStats 回傳已完成比對的統計；未設定資料庫時回 503。
// days 預設 30，0 表示全部。
func (s *Server) handleDistanceStats(c *gin.Context) {
	if s.stats == nil {
		writeError(c, http.StatusServiceUnavailable, errCodeUnavailable, "result archive is not configured")
		return
	}
	days := parseIntDefault(c.Query("days"), 30)
	if days < 0 {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "days must be >= 0")
		return
	}
	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}

	ctx := c.Request.Context()
	stats, err := s.stats.Stats(ctx, since)
	if err != nil {
		klog.ErrorS(err, "Failed to load ipdistance stats")
		writeError(c, http.StatusInternalServerError, errCodeInternal, "failed to load stats")
		return
	}
	pairs, err := s.stats.TopCountryPairs(ctx, parseIntDefault(c.Query("limit"), 10))
	if err != nil {
		klog.ErrorS(err, "Failed to load country pairs")
		writeError(c, http.StatusInternalServerError, errCodeInternal, "failed to load stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"days":          days,
		"stats":         stats,
		"country_pairs": pairs,
	})
}
