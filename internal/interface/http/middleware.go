package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

func (s *Server) ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"clientIP", clientIP(c.Request),
		}
		if status >= 500 {
			klog.InfoS("HTTP request failed", kv...)
			return
		}
		klog.V(1).InfoS("HTTP request", kv...)
	}
}
