package httpapi

import (
	"net/http"

	"ipcheck-tools/internal/interface/http/handler"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/ping", s.handlePing)
	api.GET("/health", s.handleHealth)

	api.GET("/ip", s.handleIPLookup)
	api.GET("/geocode", s.handleGeocode)

	ipd := api.Group("/ipdistance")
	ipd.POST("/session", s.handleCreateSession)
	ipd.GET("/:sessionId", s.handleVisitSession)

	api.GET("/stats/ipdistance", s.handleDistanceStats)

	speed := api.Group("/speedtest")
	speed.GET("/download", gin.WrapH(handler.Download(s.cfg.SpeedTest.DefaultSize, s.cfg.SpeedTest.MaxSize)))
	speed.POST("/upload", gin.WrapH(handler.Upload()))

	s.engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, errCodeNotFound, "not found")
	})
}
