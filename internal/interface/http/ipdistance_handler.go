package httpapi

import (
	"errors"
	"net/http"
	"time"

	appipdistance "ipcheck-tools/internal/application/ipdistance"
	domain "ipcheck-tools/internal/domain/ipdistance"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// IP 距離路由沿用前端既有的 {error} 回應格式。
const (
	msgSessionNotFound  = "Session not found or expired"
	msgResolutionFailed = "Failed to get IP information"
	msgCreateFailed     = "Failed to create session"
)

type visitResponse struct {
	Message        string            `json:"message"`
	SessionID      string            `json:"sessionId"`
	ExpiresAt      time.Time         `json:"expiresAt"`
	IsFirstVisitor *bool             `json:"isFirstVisitor,omitempty"`
	IsComplete     bool              `json:"isComplete"`
	FirstIP        *domain.GeoRecord `json:"firstIP,omitempty"`
	SecondIP       *domain.GeoRecord `json:"secondIP,omitempty"`
	Distance       *float64          `json:"distance,omitempty"`
	Unit           string            `json:"unit,omitempty"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	out, err := s.sessions.CreateSession(c.Request.Context(), requestHost(c.Request))
	if err != nil {
		klog.ErrorS(err, "Failed to create ipdistance session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgCreateFailed, "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) handleVisitSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	ip := clientIP(c.Request)

	res, err := s.sessions.Visit(c.Request.Context(), sessionID, ip)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgSessionNotFound})
		return
	case errors.Is(err, domain.ErrResolutionFailed):
		klog.ErrorS(err, "Failed to resolve visitor", "sessionID", sessionID, "ip", ip)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgResolutionFailed})
		return
	case err != nil:
		klog.ErrorS(err, "Failed to process visit", "sessionID", sessionID, "ip", ip)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgResolutionFailed})
		return
	}

	c.JSON(visitStatus(res), toVisitResponse(res))
}

func visitStatus(res appipdistance.VisitResult) int {
	if res.Outcome == appipdistance.OutcomeAlreadyUsed {
		return http.StatusForbidden
	}
	return http.StatusOK
}

func toVisitResponse(res appipdistance.VisitResult) visitResponse {
	sess := res.Session
	out := visitResponse{
		Message:    res.Message(),
		SessionID:  sess.ID,
		ExpiresAt:  sess.ExpiresAt,
		IsComplete: res.IsComplete,
	}
	if res.Outcome == appipdistance.OutcomeAlreadyUsed {
		return out
	}
	first := res.IsFirstVisitor
	out.IsFirstVisitor = &first
	if res.Outcome == appipdistance.OutcomeComplete {
		out.FirstIP = sess.FirstIPInfo
		out.SecondIP = sess.SecondIPInfo
		out.Distance = sess.Distance
		out.Unit = "km"
	}
	return out
}
