package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ipcheck-tools/internal/infrastructure/external/geocode"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

func (s *Server) handleGeocode(c *gin.Context) {
	latRaw := strings.TrimSpace(c.Query("lat"))
	lonRaw := strings.TrimSpace(c.Query("lon"))
	if latRaw == "" || lonRaw == "" {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "Missing latitude or longitude parameters")
		return
	}
	lat, errLat := strconv.ParseFloat(latRaw, 64)
	lon, errLon := strconv.ParseFloat(lonRaw, 64)
	if errLat != nil || errLon != nil {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid latitude or longitude format")
		return
	}
	if !geocode.ValidCoordinates(lat, lon) {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "Latitude must be between -90 and 90, longitude must be between -180 and 180")
		return
	}

	res, err := s.geocoder.Reverse(c.Request.Context(), lat, lon)
	if err != nil {
		if errors.Is(err, geocode.ErrInvalidCoordinates) {
			writeError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
			return
		}
		klog.ErrorS(err, "Geocoding failed", "lat", lat, "lon", lon)
		writeError(c, http.StatusInternalServerError, errCodeInternal, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, res)
}
