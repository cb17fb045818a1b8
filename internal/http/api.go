package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kjstillabower/weatherlog/internal/models"
	"github.com/kjstillabower/weatherlog/internal/validation"
)

// GetWeatherAPI handles GET /api/weather?city= or ?lat=&lon=. A city lookup returns
// the cached report with forecast; a coordinate lookup returns current conditions only.
func (h *Handler) GetWeatherAPI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("city"); raw != "" {
		city, err := validation.ValidateCity(raw, h.cityMinLength, h.cityMaxLength)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
			return
		}
		report, err := h.weather.GetReport(r.Context(), city)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	latRaw, lonRaw := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lon"))
	if latRaw == "" || lonRaw == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "city or lat and lon are required")
		return
	}
	lat, errLat := strconv.ParseFloat(latRaw, 64)
	lon, errLon := strconv.ParseFloat(lonRaw, 64)
	if errLat != nil || errLon != nil || !validation.ValidCoordinates(lat, lon) {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "lat must be in [-90,90] and lon in [-180,180]")
		return
	}
	current, err := h.weather.GetCurrentByCoords(r.Context(), lat, lon)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Report{Current: current})
}
