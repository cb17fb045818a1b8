package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics_Usable verifies label dimensions match usage across client, http, service and cache.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/update_weather/{id}", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/update_weather/{id}").Observe(0.01)
	WeatherAPICallsTotal.WithLabelValues("weather", "success").Inc()
	WeatherAPICallsTotal.WithLabelValues("forecast", "error").Inc()
	WeatherAPIDuration.WithLabelValues("weather", "success").Observe(0.1)
	WeatherAPIErrorsTotal.WithLabelValues("location_not_found").Inc()
	CacheHitsTotal.WithLabelValues("report").Inc()
	CacheErrorsTotal.WithLabelValues("get", "timeout").Inc()
	AuthEventsTotal.WithLabelValues("login", "success").Inc()
	HistoryMutationsTotal.WithLabelValues("create", "user").Inc()
}

func TestRecordWeatherLookup_TrackedAndOther(t *testing.T) {
	SetTrackedCities([]string{"London", "paris"})
	defer SetTrackedCities(nil)

	beforeLondon := testutil.ToFloat64(WeatherLookupsByCityTotal.WithLabelValues("london"))
	beforeOther := testutil.ToFloat64(WeatherLookupsByCityTotal.WithLabelValues("other"))

	RecordWeatherLookup("  LONDON ", "success")
	RecordWeatherLookup("Atlantis", "not_found")

	if got := testutil.ToFloat64(WeatherLookupsByCityTotal.WithLabelValues("london")) - beforeLondon; got != 1 {
		t.Errorf("london lookups delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(WeatherLookupsByCityTotal.WithLabelValues("other")) - beforeOther; got != 1 {
		t.Errorf("other lookups delta = %v, want 1", got)
	}
}

func TestMetricCityLabel(t *testing.T) {
	SetTrackedCities([]string{"tokyo"})
	defer SetTrackedCities(nil)

	tests := []struct {
		in, want string
	}{
		{"Tokyo", "tokyo"},
		{" tokyo ", "tokyo"},
		{"osaka", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		if got := MetricCityLabel(tt.in); got != tt.want {
			t.Errorf("MetricCityLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestMetricsHandler_ServesPrometheusFormat verifies the handler serves text exposition format.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
