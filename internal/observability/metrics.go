package observability

import (
	"database/sql"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per route template.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Weather provider calls by endpoint (weather, forecast) and status.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Provider latency. Watch for: p95 approaching the configured timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts. Zero unless reliability.retry_max_attempts > 1.
	WeatherAPIRetriesTotal prometheus.Counter

	// Failed lookups by error category (see client.CategorizeError).
	WeatherAPIErrorsTotal *prometheus.CounterVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheErrorsTotal *prometheus.CounterVec

	// Lookups by outcome (success, not_found, canceled, error).
	WeatherLookupsTotal *prometheus.CounterVec

	// Per-city lookup count (allow-list; others go to "other").
	WeatherLookupsByCityTotal *prometheus.CounterVec

	// Auth events: register, login, logout by outcome.
	AuthEventsTotal *prometheus.CounterVec

	// History mutations by op (create, update, delete) and actor (user, admin, import).
	HistoryMutationsTotal *prometheus.CounterVec

	// Rate limit denials (429).
	RateLimitDeniedTotal prometheus.Counter

	trackedCitiesMu sync.RWMutex
	trackedCities   map[string]struct{}

	dbStatsOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of weather provider API calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Weather provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts for weather API calls",
		},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Weather lookups that failed, by error category",
		},
		[]string{"category"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache operation failures by operation and category",
		},
		[]string{"op", "category"},
	)
	WeatherLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherLookupsTotal",
			Help: "Total number of weather lookups by outcome",
		},
		[]string{"outcome"},
	)
	WeatherLookupsByCityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherLookupsByCityTotal",
			Help: "Weather lookups by city (allow-list; others use city=other)",
		},
		[]string{"city"},
	)
	AuthEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authEventsTotal",
			Help: "Authentication events by event and outcome",
		},
		[]string{"event", "outcome"},
	)
	HistoryMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historyMutationsTotal",
			Help: "Weather history writes by operation and actor",
		},
		[]string{"op", "actor"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIRetriesTotal, WeatherAPIErrorsTotal,
		CacheHitsTotal, CacheErrorsTotal,
		WeatherLookupsTotal, WeatherLookupsByCityTotal,
		AuthEventsTotal, HistoryMutationsTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterDBStats exposes connection pool stats for db. Only the first call registers.
func RegisterDBStats(db *sql.DB) {
	dbStatsOnce.Do(func() {
		registry.MustRegister(collectors.NewDBStatsCollector(db, "weatherlog"))
	})
}

// SetTrackedCities sets the allow-list for city metrics. Non-tracked cities increment "other".
func SetTrackedCities(cities []string) {
	trackedCitiesMu.Lock()
	defer trackedCitiesMu.Unlock()
	trackedCities = make(map[string]struct{}, len(cities))
	for _, c := range cities {
		trackedCities[normalizeCityForMetrics(c)] = struct{}{}
	}
}

// RecordWeatherLookup records one lookup outcome for city.
func RecordWeatherLookup(city, outcome string) {
	WeatherLookupsTotal.WithLabelValues(outcome).Inc()
	WeatherLookupsByCityTotal.WithLabelValues(MetricCityLabel(city)).Inc()
}

// MetricCityLabel returns the normalized city when tracked, else "other".
func MetricCityLabel(city string) string {
	c := normalizeCityForMetrics(city)
	trackedCitiesMu.RLock()
	_, ok := trackedCities[c]
	trackedCitiesMu.RUnlock()
	if ok {
		return c
	}
	return "other"
}

func normalizeCityForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
