package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/cache"
	"github.com/kjstillabower/weatherlog/internal/client"
	"github.com/kjstillabower/weatherlog/internal/models"
	"github.com/kjstillabower/weatherlog/internal/observability"
)

const (
	// forecastWindow is the number of 3-hour points considered (five days).
	forecastWindow = 40
	// forecastStride picks one point per day out of the window.
	forecastStride = 8
)

// WeatherService looks up weather reports using cache-aside with upstream fallback.
type WeatherService struct {
	client client.WeatherClient
	cache  cache.Cache
	ttl    time.Duration
}

// NewWeatherService creates a WeatherService. TTL is the cache lifetime for reports.
func NewWeatherService(client client.WeatherClient, cache cache.Cache, ttl time.Duration) *WeatherService {
	return &WeatherService{
		client: client,
		cache:  cache,
		ttl:    ttl,
	}
}

// GetReport returns current conditions and a daily forecast for city.
// A forecast failure does not fail the lookup; the report is then returned without forecast and not cached.
func (s *WeatherService) GetReport(ctx context.Context, city string) (models.Report, error) {
	key := cache.Key(city)
	start := time.Now()
	logger := observability.LoggerFrom(ctx)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		logger.Warn("cache get failed", zap.String("city", key), zap.Error(err))
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("report").Inc()
		observability.RecordWeatherLookup(key, "cached")
		logger.Debug("weather served", zap.String("city", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		cached.Cached = true
		return cached, nil
	}

	logger.Debug("cache miss, fetching upstream", zap.String("city", key))
	current, err := s.client.GetCurrentWeather(ctx, key)
	if err != nil {
		s.recordFailure(key, err)
		return models.Report{}, fmt.Errorf("fetch weather for %s: %w", key, err)
	}

	report := models.Report{Current: current}
	points, ferr := s.client.GetForecast(ctx, key)
	if ferr != nil {
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(client.CategorizeError(ferr))).Inc()
		logger.Warn("forecast unavailable", zap.String("city", key), zap.Error(ferr))
	} else {
		report.Forecast = DailyForecast(points)
		if setErr := s.cache.Set(ctx, key, report, s.ttl); setErr != nil {
			observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
			logger.Warn("cache set failed", zap.String("city", key), zap.Error(setErr))
		}
	}

	observability.RecordWeatherLookup(key, "success")
	logger.Debug("weather served", zap.String("city", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return report, nil
}

// GetCurrentByCoords returns current conditions at a coordinate. Coordinate lookups are not cached.
func (s *WeatherService) GetCurrentByCoords(ctx context.Context, lat, lon float64) (models.WeatherData, error) {
	data, err := s.client.GetCurrentWeatherByCoords(ctx, lat, lon)
	if err != nil {
		s.recordFailure(fmt.Sprintf("%.2f,%.2f", lat, lon), err)
		return models.WeatherData{}, fmt.Errorf("fetch weather at %.4f,%.4f: %w", lat, lon, err)
	}
	observability.RecordWeatherLookup(data.City, "success")
	return data, nil
}

func (s *WeatherService) recordFailure(city string, err error) {
	category := client.CategorizeError(err)
	observability.WeatherAPIErrorsTotal.WithLabelValues(string(category)).Inc()
	observability.RecordWeatherLookup(city, category.Outcome())
}

// DailyForecast keeps every eighth point of the first forty, one per day.
func DailyForecast(points []models.ForecastPoint) []models.ForecastPoint {
	if len(points) > forecastWindow {
		points = points[:forecastWindow]
	}
	daily := make([]models.ForecastPoint, 0, (len(points)+forecastStride-1)/forecastStride)
	for i := 0; i < len(points); i += forecastStride {
		daily = append(daily, points[i])
	}
	return daily
}

// categorizeCacheError returns a stable label for cache error metrics (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
