package models

import "time"

// WeatherData is a single current-conditions observation for a city.
type WeatherData struct {
	City        string    `json:"city"`
	Country     string    `json:"country,omitempty"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Timestamp   time.Time `json:"timestamp"`
}

// ForecastPoint is one 3-hour slot of the provider's 5-day forecast.
type ForecastPoint struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	TempMin     float64   `json:"tempMin"`
	TempMax     float64   `json:"tempMax"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
}

// Report is what a page lookup renders: current conditions plus one forecast point per day.
type Report struct {
	Current  WeatherData     `json:"current"`
	Forecast []ForecastPoint `json:"forecast"`
	Cached   bool            `json:"cached,omitempty"`
}
