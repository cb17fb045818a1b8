package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	WeatherAPIUnits   string

	RequestTimeout time.Duration

	CacheBackend string // "none", "in_memory" or "memcached"
	CacheTTL     time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	Database DatabaseConfig

	SessionSecret     string
	SessionCookieName string
	SessionTTL        time.Duration
	SessionSecure     bool

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	CityMinLength int
	CityMaxLength int

	ShutdownTimeout               time.Duration
	ShutdownDrainDelay            time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	TrackedCities []string
}

// DatabaseConfig selects the gorm dialector and its DSN.
type DatabaseConfig struct {
	Driver   string // "sqlite" or "postgres"
	DSN      string
	LogLevel string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
		Units   string `yaml:"units"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Database struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"database"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		TTL        string `yaml:"ttl"`
		Secure     bool   `yaml:"secure"`
	} `yaml:"session"`

	Admin struct {
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
	} `yaml:"admin"`

	Validation struct {
		CityMinLength int `yaml:"city_min_length"`
		CityMaxLength int `yaml:"city_max_length"`
	} `yaml:"validation"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		DrainDelay            string `yaml:"drain_delay"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
	SessionSecret string `yaml:"session_secret"`
	AdminPassword string `yaml:"admin_password"`
}

const (
	defaultAdminPassword = "123"
	minSessionSecretLen  = 16
)

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// A .env file in the working directory, when present, is applied to the environment first.
// Call from project root.
func Load() (*Config, error) {
	cwd, fc, err := readFileConfig()
	if err != nil {
		return nil, err
	}
	sec, err := readSecrets(cwd)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.ServerPort = firstNonEmpty(fc.Server.Port, "8080")

	cfg.WeatherAPIKey = firstNonEmpty(os.Getenv("WEATHER_API_KEY"), os.Getenv("OPENWEATHER_API_KEY"), sec.WeatherAPIKey)
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
	}
	cfg.WeatherAPIURL = strings.TrimRight(firstNonEmpty(fc.WeatherAPI.URL, "https://api.openweathermap.org/data/2.5"), "/")
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 8*time.Second)
	cfg.WeatherAPIUnits = firstNonEmpty(fc.WeatherAPI.Units, "metric")

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.CacheBackend = firstNonEmpty(
		strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND"))),
		strings.TrimSpace(strings.ToLower(fc.Cache.Backend)),
		"in_memory",
	)
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 5*time.Minute)
	cfg.MemcachedAddrs = firstNonEmpty(
		strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS")),
		strings.TrimSpace(fc.Cache.Memcached.Addrs),
		"localhost:11211",
	)
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cfg.Database = databaseConfig(fc)

	cfg.SessionSecret = firstNonEmpty(os.Getenv("SESSION_SECRET"), sec.SessionSecret)
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET required (set env or config/secrets.yaml session_secret)")
	}
	cfg.SessionCookieName = firstNonEmpty(fc.Session.CookieName, "weatherlog_session")
	cfg.SessionTTL = parseDuration(fc.Session.TTL, 24*time.Hour)
	cfg.SessionSecure = fc.Session.Secure

	cfg.AdminUsername = firstNonEmpty(fc.Admin.Username, "admin")
	cfg.AdminEmail = strings.ToLower(firstNonEmpty(fc.Admin.Email, "admin@gmail.com"))
	cfg.AdminPassword = firstNonEmpty(os.Getenv("ADMIN_PASSWORD"), sec.AdminPassword, defaultAdminPassword)

	cfg.CityMinLength = fc.Validation.CityMinLength
	if cfg.CityMinLength <= 0 {
		cfg.CityMinLength = 1
	}
	cfg.CityMaxLength = fc.Validation.CityMaxLength
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownDrainDelay = parseDuration(fc.Shutdown.DrainDelay, 5*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.TrackedCities = fc.Metrics.TrackedCities

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads only the database section. Used by tools that never
// talk to the weather API or issue sessions.
func LoadDatabase() (DatabaseConfig, error) {
	_, fc, err := readFileConfig()
	if err != nil {
		return DatabaseConfig{}, err
	}
	db := databaseConfig(fc)
	if err := validateDatabase(db); err != nil {
		return DatabaseConfig{}, err
	}
	return db, nil
}

// UsesDefaultAdminPassword reports whether the seeded admin account still has the built-in password.
func (c *Config) UsesDefaultAdminPassword() bool {
	return c.AdminPassword == defaultAdminPassword
}

func readFileConfig() (string, fileConfig, error) {
	var fc fileConfig

	cwd, err := os.Getwd()
	if err != nil {
		return "", fc, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !os.IsNotExist(err) {
		return "", fc, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fc, fmt.Errorf("config file not found: %s", configPath)
		}
		return "", fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return "", fc, fmt.Errorf("parse config file: %w", err)
	}
	return cwd, fc, nil
}

func readSecrets(cwd string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func databaseConfig(fc fileConfig) DatabaseConfig {
	return DatabaseConfig{
		Driver: firstNonEmpty(
			strings.TrimSpace(strings.ToLower(os.Getenv("DATABASE_DRIVER"))),
			strings.TrimSpace(strings.ToLower(fc.Database.Driver)),
			"sqlite",
		),
		DSN:      firstNonEmpty(os.Getenv("DATABASE_DSN"), fc.Database.DSN, "weather.db"),
		LogLevel: strings.ToLower(firstNonEmpty(fc.Database.LogLevel, "warn")),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero or negative durations are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. RequestTimeout is raised above
// WeatherAPITimeout when needed so a page lookup can outlive its upstream call.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "none", "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be none, in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if len(cfg.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("session secret must be at least %d bytes", minSessionSecretLen)
	}
	if cfg.CityMinLength > cfg.CityMaxLength {
		return fmt.Errorf("validation.city_min_length (%d) exceeds city_max_length (%d)", cfg.CityMinLength, cfg.CityMaxLength)
	}
	return validateDatabase(cfg.Database)
}

func validateDatabase(db DatabaseConfig) error {
	switch db.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", db.Driver)
	}
	if db.DSN == "" {
		return fmt.Errorf("database.dsn required")
	}
	return nil
}
