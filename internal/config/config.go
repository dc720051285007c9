package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	defaultEnv             = "development"
	defaultHTTPHost        = "0.0.0.0"
	defaultHTTPPort        = 8080
	defaultLogLevel        = "info"
	defaultProvider        = ProviderFutu
	defaultFutuAddr        = "127.0.0.1:11111"
	defaultFutuTimeout     = 10 * time.Second
	defaultChainDays       = 30
	defaultCandidateLimit  = 300
	defaultExportDir       = "."
	defaultRedisDB         = 0
	defaultCacheTTLSeconds = 30
	defaultTimezone        = "America/New_York"
	defaultRunsExchange    = "options.runs"
)

const (
	ProviderFutu    = "futu"
	ProviderPolygon = "polygon"
	ProviderCSV     = "csv"
)

// Config keeps the runtime configuration for the service.
type Config struct {
	Env      string
	HTTP     HTTPConfig
	Log      LogConfig
	Options  OptionsConfig
	Futu     FutuConfig
	Polygon  PolygonConfig
	CSV      CSVConfig
	Export   ExportConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Cache    CacheConfig
	RabbitMQ RabbitMQConfig
}

// HTTPConfig holds HTTP server related settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr renders the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// LogConfig controls log level and the optional rotating log file.
type LogConfig struct {
	Level string
	File  string
}

// OptionsConfig drives the chain pipeline.
type OptionsConfig struct {
	Provider       string
	CandidateLimit int
	ChainDays      int
	Location       *time.Location
}

// FutuConfig points at a running OpenD gateway.
type FutuConfig struct {
	Addr    string
	Timeout time.Duration
}

// PolygonConfig stores the polygon.io API key.
type PolygonConfig struct {
	APIKey string
}

// CSVConfig names the static chain file replayed by the csv provider.
type CSVConfig struct {
	SourceFile string
}

// ExportConfig controls where final tables are written.
type ExportConfig struct {
	Dir   string
	Label string
	OnRun bool
}

// PostgresConfig stores database connection parameters. Snapshots are
// disabled when DSN is empty.
type PostgresConfig struct {
	DSN string
}

// RedisConfig stores Redis connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig enables run announcements when URL is set.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// CacheConfig stores cache behavior.
type CacheConfig struct {
	TTLSeconds int
}

// LoadDotEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load builds Config from environment variables and validates it.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the environment without the provider checks of Validate, so
// callers can apply overrides first.
func Parse() (*Config, error) {
	port, err := getInt("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_PORT: %w", err)
	}

	limit, err := getInt("CANDIDATE_LIMIT", defaultCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("parse CANDIDATE_LIMIT: %w", err)
	}
	if limit <= 0 {
		return nil, errors.New("CANDIDATE_LIMIT must be positive")
	}

	chainDays, err := getInt("OPTION_CHAIN_DAYS", defaultChainDays)
	if err != nil {
		return nil, fmt.Errorf("parse OPTION_CHAIN_DAYS: %w", err)
	}
	if chainDays <= 0 {
		return nil, errors.New("OPTION_CHAIN_DAYS must be positive")
	}

	loc, err := time.LoadLocation(getString("MARKET_TIMEZONE", defaultTimezone))
	if err != nil {
		return nil, fmt.Errorf("parse MARKET_TIMEZONE: %w", err)
	}

	futuTimeout, err := getDuration("FUTU_TIMEOUT", defaultFutuTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse FUTU_TIMEOUT: %w", err)
	}

	exportOnRun, err := getBool("EXPORT_ON_RUN", false)
	if err != nil {
		return nil, fmt.Errorf("parse EXPORT_ON_RUN: %w", err)
	}

	redisDB, err := getInt("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	cacheTTL, err := getInt("CACHE_TTL_SECONDS", defaultCacheTTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("parse CACHE_TTL_SECONDS: %w", err)
	}

	cfg := &Config{
		Env:  getString("APP_ENV", defaultEnv),
		HTTP: HTTPConfig{Host: getString("HTTP_HOST", defaultHTTPHost), Port: port},
		Log: LogConfig{
			Level: getString("LOG_LEVEL", defaultLogLevel),
			File:  os.Getenv("LOG_FILE"),
		},
		Options: OptionsConfig{
			Provider:       strings.ToLower(getString("OPTIONS_PROVIDER", defaultProvider)),
			CandidateLimit: limit,
			ChainDays:      chainDays,
			Location:       loc,
		},
		Futu: FutuConfig{
			Addr:    getString("FUTU_ADDR", defaultFutuAddr),
			Timeout: futuTimeout,
		},
		Polygon: PolygonConfig{APIKey: os.Getenv("POLYGON_API_KEY")},
		CSV:     CSVConfig{SourceFile: os.Getenv("CSV_SOURCE_FILE")},
		Export: ExportConfig{
			Dir:   getString("EXPORT_DIR", defaultExportDir),
			Label: getString("EXPORT_LABEL", fmt.Sprintf("latest_%d_filtered", limit)),
			OnRun: exportOnRun,
		},
		Postgres: PostgresConfig{DSN: os.Getenv("DATABASE_DSN")},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Cache: CacheConfig{TTLSeconds: cacheTTL},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getString("RABBITMQ_RUNS_EXCHANGE", defaultRunsExchange),
		},
	}
	return cfg, nil
}

// Validate checks provider specific requirements.
func (c *Config) Validate() error {
	switch c.Options.Provider {
	case ProviderFutu:
		if c.Futu.Addr == "" {
			return errors.New("FUTU_ADDR is required for the futu provider")
		}
	case ProviderPolygon:
		if c.Polygon.APIKey == "" {
			return errors.New("POLYGON_API_KEY is required for the polygon provider")
		}
	case ProviderCSV:
		if c.CSV.SourceFile == "" {
			return errors.New("CSV_SOURCE_FILE is required for the csv provider")
		}
	default:
		return fmt.Errorf("unknown OPTIONS_PROVIDER %q", c.Options.Provider)
	}
	return nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("convert %s value %q to bool: %w", key, value, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to duration: %w", key, value, err)
	}
	return parsed, nil
}
