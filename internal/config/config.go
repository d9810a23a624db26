package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Source site
	BaseURL        string        `envconfig:"SUMO_BASE_URL" default:"https://www.sumo.or.jp"`
	RequestTimeout time.Duration `envconfig:"SUMO_REQUEST_TIMEOUT" default:"30s"`
	RequestDelay   time.Duration `envconfig:"SUMO_REQUEST_DELAY" default:"1s"`

	// Response cache
	CacheMode    string `envconfig:"SUMO_CACHE_MODE" default:"readwrite"` // readwrite, disabled, only
	CacheBackend string `envconfig:"SUMO_CACHE_BACKEND" default:"fs"`    // fs, redis
	CacheDir     string `envconfig:"SUMO_CACHE_DIR" default:"cache"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"sumo_tracker"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"sumo_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (only used when SUMO_CACHE_BACKEND=redis)
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Tournament tracking
	CurrentTournamentID int    `envconfig:"CURRENT_TOURNAMENT_ID" default:"628"`
	DateOverrides       string `envconfig:"TOURNAMENT_DATE_OVERRIDES" default:""` // "628=2025-03-09;627=2025-01-12"

	// Scheduler
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	DailyUpdateCron string `envconfig:"DAILY_UPDATE_CRON" default:"30 19 * * *"`
	RunUpdateOnBoot bool   `envconfig:"RUN_UPDATE_ON_BOOT" default:"false"`

	// Backfill
	BackfillStartID int           `envconfig:"BACKFILL_START_ID" default:"628"`
	BackfillEndID   int           `envconfig:"BACKFILL_END_ID" default:"626"`
	BackfillPause   time.Duration `envconfig:"BACKFILL_PAUSE" default:"8s"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.CacheMode {
	case "readwrite", "disabled", "only":
	default:
		return fmt.Errorf("SUMO_CACHE_MODE must be readwrite, disabled or only, got %q", c.CacheMode)
	}

	switch c.CacheBackend {
	case "fs", "redis":
	default:
		return fmt.Errorf("SUMO_CACHE_BACKEND must be fs or redis, got %q", c.CacheBackend)
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if _, err := c.DateOverrideMap(); err != nil {
		return err
	}

	return nil
}

// DateOverrideMap parses the operator-curated tournament start date table:
// a semicolon-separated list of tournament_id=YYYY-MM-DD pairs.
func (c *Config) DateOverrideMap() (map[int]time.Time, error) {
	overrides := make(map[int]time.Time)
	if c.DateOverrides == "" {
		return overrides, nil
	}

	for _, pair := range strings.Split(c.DateOverrides, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed TOURNAMENT_DATE_OVERRIDES entry %q", pair)
		}

		id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed tournament id in TOURNAMENT_DATE_OVERRIDES entry %q", pair)
		}

		start, err := time.Parse("2006-01-02", strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed date in TOURNAMENT_DATE_OVERRIDES entry %q", pair)
		}

		overrides[id] = start
	}

	return overrides, nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
