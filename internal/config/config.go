package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dineflow/ordersync/pkg/db"
)

// Config holds application configuration. It is constructed once at startup
// and threaded through constructors; nothing mutates it afterwards.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	LogFormat   string

	HTTPHost string
	HTTPPort int

	DB db.Config

	API      APIConfig
	Sync     SyncConfig
	Schedule ScheduleConfig
	Kafka    KafkaConfig

	// FiscalYearStartMonth is the calendar month (1-12) the fiscal year
	// begins on. July by default.
	FiscalYearStartMonth int

	Restaurants []RestaurantConfig
}

// APIConfig configures the POS order API collaborator.
type APIConfig struct {
	BaseURL          string
	PageSize         int
	RequestTimeout   int // seconds
	APIClient        int
	APIClientVersion int
}

// SyncConfig controls pacing and retry behaviour of the sync loop.
type SyncConfig struct {
	MaxRetries         int
	BackoffFactor      float64
	DelayBetweenOrders float64 // seconds
	DelayBetweenPages  float64 // seconds
	DelayOnError       float64 // seconds
	PollingInterval    int     // seconds between full cycles
	MaxPages           int     // 0 = unlimited

	// SkipDuplicateChecks bypasses checkpoint and existence checks so every
	// fetched order is reprocessed. Used for forced backfills.
	SkipDuplicateChecks bool
}

// ScheduleConfig defines when the pipeline is allowed to run.
type ScheduleConfig struct {
	ActiveDays  []string
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

// RestaurantConfig identifies one restaurant account on the POS API.
type RestaurantConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Load reads configuration from environment variables (with .env support) and,
// when ORDERSYNC_CONFIG_FILE is set, the restaurant roster from that YAML file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_NAME", "ordersync"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "json"),

		HTTPHost: getenv("HTTP_HOST", "0.0.0.0"),
		HTTPPort: getenvInt("HTTP_PORT", 8040),

		DB: db.Config{
			Type:            getenv("DATABASE_TYPE", "postgres"),
			Host:            getenv("DATABASE_HOST", "localhost"),
			Port:            getenv("DATABASE_PORT", "5432"),
			Name:            getenv("DATABASE_NAME", "ordersync"),
			User:            getenv("DATABASE_USER", "postgres"),
			Password:        getenv("DATABASE_PASSWORD", ""),
			SSLMode:         getenv("DATABASE_SSLMODE", "disable"),
			MaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
			MaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
			ConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
			ConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
		},

		API: APIConfig{
			BaseURL:          getenv("POS_API_BASE_URL", ""),
			PageSize:         getenvInt("POS_API_PAGE_SIZE", 5),
			RequestTimeout:   getenvInt("POS_API_REQUEST_TIMEOUT", 30),
			APIClient:        getenvInt("POS_API_CLIENT", 1),
			APIClientVersion: getenvInt("POS_API_CLIENT_VERSION", 196),
		},

		Sync: SyncConfig{
			MaxRetries:          getenvInt("SYNC_MAX_RETRIES", 3),
			BackoffFactor:       getenvFloat("SYNC_BACKOFF_FACTOR", 1.5),
			DelayBetweenOrders:  getenvFloat("SYNC_DELAY_BETWEEN_ORDERS", 1),
			DelayBetweenPages:   getenvFloat("SYNC_DELAY_BETWEEN_PAGES", 2),
			DelayOnError:        getenvFloat("SYNC_DELAY_ON_ERROR", 10),
			PollingInterval:     getenvInt("SYNC_POLLING_INTERVAL", 300),
			MaxPages:            getenvInt("SYNC_MAX_PAGES", 0),
			SkipDuplicateChecks: getenvBool("SYNC_SKIP_DUPLICATE_CHECKS", false),
		},

		Schedule: ScheduleConfig{
			ActiveDays:  splitAndTrim(getenv("SCHEDULE_ACTIVE_DAYS", "MONDAY,TUESDAY,WEDNESDAY,THURSDAY,FRIDAY,SATURDAY,SUNDAY")),
			StartHour:   getenvInt("SCHEDULE_START_HOUR", 0),
			StartMinute: getenvInt("SCHEDULE_START_MINUTE", 0),
			EndHour:     getenvInt("SCHEDULE_END_HOUR", 23),
			EndMinute:   getenvInt("SCHEDULE_END_MINUTE", 59),
		},

		Kafka: KafkaConfig{
			Brokers:    splitAndTrim(getenv("KAFKA_BOOTSTRAP_SERVERS", "")),
			OrderTopic: getenv("KAFKA_ORDER_TOPIC", "order-synced"),
		},

		FiscalYearStartMonth: getenvInt("FISCAL_YEAR_START_MONTH", 7),
	}

	if path := strings.TrimSpace(getenv("ORDERSYNC_CONFIG_FILE", "")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	return cfg, cfg.validate()
}

// loadFile merges the restaurant roster (and optional schedule override) from
// a YAML config file.
func (c *Config) loadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var file struct {
		Restaurants []RestaurantConfig `mapstructure:"restaurants"`
		Schedule    *ScheduleConfig    `mapstructure:"schedule"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.Restaurants = file.Restaurants
	if file.Schedule != nil {
		c.Schedule = *file.Schedule
	}
	return nil
}

func (c Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

func (c Config) validate() error {
	if c.HTTPPort <= 0 {
		return fmt.Errorf("HTTP_PORT is invalid")
	}
	if c.DB.Type != "sqlite" && (c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "") {
		return fmt.Errorf("database config is incomplete")
	}
	if len(c.Schedule.ActiveDays) == 0 {
		return fmt.Errorf("schedule has no active days")
	}
	if c.FiscalYearStartMonth < 1 || c.FiscalYearStartMonth > 12 {
		return fmt.Errorf("FISCAL_YEAR_START_MONTH must be 1-12")
	}
	return nil
}

/* ================= helpers ================= */

func getenv(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getenvInt(key string, defaultVal int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getenvFloat(key string, defaultVal float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getenvBool(key string, defaultVal bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if val := strings.TrimSpace(p); val != "" {
			out = append(out, val)
		}
	}
	return out
}
