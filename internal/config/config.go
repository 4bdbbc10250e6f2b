package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAppName          = "walletledger"
	defaultGRPCAddr         = ":8080"
	defaultAPIToken         = "dev-token"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultRateCacheTTL     = 10 * time.Minute
	defaultRateMaxAge       = 15 * time.Minute
	defaultSchedulerEvery   = time.Hour
	defaultReminderEvery    = 24 * time.Hour
	defaultReminderDays     = 2
	defaultSchedulerWorkers = 4
	defaultShutdownTimeout  = 10 * time.Second
	defaultExchangeAPIURL   = "https://openexchangerates.org/api"
	defaultExchangeTimeout  = 10 * time.Second
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName   string
	GRPCAddr  string
	APIToken  string
	LogLevel  string
	LogFormat string

	DBEnabled bool
	DBConnStr string

	RedisURL     string
	RateCacheTTL time.Duration
	RateMaxAge   time.Duration

	ExchangeAPIEnabled bool
	ExchangeAPIKey     string
	ExchangeAPIURL     string
	ExchangeAPITimeout time.Duration

	SchedulerEnabled     bool
	SchedulerInterval    time.Duration
	ReminderInterval     time.Duration
	ReminderDaysAhead    int
	SchedulerConcurrency int

	ShutdownTimeout time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("GRPC_ADDR", defaultGRPCAddr)
	v.SetDefault("API_TOKEN", defaultAPIToken)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FORMAT", defaultLogFormat)
	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_CONN_STR", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "walletledger")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_CACHE_TTL", defaultRateCacheTTL)
	v.SetDefault("RATE_MAX_AGE", defaultRateMaxAge)
	v.SetDefault("EXCHANGE_API_ENABLED", false)
	v.SetDefault("EXCHANGE_API_KEY", "")
	v.SetDefault("EXCHANGE_API_URL", defaultExchangeAPIURL)
	v.SetDefault("EXCHANGE_API_TIMEOUT", defaultExchangeTimeout)
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_INTERVAL", defaultSchedulerEvery)
	v.SetDefault("REMINDER_INTERVAL", defaultReminderEvery)
	v.SetDefault("REMINDER_DAYS_AHEAD", defaultReminderDays)
	v.SetDefault("SCHEDULER_CONCURRENCY", defaultSchedulerWorkers)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	v.AutomaticEnv()

	cfg := Config{
		AppName:              v.GetString("APP_NAME"),
		GRPCAddr:             v.GetString("GRPC_ADDR"),
		APIToken:             v.GetString("API_TOKEN"),
		LogLevel:             strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:            strings.ToLower(v.GetString("LOG_FORMAT")),
		DBEnabled:            v.GetBool("DB_ENABLED"),
		DBConnStr:            v.GetString("DB_CONN_STR"),
		RedisURL:             v.GetString("REDIS_URL"),
		RateCacheTTL:         v.GetDuration("RATE_CACHE_TTL"),
		RateMaxAge:           v.GetDuration("RATE_MAX_AGE"),
		ExchangeAPIEnabled:   v.GetBool("EXCHANGE_API_ENABLED"),
		ExchangeAPIKey:       v.GetString("EXCHANGE_API_KEY"),
		ExchangeAPIURL:       strings.TrimRight(v.GetString("EXCHANGE_API_URL"), "/"),
		ExchangeAPITimeout:   v.GetDuration("EXCHANGE_API_TIMEOUT"),
		SchedulerEnabled:     v.GetBool("SCHEDULER_ENABLED"),
		SchedulerInterval:    v.GetDuration("SCHEDULER_INTERVAL"),
		ReminderInterval:     v.GetDuration("REMINDER_INTERVAL"),
		ReminderDaysAhead:    v.GetInt("REMINDER_DAYS_AHEAD"),
		SchedulerConcurrency: v.GetInt("SCHEDULER_CONCURRENCY"),
		ShutdownTimeout:      v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	if cfg.DBConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			v.GetString("DB_HOST"), v.GetString("DB_PORT"), v.GetString("DB_USER"),
			v.GetString("DB_PASSWORD"), v.GetString("DB_NAME"))
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.APIToken == "" {
		return fmt.Errorf("API_TOKEN must not be empty")
	}
	if c.RateMaxAge <= 0 {
		return fmt.Errorf("invalid RATE_MAX_AGE: %s", c.RateMaxAge)
	}
	if c.RateCacheTTL < 0 {
		return fmt.Errorf("invalid RATE_CACHE_TTL: %s", c.RateCacheTTL)
	}
	if c.ExchangeAPIEnabled && c.ExchangeAPIKey == "" {
		return fmt.Errorf("EXCHANGE_API_KEY is required when EXCHANGE_API_ENABLED is set")
	}
	if c.SchedulerEnabled && (c.SchedulerInterval <= 0 || c.ReminderInterval <= 0) {
		return fmt.Errorf("SCHEDULER_INTERVAL and REMINDER_INTERVAL must be positive")
	}
	if c.ReminderDaysAhead < 0 {
		return fmt.Errorf("invalid REMINDER_DAYS_AHEAD: %d", c.ReminderDaysAhead)
	}
	if c.SchedulerConcurrency < 1 {
		return fmt.Errorf("invalid SCHEDULER_CONCURRENCY: %d", c.SchedulerConcurrency)
	}
	return nil
}
