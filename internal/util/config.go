package util

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

const (
	BrokerDriverRedis = "redis"
	BrokerDriverNATS  = "nats"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AllowedOrigins    []string      `mapstructure:"ALLOWED_ORIGINS"`
	HTTPServerAddress string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	RedisMaxRetries   int           `mapstructure:"REDIS_MAX_RETRIES"`
	RedisMinBackoff   time.Duration `mapstructure:"REDIS_MIN_BACKOFF"`
	RedisMaxBackoff   time.Duration `mapstructure:"REDIS_MAX_BACKOFF"`
	BrokerDriver      string        `mapstructure:"BROKER_DRIVER"`
	NATSURL           string        `mapstructure:"NATS_URL"`
	DrawTTL           time.Duration `mapstructure:"DRAW_TTL"`
	KeepAliveInterval time.Duration `mapstructure:"KEEP_ALIVE_INTERVAL"`
	SimulatorDelay    time.Duration `mapstructure:"SIMULATOR_DELAY"`
	Timezone          string        `mapstructure:"TIMEZONE"`
	DrawTime          string        `mapstructure:"DRAW_TIME"`
	DailySimulation   bool          `mapstructure:"DAILY_SIMULATION"`
	FeedURL           string        `mapstructure:"FEED_URL"`
	FeedPollInterval  time.Duration `mapstructure:"FEED_POLL_INTERVAL"`
	FeedTimeout       time.Duration `mapstructure:"FEED_TIMEOUT"`
	InitialRateLimit  int           `mapstructure:"INITIAL_RATE_LIMIT"`
	InitialRateWindow time.Duration `mapstructure:"INITIAL_RATE_WINDOW"`
	StreamRateLimit   int           `mapstructure:"STREAM_RATE_LIMIT"`
	StreamRateWindow  time.Duration `mapstructure:"STREAM_RATE_WINDOW"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error: defaults and the environment still apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	// Set defaults for non-sensitive config
	v.SetDefault("ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("HTTP_SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_MAX_RETRIES", 5)
	v.SetDefault("REDIS_MIN_BACKOFF", "200ms")
	v.SetDefault("REDIS_MAX_BACKOFF", "5s")
	v.SetDefault("BROKER_DRIVER", BrokerDriverRedis)
	v.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	v.SetDefault("DRAW_TTL", "2h")
	v.SetDefault("KEEP_ALIVE_INTERVAL", "15s")
	v.SetDefault("SIMULATOR_DELAY", "500ms")
	v.SetDefault("TIMEZONE", "Asia/Ho_Chi_Minh")
	v.SetDefault("DRAW_TIME", "18:15")
	v.SetDefault("DAILY_SIMULATION", false)
	v.SetDefault("FEED_URL", "")
	v.SetDefault("FEED_POLL_INTERVAL", "5s")
	v.SetDefault("FEED_TIMEOUT", "3s")
	v.SetDefault("INITIAL_RATE_LIMIT", 100)
	v.SetDefault("INITIAL_RATE_WINDOW", "1m")
	v.SetDefault("STREAM_RATE_LIMIT", 5000)
	v.SetDefault("STREAM_RATE_WINDOW", "15m")

	// Prefer environment variables over config file
	v.AutomaticEnv()

	// Load config file
	v.SetConfigFile(path)
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return
		}
		err = nil
	}

	// Unmarshal config into struct
	err = v.Unmarshal(&config)
	if err != nil {
		return
	}

	// Validate required configuration
	err = validateConfig(config)
	return
}

func validateConfig(config Config) error {
	if config.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if config.BrokerDriver != BrokerDriverRedis && config.BrokerDriver != BrokerDriverNATS {
		return fmt.Errorf("BROKER_DRIVER must be %q or %q", BrokerDriverRedis, BrokerDriverNATS)
	}
	if config.BrokerDriver == BrokerDriverNATS && config.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when BROKER_DRIVER is nats")
	}
	if config.DrawTTL <= 0 {
		return fmt.Errorf("DRAW_TTL must be positive")
	}
	if _, _, err := ParseClock(config.DrawTime); err != nil {
		return fmt.Errorf("DRAW_TIME: %w", err)
	}
	if config.InitialRateLimit <= 0 || config.StreamRateLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	return nil
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(value string) (hour, minute uint, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("%q must use the HH:MM format", value)
	}
	return uint(t.Hour()), uint(t.Minute()), nil
}

// LoadLocation loads the service calendar, falling back to UTC+7 when the
// tz database is not available in the image.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}
