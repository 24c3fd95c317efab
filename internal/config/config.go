package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Availability AvailabilityConfig
	Waitlist     WaitlistConfig
	RateLimit    RateLimitConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
	MigrationsPath string
}

type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

type AvailabilityConfig struct {
	// ActiveStatuses overrides which reservation states occupy a resource.
	// Empty means the built-in default set.
	ActiveStatuses []string
	ScanWindowDays int
	PoolCacheTTL   time.Duration
}

type WaitlistConfig struct {
	ConfirmWindow time.Duration
	SweepInterval time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("RESORT")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("database.migrationspath", "migrations")
	viper.SetDefault("availability.scanwindowdays", 7)
	viper.SetDefault("availability.poolcachettl", "5m")
	viper.SetDefault("waitlist.confirmwindow", "24h")
	viper.SetDefault("waitlist.sweepinterval", "1m")
	viper.SetDefault("ratelimit.requestspersecond", 20)
	viper.SetDefault("ratelimit.burst", 40)

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	return &cfg, nil
}
