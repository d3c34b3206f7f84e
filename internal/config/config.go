package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Services ServicesConfig `mapstructure:"services"`
	RPE      RPEConfig      `mapstructure:"rpe"`
	Macros   MacrosConfig   `mapstructure:"macros"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// RedisConfig covers both the task queue and the advisory locks.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// UpstreamConfig describes one external HTTP store.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// ServicesConfig lists the external stores the engine talks to.
type ServicesConfig struct {
	Capacity UpstreamConfig `mapstructure:"capacity"`
	Workout  UpstreamConfig `mapstructure:"workout"`
	Exercise UpstreamConfig `mapstructure:"exercise"`
}

// RPEConfig points at an optional chart override file; the built-in
// chart is used when the path is empty.
type RPEConfig struct {
	ChartFile string `mapstructure:"chart_file"`
}

// MacrosConfig controls the scheduled macro passes.
type MacrosConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CronSpec string `mapstructure:"cron_spec"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	// Nested keys map to env vars, e.g. services.workout.base_url ->
	// SERVICES_WORKOUT_BASE_URL.
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "plan_engine")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("services.capacity.timeout", "10s")
	viper.SetDefault("services.capacity.retries", 3)
	viper.SetDefault("services.workout.timeout", "15s")
	viper.SetDefault("services.workout.retries", 3)
	viper.SetDefault("services.exercise.timeout", "15s")
	viper.SetDefault("services.exercise.retries", 3)
	viper.SetDefault("macros.enabled", false)
	viper.SetDefault("macros.cron_spec", "0 3 * * *")

	err = viper.ReadInConfig()
	// A missing config file is fine, env vars and defaults still apply.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
