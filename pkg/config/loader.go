// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// secretKeys are usually injected through the environment rather than YAML.
var secretKeys = []string{
	"bot.token",
	"database.password",
	"redis.password",
	"sentry.dsn",
}

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// missing env files are fine outside local development
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "./configs"
	}

	return LoadFile(filepath.Join(dir, env+".yaml"), env)
}

// LoadFile reads a single YAML file with environment overrides.
func LoadFile(path, env string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch reloads the file on change and hands every valid config to onChange.
// Invalid edits are logged and ignored so a typo cannot drop the approver list.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			log.Error("config reload rejected", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", "10s")
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("ledger.max_amount", "1000000.00")
	v.SetDefault("ledger.id_width", 6)
	v.SetDefault("ledger.id_attempts", 16)
	v.SetDefault("ledger.max_pending", 10000)
	v.SetDefault("ledger.notify_timeout", "5s")
	v.SetDefault("jobs.concurrency", 10)
	v.SetDefault("jobs.digest_cron", "0 * * * *")
	v.SetDefault("jobs.digest_min_age", "1h")
	v.SetDefault("state.ttl", "30m")
	v.SetDefault("state.cleanup_interval", "5m")
	v.SetDefault("i18n.default_lang", "en")
}
