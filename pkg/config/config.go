package config

import (
	"fmt"
	"time"

	"github.com/Proton-105/guild-ledger/pkg/redis"
)

// Config holds runtime configuration for the ledger bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Bot       BotConfig       `mapstructure:"bot"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     redis.Config    `mapstructure:"redis"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Access    AccessConfig    `mapstructure:"access"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	State     StateConfig     `mapstructure:"state"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	// File enables a rotated log file next to stdout output.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type BotConfig struct {
	Token   string        `mapstructure:"token" validate:"required"`
	Mode    string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	Timeout time.Duration `mapstructure:"timeout"`
	// WebhookListen is the local address the webhook poller binds to.
	WebhookListen string `mapstructure:"webhook_listen"`
	WebhookURL    string `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	// LogChatID is the staff chat where requests are posted for review.
	LogChatID int64 `mapstructure:"log_chat_id" validate:"required"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host          string `mapstructure:"host" validate:"required"`
	Port          string `mapstructure:"port" validate:"required"`
	User          string `mapstructure:"user" validate:"required"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name" validate:"required"`
	SSLMode       string `mapstructure:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir"`
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		sslMode,
	)
}

type LedgerConfig struct {
	// MaxAmount caps a single request, in major units ("1000000.00").
	MaxAmount     string        `mapstructure:"max_amount"`
	IDWidth       int           `mapstructure:"id_width" validate:"omitempty,gte=4,lte=16"`
	IDAttempts    int           `mapstructure:"id_attempts" validate:"omitempty,gte=1"`
	MaxPending    int           `mapstructure:"max_pending" validate:"omitempty,gte=1"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
}

type ApproverConfig struct {
	UserID int64  `mapstructure:"user_id" validate:"required"`
	Role   string `mapstructure:"role" validate:"omitempty,oneof=approver supervisor"`
	// MaxAmount limits the transfers an approver may resolve; empty means unlimited.
	MaxAmount string `mapstructure:"max_amount"`
}

type AccessConfig struct {
	Approvers    []ApproverConfig `mapstructure:"approvers" validate:"min=1,dive"`
	RequestChats []int64          `mapstructure:"request_chats"`
	ResolveChats []int64          `mapstructure:"resolve_chats"`
}

type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

type CommandLimits struct {
	Deposit  RateLimitRule `mapstructure:"deposit"`
	Withdraw RateLimitRule `mapstructure:"withdraw"`
	Register RateLimitRule `mapstructure:"register"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Commands  CommandLimits `mapstructure:"commands"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

type JobsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Concurrency  int           `mapstructure:"concurrency"`
	DigestCron   string        `mapstructure:"digest_cron"`
	DigestMinAge time.Duration `mapstructure:"digest_min_age"`
}

type StateConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type I18nConfig struct {
	Dir         string `mapstructure:"dir"`
	DefaultLang string `mapstructure:"default_lang"`
}
