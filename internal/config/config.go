// Package config provides configuration loading, validation, and management
// for the MoreBots directory bot. It reads a YAML file, MOREBOTS_* environment
// variables (optionally seeded from a .env file), applies defaults and
// validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration marks every error that makes the configuration unusable.
var ErrConfiguration = errors.New("configuration error")

const envPrefix = "MOREBOTS"

// Config defines the application configuration parameters for all components.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Fiat      FiatConfig      `mapstructure:"fiat"`
	Payments  PaymentsConfig  `mapstructure:"payments"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the transport credentials and the administrator identity.
type TelegramConfig struct {
	Token         string `mapstructure:"token"          validate:"required"`
	AdminUsername string `mapstructure:"admin_username" validate:"required"`
	AdminChatID   int64  `mapstructure:"admin_chat_id"  validate:"gte=0"`

	// BotUsername is filled at runtime from getMe and is not read from config.
	BotUsername string `mapstructure:"-" validate:"-"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// DirectoryConfig tunes the listing and the reputation refresh policy.
type DirectoryConfig struct {
	RefreshIntervalHours int `mapstructure:"refresh_interval_hours" validate:"min=1"`
	NewItemWindowDays    int `mapstructure:"new_item_window_days"   validate:"min=0"`
}

// IdentityConfig configures the identity service client.
type IdentityConfig struct {
	BaseURL           string        `mapstructure:"base_url"            validate:"required,url"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"min=1s,max=5m"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst"               validate:"min=1"`
	BatchSize         int           `mapstructure:"batch_size"          validate:"min=1,max=500"`

	Resilience ResilienceConfig `mapstructure:"resilience"`
}

// FiatConfig configures the exchange rate client used for donations.
type FiatConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"min=1s,max=5m"`

	Resilience ResilienceConfig `mapstructure:"resilience"`
}

// ResilienceConfig tunes retries and the circuit breaker around a remote service.
type ResilienceConfig struct {
	RetryAttempts   uint          `mapstructure:"retry_attempts"   validate:"max=10"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"      validate:"min=0,max=1m"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"min=0,max=1h"`
}

// PaymentsConfig describes the native payment currency and the donation reference value.
type PaymentsConfig struct {
	Currency          string  `mapstructure:"currency"           validate:"required,len=3"`
	Decimals          int     `mapstructure:"decimals"           validate:"min=0,max=18"`
	ProviderToken     string  `mapstructure:"provider_token"`
	ReferenceCurrency string  `mapstructure:"reference_currency" validate:"required,len=3"`
	ReferenceAmount   float64 `mapstructure:"reference_amount"   validate:"gt=0"`
}

// SchedulerConfig lists cron tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron expression (seconds field included).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-visible text. Fields ending in Fmt are
// fmt templates taking the @username (or the values noted next to them).
type MessagesConfig struct {
	Welcome         string `mapstructure:"welcome"          validate:"required"`
	ListHeader      string `mapstructure:"list_header"      validate:"required"`
	ListEmpty       string `mapstructure:"list_empty"       validate:"required"`
	AddInstructions string `mapstructure:"add_instructions" validate:"required"`

	DoesNotExistFmt     string `mapstructure:"does_not_exist_fmt"    validate:"required"`
	IsHumanFmt          string `mapstructure:"is_human_fmt"          validate:"required"`
	AlreadyListedFmt    string `mapstructure:"already_listed_fmt"    validate:"required"`
	OptedOutFmt         string `mapstructure:"opted_out_fmt"         validate:"required"`
	AddedFmt            string `mapstructure:"added_fmt"             validate:"required"`
	UsernameConflictFmt string `mapstructure:"username_conflict_fmt" validate:"required"`
	LookupFailedFmt     string `mapstructure:"lookup_failed_fmt"     validate:"required"`

	DeletedFmt   string `mapstructure:"deleted_fmt"   validate:"required"`
	HiddenFmt    string `mapstructure:"hidden_fmt"    validate:"required"`
	UnhiddenFmt  string `mapstructure:"unhidden_fmt"  validate:"required"`
	NotListedFmt string `mapstructure:"not_listed_fmt" validate:"required"`

	RefreshStarted string `mapstructure:"refresh_started" validate:"required"`
	RefreshBusy    string `mapstructure:"refresh_busy"    validate:"required"`
	LastRefreshFmt string `mapstructure:"last_refresh_fmt" validate:"required"` // time, humanized age
	NeverRefreshed string `mapstructure:"never_refreshed" validate:"required"`

	PaymentPending        string `mapstructure:"payment_pending"          validate:"required"`
	PaymentThanks         string `mapstructure:"payment_thanks"           validate:"required"`
	PaymentError          string `mapstructure:"payment_error"            validate:"required"`
	AdminPaymentNoticeFmt string `mapstructure:"admin_payment_notice_fmt" validate:"required"` // payer, amount, currency
	DonationTitle         string `mapstructure:"donation_title"           validate:"required"`
	DonationDescription   string `mapstructure:"donation_description"     validate:"required"`

	FAQLabel   string `mapstructure:"faq_label"   validate:"required"`
	FAQRating  string `mapstructure:"faq_rating"  validate:"required"`
	FAQHidden  string `mapstructure:"faq_hidden"  validate:"required"`
	FAQNewness string `mapstructure:"faq_newness" validate:"required"`
}

// LoadConfig reads configuration from the YAML file at path, overlays
// MOREBOTS_* environment variables, and validates the result. A missing file
// is not an error: defaults and environment are used instead.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env file: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, path, err)
		}
		slog.Info("Configuration file not found, using defaults and environment", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	cfg.Telegram.AdminUsername = NormalizeUsername(cfg.Telegram.AdminUsername)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// RefreshInterval returns the minimum time between two reputation refresh passes.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Directory.RefreshIntervalHours) * time.Hour
}

// NewItemWindow returns how long a freshly added entry is marked as new.
func (c *Config) NewItemWindow() time.Duration {
	return time.Duration(c.Directory.NewItemWindowDays) * 24 * time.Hour
}

// IsAdmin reports whether username is the configured administrator.
func (c *Config) IsAdmin(username string) bool {
	username = NormalizeUsername(username)
	return username != "" && strings.EqualFold(username, c.Telegram.AdminUsername)
}

// NormalizeUsername strips surrounding whitespace and a leading @.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
