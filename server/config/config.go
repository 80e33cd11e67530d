package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	DefaultListenAddress = "0.0.0.0:8447"

	DefaultBaseURL          = "https://www.jcb.jp/uploads/"
	DefaultTimezone         = "Local"
	DefaultFetchTimeout     = "30s"
	DefaultRetryCooldown    = "1h"
	DefaultPrefetchInterval = "1h"
	DefaultMaxLookbackDays  = 30

	DefaultOrigin = "JPY"
	DefaultTarget = "TWD"
)

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrInvalidBaseURL       = errors.New("invalid base URL")
	ErrInvalidTimezone      = errors.New("invalid timezone")
	ErrInvalidDuration      = errors.New("invalid duration")
	ErrInvalidLookback      = errors.New("invalid max lookback days")
	ErrInvalidCacheSize     = errors.New("invalid cache size")
	ErrInvalidCurrency      = errors.New("invalid default currency")
	ErrInvalidWebhookURL    = errors.New("invalid webhook URL")
	ErrMissingToken         = errors.New("bot token required to register the webhook")
)

var (
	listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)
	currencyRegex      = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The rate table source and lookup policy
	RatesConfig *RatesConfig `toml:"rates_config"`

	// The chat bot settings
	BotConfig *BotConfig `toml:"bot_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`
}

// RatesConfig defines where rate tables come from, and how hard to look for them
type RatesConfig struct {
	// The URL tables are published under, as <base_url><YYYYMMDD>.csv
	BaseURL string `toml:"base_url"`

	// The IANA timezone used to decide what "today" is
	Timezone string `toml:"timezone"`

	// Durations, in time.ParseDuration format
	FetchTimeout     string `toml:"fetch_timeout"`
	RetryCooldown    string `toml:"retry_cooldown"`
	PrefetchInterval string `toml:"prefetch_interval"`

	// How many days before today are checked for a published table.
	// 0 means the default
	MaxLookbackDays int `toml:"max_lookback_days"`

	// The number of cached tables. 0 means unbounded
	CacheSize int `toml:"cache_size"`
}

// BotConfig defines the chat bot settings
type BotConfig struct {
	// The Bot API token, used to register the webhook
	Token string `toml:"token"`

	// The public URL Telegram delivers updates to. If set,
	// the webhook is registered with Telegram on startup
	WebhookURL string `toml:"webhook_url"`

	// The secret token Telegram sends with each webhook update, if any
	WebhookSecret string `toml:"webhook_secret"`

	// The pair used for amount-only messages
	DefaultOrigin string `toml:"default_origin"`
	DefaultTarget string `toml:"default_target"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		CORSConfig:    DefaultCORSConfig(),
		RatesConfig:   DefaultRatesConfig(),
		BotConfig:     DefaultBotConfig(),
	}
}

// DefaultRatesConfig returns the default rates configuration
func DefaultRatesConfig() *RatesConfig {
	return &RatesConfig{
		BaseURL:          DefaultBaseURL,
		Timezone:         DefaultTimezone,
		FetchTimeout:     DefaultFetchTimeout,
		RetryCooldown:    DefaultRetryCooldown,
		PrefetchInterval: DefaultPrefetchInterval,
		MaxLookbackDays:  DefaultMaxLookbackDays,
	}
}

// DefaultBotConfig returns the default bot configuration
func DefaultBotConfig() *BotConfig {
	return &BotConfig{
		DefaultOrigin: DefaultOrigin,
		DefaultTarget: DefaultTarget,
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	if config.RatesConfig != nil {
		if err := validateRatesConfig(config.RatesConfig); err != nil {
			return err
		}
	}

	if config.BotConfig != nil {
		if err := validateBotConfig(config.BotConfig); err != nil {
			return err
		}
	}

	return nil
}

func validateRatesConfig(c *RatesConfig) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	for _, d := range []string{c.FetchTimeout, c.RetryCooldown, c.PrefetchInterval} {
		if _, err := parsePositiveDuration(d); err != nil {
			return err
		}
	}

	if c.MaxLookbackDays < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLookback, c.MaxLookbackDays)
	}

	if c.CacheSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.CacheSize)
	}

	return nil
}

func validateBotConfig(c *BotConfig) error {
	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("%w: %q (must be https)", ErrInvalidWebhookURL, c.WebhookURL)
		}

		if c.Token == "" {
			return ErrMissingToken
		}
	}

	for _, currency := range []string{c.DefaultOrigin, c.DefaultTarget} {
		if !currencyRegex.MatchString(currency) {
			return fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
		}
	}

	return nil
}

// Location returns the configured timezone
func (c *RatesConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Timezone)
	}

	return loc, nil
}

// FetchTimeoutDuration returns the per-request timeout of the rate source
func (c *RatesConfig) FetchTimeoutDuration() time.Duration {
	d, _ := parsePositiveDuration(c.FetchTimeout) //nolint:errcheck // Validated

	return d
}

// RetryCooldownDuration returns the minimum time between attempts at today's table
func (c *RatesConfig) RetryCooldownDuration() time.Duration {
	d, _ := parsePositiveDuration(c.RetryCooldown) //nolint:errcheck // Validated

	return d
}

// PrefetchIntervalDuration returns how often today's table is prefetched
func (c *RatesConfig) PrefetchIntervalDuration() time.Duration {
	d, _ := parsePositiveDuration(c.PrefetchInterval) //nolint:errcheck // Validated

	return d
}

func parsePositiveDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, v)
	}

	return d, nil
}

// Read reads the configuration from the given path.
// Settings left out of the file take their default values
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	var cfg Config

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults fills in the unset settings
func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if cfg.RatesConfig == nil {
		cfg.RatesConfig = DefaultRatesConfig()
	}

	if cfg.BotConfig == nil {
		cfg.BotConfig = DefaultBotConfig()
	}

	var (
		rates      = cfg.RatesConfig
		bot        = cfg.BotConfig
		setDefault = func(v *string, def string) {
			if *v == "" {
				*v = def
			}
		}
	)

	setDefault(&rates.BaseURL, DefaultBaseURL)
	setDefault(&rates.Timezone, DefaultTimezone)
	setDefault(&rates.FetchTimeout, DefaultFetchTimeout)
	setDefault(&rates.RetryCooldown, DefaultRetryCooldown)
	setDefault(&rates.PrefetchInterval, DefaultPrefetchInterval)

	if rates.MaxLookbackDays == 0 {
		rates.MaxLookbackDays = DefaultMaxLookbackDays
	}

	setDefault(&bot.DefaultOrigin, DefaultOrigin)
	setDefault(&bot.DefaultTarget, DefaultTarget)
}
