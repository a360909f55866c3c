package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Spot Relay.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Relay    RelayConfig    `yaml:"relay"`
	Prices   PricesConfig   `yaml:"prices"`
	Telegram TelegramConfig `yaml:"telegram"`
	State    StateConfig    `yaml:"state"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Timezone string `yaml:"timezone"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// RelayConfig describes the relay being driven and the confirmation protocol.
type RelayConfig struct {
	// BaseTopic is the device's topic prefix on the broker.
	// Command and status topics are derived: <base>/<index>/set and <base>/<index>/get.
	BaseTopic string `yaml:"base_topic"`

	// Index selects the relay channel on multi-channel devices.
	Index int `yaml:"index"`

	// MaxAttempts is the actuation retry budget per invocation.
	MaxAttempts int `yaml:"max_attempts"`

	// ConfirmTimeout is the per-attempt confirmation window in seconds.
	ConfirmTimeout int `yaml:"confirm_timeout"`
}

// PricesConfig contains day-ahead price settings.
type PricesConfig struct {
	// LimitEUR is the price threshold in EUR/MWh; below it the relay is on.
	LimitEUR float64 `yaml:"limit_eur"`

	// CachePath is the CSV cache written by the fetcher and read by cycles.
	CachePath string `yaml:"cache_path"`

	// SourceURL is the market-data endpoint. The literal placeholder
	// 2006-01-02 in the URL is replaced with the trading day at fetch time.
	SourceURL string `yaml:"source_url"`

	// SkewMinutes is added to the clock before resolving the quarter-hour
	// period, so a run just before the boundary prices the period it is
	// actually switching for.
	SkewMinutes int `yaml:"skew_minutes"`

	Fetch PriceFetchConfig `yaml:"fetch"`
}

// PriceFetchConfig contains download retry settings.
type PriceFetchConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	RetryDelay  int `yaml:"retry_delay"`
	Timeout     int `yaml:"timeout"`
}

// TelegramConfig contains notification settings.
// With an empty token or chat ID, notifications are logged and skipped.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Timeout  int    `yaml:"timeout"`
}

// StateConfig contains the persisted last-confirmed-state slot settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig contains SQLite settings for the actuation history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ScheduleConfig contains the session run alignment.
// The reference deployment runs at X:45 and then three more quarter-hours.
type ScheduleConfig struct {
	MinuteMark     int `yaml:"minute_mark"`
	RunsPerSession int `yaml:"runs_per_session"`
	RunInterval    int `yaml:"run_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SPOTRELAY_SECTION_KEY
// For example: SPOTRELAY_MQTT_HOST, SPOTRELAY_TELEGRAM_BOT_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "spotrelay-001",
			Timezone: "Europe/Prague",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "spotrelay",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Relay: RelayConfig{
			Index:          1,
			MaxAttempts:    3,
			ConfirmTimeout: 120,
		},
		Prices: PricesConfig{
			LimitEUR:    13.0,
			CachePath:   "./data/ceny_ote.csv",
			SourceURL:   "https://www.ote-cr.cz/cs/kratkodobe-trhy/elektrina/denni-trh/@@chart-data?report_date=2006-01-02",
			SkewMinutes: 6,
			Fetch: PriceFetchConfig{
				MaxAttempts: 5,
				RetryDelay:  300,
				Timeout:     30,
			},
		},
		Telegram: TelegramConfig{
			Timeout: 15,
		},
		State: StateConfig{
			Path: "./data/last_state",
		},
		Database: DatabaseConfig{
			Path:        "./data/spotrelay.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Schedule: ScheduleConfig{
			MinuteMark:     45,
			RunsPerSession: 4,
			RunInterval:    15,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SPOTRELAY_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("SPOTRELAY_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SPOTRELAY_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("SPOTRELAY_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SPOTRELAY_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Relay
	if v := os.Getenv("SPOTRELAY_RELAY_BASE_TOPIC"); v != "" {
		cfg.Relay.BaseTopic = v
	}

	// Telegram
	if v := os.Getenv("SPOTRELAY_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("SPOTRELAY_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}

	// State and database paths
	if v := os.Getenv("SPOTRELAY_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("SPOTRELAY_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("SPOTRELAY_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for missing or inconsistent values.
//
// Returns:
//   - error: Describing all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA zone", c.Site.Timezone))
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Relay validation
	if c.Relay.BaseTopic == "" {
		errs = append(errs, "relay.base_topic is required (set SPOTRELAY_RELAY_BASE_TOPIC environment variable)")
	}
	if c.Relay.Index < 1 {
		errs = append(errs, "relay.index must be at least 1")
	}
	if c.Relay.MaxAttempts < 1 {
		errs = append(errs, "relay.max_attempts must be at least 1")
	}
	if c.Relay.ConfirmTimeout < 1 {
		errs = append(errs, "relay.confirm_timeout must be at least 1 second")
	}

	// Prices validation
	if c.Prices.CachePath == "" {
		errs = append(errs, "prices.cache_path is required")
	}
	if c.Prices.Fetch.MaxAttempts < 1 {
		errs = append(errs, "prices.fetch.max_attempts must be at least 1")
	}

	// State and database validation
	if c.State.Path == "" {
		errs = append(errs, "state.path is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Schedule validation
	if c.Schedule.MinuteMark < 0 || c.Schedule.MinuteMark > 59 {
		errs = append(errs, "schedule.minute_mark must be between 0 and 59")
	}
	if c.Schedule.RunsPerSession < 1 {
		errs = append(errs, "schedule.runs_per_session must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the configured site timezone.
// Validate guarantees the zone loads; a zero Config falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConfirmTimeoutDuration returns the per-attempt confirmation window as a Duration.
func (c *RelayConfig) ConfirmTimeoutDuration() time.Duration {
	return time.Duration(c.ConfirmTimeout) * time.Second
}

// RetryDelayDuration returns the fetch retry delay as a Duration.
func (c *PriceFetchConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

// TimeoutDuration returns the HTTP request timeout as a Duration.
func (c *PriceFetchConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// TimeoutDuration returns the Telegram request timeout as a Duration.
func (c *TelegramConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RunIntervalDuration returns the gap between session runs as a Duration.
func (c *ScheduleConfig) RunIntervalDuration() time.Duration {
	return time.Duration(c.RunInterval) * time.Minute
}
