package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DISCORD_EVENTS_SYNC_"

// Calendar sources.
const (
	SourceGoogle = "google"
	SourceICS    = "ics"
	SourceCalDAV = "caldav"
)

// Defaults.
const (
	DefaultSyncWindowDays = 7
	DefaultMaxResults     = 100
	DefaultWriteInterval  = "1s"
	DefaultSchedule       = "*/15 * * * *"
	DefaultCalendarID     = "primary"
)

// ConfigurationError reports a required setting that is missing or invalid.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// Config holds the configuration for the event sync tool.
type Config struct {
	DiscordGuildID       string `json:"discord_guild_id,omitempty" yaml:"discord_guild_id,omitempty" toml:"discord_guild_id,omitempty"`
	DiscordBotToken      string `json:"discord_bot_token,omitempty" yaml:"discord_bot_token,omitempty" toml:"discord_bot_token,omitempty"`
	DiscordApplicationID string `json:"discord_application_id,omitempty" yaml:"discord_application_id,omitempty" toml:"discord_application_id,omitempty"`

	CalendarSource string `json:"calendar_source,omitempty" yaml:"calendar_source,omitempty" toml:"calendar_source,omitempty"` // "google" (default), "ics" or "caldav"

	// Google Calendar. One of APIKey, ServiceAccountPath or CredentialsPath
	// (OAuth user flow, with TokenPath) must be set.
	GoogleCalendarID         string `json:"google_calendar_id,omitempty" yaml:"google_calendar_id,omitempty" toml:"google_calendar_id,omitempty"`
	GoogleAPIKey             string `json:"google_api_key,omitempty" yaml:"google_api_key,omitempty" toml:"google_api_key,omitempty"`
	GoogleServiceAccountPath string `json:"google_service_account_path,omitempty" yaml:"google_service_account_path,omitempty" toml:"google_service_account_path,omitempty"`
	GoogleCredentialsPath    string `json:"google_credentials_path,omitempty" yaml:"google_credentials_path,omitempty" toml:"google_credentials_path,omitempty"`
	GoogleTokenPath          string `json:"google_token_path,omitempty" yaml:"google_token_path,omitempty" toml:"google_token_path,omitempty"`

	ICSURL string `json:"ics_url,omitempty" yaml:"ics_url,omitempty" toml:"ics_url,omitempty"`

	// CalDAV calendar collection, e.g. an iCloud calendar. Use an
	// app-specific password.
	CalDAVURL      string `json:"caldav_url,omitempty" yaml:"caldav_url,omitempty" toml:"caldav_url,omitempty"`
	CalDAVUsername string `json:"caldav_username,omitempty" yaml:"caldav_username,omitempty" toml:"caldav_username,omitempty"`
	CalDAVPassword string `json:"caldav_password,omitempty" yaml:"caldav_password,omitempty" toml:"caldav_password,omitempty"`

	SyncWindowDays int    `json:"sync_window_days,omitempty" yaml:"sync_window_days,omitempty" toml:"sync_window_days,omitempty"` // default: 7
	MaxResults     int64  `json:"max_results,omitempty" yaml:"max_results,omitempty" toml:"max_results,omitempty"`                // default: 100
	WriteInterval  string `json:"write_interval,omitempty" yaml:"write_interval,omitempty" toml:"write_interval,omitempty"`       // Go duration, default: 1s
	JournalPath    string `json:"journal_path,omitempty" yaml:"journal_path,omitempty" toml:"journal_path,omitempty"`             // optional
	Schedule       string `json:"schedule,omitempty" yaml:"schedule,omitempty" toml:"schedule,omitempty"`                         // cron spec for the schedule command

	// WriteEvery is WriteInterval parsed by LoadConfig.
	WriteEvery time.Duration `json:"-" yaml:"-" toml:"-"`
}

// SyncWindow returns how far ahead calendar events are read.
func (c *Config) SyncWindow() time.Duration {
	return time.Duration(c.SyncWindowDays) * 24 * time.Hour
}

// LoadConfigFromFile loads configuration from a JSON, YAML or TOML file,
// chosen by extension. Unknown extensions are read as JSON.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	case ".toml":
		err = toml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// envString lists the string settings read from the environment.
func envString(c *Config) map[string]*string {
	return map[string]*string{
		"DISCORD_GUILD_ID":                     &c.DiscordGuildID,
		"DISCORD_BOT_TOKEN":                    &c.DiscordBotToken,
		"DISCORD_APPLICATION_ID":               &c.DiscordApplicationID,
		"CALENDAR_SOURCE":                      &c.CalendarSource,
		"GOOGLE_CALENDAR_CALENDAR_ID":          &c.GoogleCalendarID,
		"GOOGLE_CALENDAR_API_KEY":              &c.GoogleAPIKey,
		"GOOGLE_CALENDAR_SERVICE_ACCOUNT_PATH": &c.GoogleServiceAccountPath,
		"GOOGLE_CREDENTIALS_PATH":              &c.GoogleCredentialsPath,
		"GOOGLE_TOKEN_PATH":                    &c.GoogleTokenPath,
		"ICS_URL":                              &c.ICSURL,
		"CALDAV_URL":                           &c.CalDAVURL,
		"CALDAV_USERNAME":                      &c.CalDAVUsername,
		"CALDAV_PASSWORD":                      &c.CalDAVPassword,
		"WRITE_INTERVAL":                       &c.WriteInterval,
		"JOURNAL_PATH":                         &c.JournalPath,
		"SCHEDULE":                             &c.Schedule,
	}
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags (non-zero fields of flags)
// 2. Environment variables (EnvPrefix + name)
// 3. Config file
// 4. Defaults
// Returns a *ConfigurationError if any required value is missing.
func LoadConfig(configFile string, flags *Config) (*Config, error) {
	config, err := Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Load merges the configuration sources like LoadConfig but leaves
// validation to the caller, for commands that need only part of it.
func Load(configFile string, flags *Config) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	for name, field := range envString(&config) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*field = v
		}
	}
	if v := os.Getenv(EnvPrefix + "SYNC_WINDOW_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ConfigurationError{Field: "sync_window_days", Message: fmt.Sprintf("invalid %sSYNC_WINDOW_DAYS value: %v", EnvPrefix, err)}
		}
		config.SyncWindowDays = days
	}
	if v := os.Getenv(EnvPrefix + "MAX_RESULTS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &ConfigurationError{Field: "max_results", Message: fmt.Sprintf("invalid %sMAX_RESULTS value: %v", EnvPrefix, err)}
		}
		config.MaxResults = n
	}

	// Step 3: Override with command-line flags (highest priority)
	if flags != nil {
		overlay(&config, flags)
	}

	// Step 4: Apply defaults
	applyDefaults(&config)
	return &config, nil
}

func overlay(dst, src *Config) {
	srcFields := envString(src)
	for name, field := range envString(dst) {
		if v := *srcFields[name]; v != "" {
			*field = v
		}
	}
	if src.SyncWindowDays != 0 {
		dst.SyncWindowDays = src.SyncWindowDays
	}
	if src.MaxResults != 0 {
		dst.MaxResults = src.MaxResults
	}
}

func applyDefaults(c *Config) {
	if c.CalendarSource == "" {
		c.CalendarSource = SourceGoogle
	}
	if c.GoogleCalendarID == "" {
		c.GoogleCalendarID = DefaultCalendarID
	}
	if c.SyncWindowDays == 0 {
		c.SyncWindowDays = DefaultSyncWindowDays
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.WriteInterval == "" {
		c.WriteInterval = DefaultWriteInterval
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
}

func required(field, env string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: fmt.Sprintf("must be provided via flag, %s%s environment variable, or config file", EnvPrefix, env),
	}
}

// Validate checks the settings needed before a pass can run and parses
// WriteInterval into WriteEvery.
func (c *Config) Validate() error {
	if err := c.ValidateDiscord(); err != nil {
		return err
	}
	if err := c.ValidateCalendar(); err != nil {
		return err
	}

	d, err := time.ParseDuration(c.WriteInterval)
	if err != nil {
		return &ConfigurationError{Field: "write_interval", Message: fmt.Sprintf("invalid duration '%s': %v", c.WriteInterval, err)}
	}
	if d < 0 {
		return &ConfigurationError{Field: "write_interval", Message: fmt.Sprintf("must not be negative, got %s", d)}
	}
	c.WriteEvery = d
	return nil
}

// ValidateDiscord checks the guild and bot settings.
func (c *Config) ValidateDiscord() error {
	if c.DiscordGuildID == "" {
		return required("discord_guild_id", "DISCORD_GUILD_ID")
	}
	if c.DiscordBotToken == "" {
		return required("discord_bot_token", "DISCORD_BOT_TOKEN")
	}
	if c.DiscordApplicationID == "" {
		return required("discord_application_id", "DISCORD_APPLICATION_ID")
	}
	return nil
}

// ValidateCalendar checks the calendar source and window settings.
func (c *Config) ValidateCalendar() error {
	switch c.CalendarSource {
	case SourceGoogle:
		if c.GoogleAPIKey == "" && c.GoogleServiceAccountPath == "" && c.GoogleCredentialsPath == "" {
			return &ConfigurationError{
				Field:   "google_api_key",
				Message: "one of google_api_key, google_service_account_path or google_credentials_path must be provided for the google calendar source",
			}
		}
		if c.GoogleAPIKey == "" && c.GoogleServiceAccountPath == "" && c.GoogleTokenPath == "" {
			return required("google_token_path", "GOOGLE_TOKEN_PATH")
		}
	case SourceICS:
		if c.ICSURL == "" {
			return required("ics_url", "ICS_URL")
		}
	case SourceCalDAV:
		if c.CalDAVURL == "" {
			return required("caldav_url", "CALDAV_URL")
		}
		if c.CalDAVUsername == "" {
			return required("caldav_username", "CALDAV_USERNAME")
		}
		if c.CalDAVPassword == "" {
			return required("caldav_password", "CALDAV_PASSWORD")
		}
	default:
		return &ConfigurationError{Field: "calendar_source", Message: fmt.Sprintf("must be '%s', '%s' or '%s', got '%s'", SourceGoogle, SourceICS, SourceCalDAV, c.CalendarSource)}
	}

	if c.SyncWindowDays < 0 {
		return &ConfigurationError{Field: "sync_window_days", Message: fmt.Sprintf("must not be negative, got %d", c.SyncWindowDays)}
	}
	if c.MaxResults < 0 {
		return &ConfigurationError{Field: "max_results", Message: fmt.Sprintf("must not be negative, got %d", c.MaxResults)}
	}
	return nil
}
