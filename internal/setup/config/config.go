package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidFilterAction   = errors.New("invalid filter action")
)

// CurrentVersion is the expected version of the config file.
const CurrentVersion = 1

// FilterAction is the consequence a passive filter applies after remediation.
type FilterAction string

const (
	FilterActionNone FilterAction = "none"
	FilterActionWarn FilterAction = "warn"
	FilterActionMute FilterAction = "mute"
)

// Validate checks that the action is one of the known values.
func (a FilterAction) Validate() error {
	switch a {
	case FilterActionNone, FilterActionWarn, FilterActionMute:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFilterAction, a)
	}
}

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Bot        Bot        `koanf:"bot"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Roles      Roles      `koanf:"roles"`
	Warnings   Warnings   `koanf:"warnings"`
	Mute       Mute       `koanf:"mute"`
	Ban        Ban        `koanf:"ban"`
	Notes      Notes      `koanf:"notes"`
	AntiHoist  AntiHoist  `koanf:"anti_hoist"`
	AntiLink   AntiLink   `koanf:"anti_link"`
	Session    Session    `koanf:"session"`

	// Set when a legacy mute.role_id key was found in the config file.
	// The muted role is configured in roles.muted_role_id only; the old key
	// is ignored and the caller should warn the operator about it.
	LegacyMuteRoleKey bool `koanf:"-"`
}

// Bot contains Discord connection configuration.
type Bot struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
	// Guild the bot moderates and registers its commands to.
	GuildID uint64 `koanf:"guild_id"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Directory where log files are written.
	LogDir string `koanf:"log_dir"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Roles contains the role identifiers the moderation pipelines depend on.
type Roles struct {
	// Role that grants access to moderation commands.
	StaffRoleID uint64 `koanf:"staff_role_id"`
	// Role granted to muted members.
	MutedRoleID uint64 `koanf:"muted_role_id"`
}

// Reason is a preset reason offered in the selection menus.
type Reason struct {
	Title       string `koanf:"title"`
	Description string `koanf:"description"`
	Emoji       string `koanf:"emoji"`
}

// Warnings contains warning lifecycle configuration.
type Warnings struct {
	// Days until a warning stops counting and is purged.
	ExpirationDays int `koanf:"expiration_days"`
	// Active warnings that trigger an automatic mute.
	MaxWarnings int `koanf:"max_warnings"`
	// Duration of the automatic mute in hours.
	AutoMuteDurationHours int `koanf:"auto_mute_duration_hours"`
	// Channel warnings are logged to.
	LogChannelID uint64 `koanf:"log_channel_id"`
	// Preset warning reasons.
	Reasons []Reason `koanf:"reasons"`
}

// Mute contains manual mute configuration.
type Mute struct {
	// Default mute duration in hours when none is given.
	DefaultDurationHours int `koanf:"default_duration_hours"`
	// Channel mutes and unmutes are logged to.
	LogChannelID uint64 `koanf:"log_channel_id"`
	// Preset mute reasons.
	Reasons []Reason `koanf:"reasons"`
}

// Ban contains ban configuration.
type Ban struct {
	// Channel bans are logged to.
	LogChannelID uint64 `koanf:"log_channel_id"`
	// Preset ban reasons.
	Reasons []Reason `koanf:"reasons"`
}

// Notes contains note configuration.
type Notes struct {
	// Channel note additions and removals are logged to.
	LogChannelID uint64 `koanf:"log_channel_id"`
}

// AntiHoist contains hoisted display-name filter configuration.
type AntiHoist struct {
	// Enable the filter.
	Enabled bool `koanf:"enabled"`
	// Prefix prepended to hoisted names.
	Prefix string `koanf:"prefix"`
	// Roles exempt from the filter.
	ExemptRoleIDs []uint64 `koanf:"exempt_role_ids"`
	// Channel detections are logged to.
	LogChannelID uint64 `koanf:"log_channel_id"`
	// Consequence applied after renaming (none, warn, mute).
	Action FilterAction `koanf:"action"`
}

// AntiLink contains blocked-link filter configuration.
type AntiLink struct {
	// Enable the filter.
	Enabled bool `koanf:"enabled"`
	// Domains that flag a message when found inside a URL.
	BlockedDomains []string `koanf:"blocked_domains"`
	// Roles exempt from the filter.
	ExemptRoleIDs []uint64 `koanf:"exempt_role_ids"`
	// Channels exempt from the filter.
	ExemptChannelIDs []uint64 `koanf:"exempt_channel_ids"`
	// Channel detections are logged to.
	LogChannelID uint64 `koanf:"log_channel_id"`
	// Consequence applied after deletion (none, warn, mute).
	Action FilterAction `koanf:"action"`
}

// Session contains interactive session configuration.
type Session struct {
	// Minutes before an interactive flow is torn down.
	TTLMinutes int `koanf:"ttl_minutes"`
}

// LoadConfig loads the configuration from the first config.toml found on the
// search path and validates its version and filter actions.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".warden",
		homeDir + "/.warden/config",
		"/etc/warden/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/config.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: config.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Version == 0 {
		return nil, "", ErrConfigVersionMissing
	}

	if config.Version != CurrentVersion {
		return nil, "", fmt.Errorf("%w: expected version %d, got %d",
			ErrConfigVersionMismatch, CurrentVersion, config.Version)
	}

	if err := config.AntiHoist.Action.Validate(); err != nil {
		return nil, "", fmt.Errorf("anti_hoist: %w", err)
	}

	if err := config.AntiLink.Action.Validate(); err != nil {
		return nil, "", fmt.Errorf("anti_link: %w", err)
	}

	// Older deployments configured the muted role under mute.role_id as well.
	config.LegacyMuteRoleKey = k.Exists("mute.role_id")

	return &config, usedConfigPath, nil
}
