// Package config loads and validates the bot configuration.
package config

import (
	"fmt"
	"net/url"

	"github.com/spf13/viper"
)

// Config is the top-level bot configuration.
type Config struct {
	BotName    string                `mapstructure:"bot_name"`
	BotURL     string                `mapstructure:"bot_url"`
	Listen     string                `mapstructure:"listen"`
	NotifyRoom string                `mapstructure:"notify_room"`
	TokenDB    string                `mapstructure:"token_db"`
	Rooms      map[string]RoomConfig `mapstructure:"rooms"`
	Logging    LoggingConfig         `mapstructure:"logging"`
}

// RoomConfig binds a room name to an Overseerr server. MoreRooms
// lists additional room names that share the same server.
type RoomConfig struct {
	URL       string   `mapstructure:"url"`
	APIKey    string   `mapstructure:"api_key"`
	MoreRooms []string `mapstructure:"more_rooms"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("bot_name", "overbot")
	v.SetDefault("listen", ":8080")
	v.SetDefault("token_db", "overbot-tokens.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := validateURL("bot_url", c.BotURL); err != nil {
		return err
	}
	if len(c.Rooms) == 0 {
		return fmt.Errorf("config: at least one room is required")
	}

	seen := make(map[string]string)
	for name, room := range c.Rooms {
		if name == "" {
			return fmt.Errorf("config: room names must not be empty")
		}
		if err := validateURL(fmt.Sprintf("rooms.%s.url", name), room.URL); err != nil {
			return err
		}
		seen[name] = name
	}
	for name, room := range c.Rooms {
		for _, alias := range room.MoreRooms {
			if alias == "" {
				return fmt.Errorf("config: rooms.%s.more_rooms entries must not be empty", name)
			}
			if other, dup := seen[alias]; dup {
				return fmt.Errorf("config: room name %q defined by both %q and %q", alias, other, name)
			}
			seen[alias] = name
		}
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("config: %s is required", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("config: %s must be an absolute URL, got %q", field, raw)
	}
	return nil
}
