// Package config loads propctl settings from a YAML file, PROPCTL_*
// environment variables and command-line flags.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/goliatone/go-props/pkg/activity"
)

// EnvPrefix namespaces environment overrides, e.g. PROPCTL_LOG_LEVEL.
const EnvPrefix = "PROPCTL"

// Config is the resolved tool configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	Evaluator string          `mapstructure:"evaluator"`
	Activity  activity.Config `mapstructure:"activity"`
	State     StateConfig     `mapstructure:"state"`
}

// StateConfig locates the snapshot database.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("evaluator", "expr")
	v.SetDefault("activity.enabled", false)
	v.SetDefault("activity.channel", activity.DefaultChannel)
	v.SetDefault("state.path", "")
}

// New returns a viper instance with defaults and environment binding applied.
// When file is set it is read as YAML.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.Evaluator = strings.ToLower(strings.TrimSpace(cfg.Evaluator))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid log_format %q (want text or json)", c.LogFormat)
	}
	switch c.Evaluator {
	case "expr", "cel", "js":
	default:
		return fmt.Errorf("config: invalid evaluator %q (want expr, cel or js)", c.Evaluator)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Logger builds the slog logger described by the configuration.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
