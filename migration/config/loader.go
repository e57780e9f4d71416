package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. NOTESHEETS_SHEET_TITLE.
const EnvPrefix = "NOTESHEETS"

const keyDelim = "::"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	// Archive file names contain dots, so "." cannot be the key delimiter.
	return &Loader{v: viper.NewWithOptions(viper.KeyDelimiter(keyDelim))}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load applies, in order: built-in defaults, the config file, NOTESHEETS_* env vars.
// A missing config file is only an error when one was set explicitly.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFileUsed returns the config file that was loaded, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from path, or from the default search paths when
// path is empty.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("note-sheets")
	v.SetConfigType("yaml")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "note-sheets"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		v.AddConfigPath(filepath.Join(home, ".config", "note-sheets"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelim, "_"))

	// Scalars only: the roster and list fields come from defaults or the file.
	v.SetDefault("zone_offset_hours", cfg.ZoneOffsetHours)
	v.SetDefault("language", cfg.Language)
	v.SetDefault("items_field", cfg.ItemsField)
	v.SetDefault("max_selected", cfg.MaxSelected)
	v.SetDefault("sheet_title", cfg.SheetTitle)
	v.SetDefault("logging::level", cfg.Logging.Level)
	v.SetDefault("logging::format", cfg.Logging.Format)

	for _, key := range []string{
		"zone_offset_hours",
		"language",
		"items_field",
		"max_selected",
		"sheet_title",
		"logging::level",
		"logging::format",
	} {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, keyDelim, "_")))
	}
	v.AutomaticEnv()
}

func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && l.configFile == "" {
			return nil
		}
		return err
	}
	return nil
}
