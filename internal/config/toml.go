package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps typing test settings. Unset keys stay nil so command
// line flags and defaults can be layered over them.
type PracticeConfig struct {
	Mode        *string  `toml:"mode"`
	Words       *int     `toml:"words"`
	Seconds     *int     `toml:"time"`
	Punctuation *bool    `toml:"punctuation"`
	Numbers     *bool    `toml:"numbers"`
	WordList    *string  `toml:"wordlist"`
	FocusWeak   *bool    `toml:"focus-weak"`
	WeakTop     *int     `toml:"weak-top"`
	WeakFactor  *float64 `toml:"weak-factor"`
	WeakWindow  *int     `toml:"weak-window"`
}

// ServerConfig maps the remote service settings.
type ServerConfig struct {
	URL    *string `toml:"url"`
	Listen *string `toml:"listen"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
	File   *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
