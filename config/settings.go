package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the optional project settings file. It mirrors the settings
// module of a spoc project: a base directory, an explicit ordered app list
// and extra plugin groups.
type Settings struct {
	BaseDir       string              `mapstructure:"base_dir"`
	Debug         bool                `mapstructure:"debug"`
	LogFile       string              `mapstructure:"log_file"`
	LogLevel      string              `mapstructure:"log_level"`
	InstalledApps []string            `mapstructure:"installed_apps"`
	Plugins       map[string][]string `mapstructure:"plugins"`
}

// LoadSettings reads <baseDir>/config/settings.* in any format viper
// understands, with environment overrides under the SPOC prefix. A missing
// file yields defaults; a malformed file is an error wrapping
// ErrConfiguration.
func LoadSettings(baseDir string) (*Settings, error) {
	v := viper.New()

	v.SetConfigName("settings")
	v.AddConfigPath(filepath.Join(baseDir, "config"))

	v.SetEnvPrefix("SPOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_dir", baseDir)
	v.SetDefault("log_file", "spoc.log")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read settings; %v; %w", err, ErrConfiguration)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings; %v; %w", err, ErrConfiguration)
	}

	if settings.BaseDir == "" {
		settings.BaseDir = baseDir
	}
	if settings.Plugins == nil {
		settings.Plugins = map[string][]string{}
	}
	return settings, nil
}
