// Package config loads the project configuration collaborators of the
// runtime: the spoc.toml project file, the per-mode environment TOMLs and
// the optional settings file.
//
// Expected layout under the project base directory:
//
//	config/spoc.toml          [spoc] mode, debug, apps, plugins
//	config/.env/<mode>.toml   [env] table ("default.toml" is the fallback)
//	config/settings.*         base_dir, installed_apps, plugins
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/spocdev/spoc/apps"
)

// ErrConfiguration is returned when a configuration file is malformed or a
// mandatory value is missing or invalid.
var ErrConfiguration = errors.New("configuration error")

// Spoc is the [spoc] table of spoc.toml.
type Spoc struct {
	Mode    string              `toml:"mode"`
	Debug   bool                `toml:"debug"`
	Apps    map[string][]string `toml:"apps"`
	Plugins map[string][]string `toml:"plugins"`
}

// Project is the parsed project configuration.
type Project struct {
	Spoc Spoc `toml:"spoc"`

	// Path is the spoc.toml the project was read from, or "" when the
	// defaults were used because no file exists.
	Path string `toml:"-"`
}

// Mode returns the configured application mode.
func (p *Project) Mode() apps.Mode {
	return apps.Mode(p.Spoc.Mode)
}

// defaultProject returns the configuration used when no spoc.toml exists.
func defaultProject() *Project {
	return &Project{
		Spoc: Spoc{
			Mode:    string(apps.Development),
			Apps:    map[string][]string{},
			Plugins: map[string][]string{},
		},
	}
}

// LoadProject reads <baseDir>/config/spoc.toml. A missing file yields the
// defaults (development mode, no apps); a malformed file or an unknown mode
// is an error wrapping ErrConfiguration.
func LoadProject(baseDir string) (*Project, error) {
	path := filepath.Join(baseDir, "config", "spoc.toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultProject(), nil
		}
		return nil, fmt.Errorf("read %s; %w (%w)", path, err, ErrConfiguration)
	}

	project := defaultProject()
	if err := toml.Unmarshal(data, project); err != nil {
		return nil, fmt.Errorf("parse %s; %v; %w", path, err, ErrConfiguration)
	}
	project.Path = path

	if project.Spoc.Mode == "" {
		project.Spoc.Mode = string(apps.Development)
	}
	if !project.Mode().Valid() {
		return nil, fmt.Errorf("unknown mode %q in %s; %w", project.Spoc.Mode, path, ErrConfiguration)
	}
	if project.Spoc.Apps == nil {
		project.Spoc.Apps = map[string][]string{}
	}
	if project.Spoc.Plugins == nil {
		project.Spoc.Plugins = map[string][]string{}
	}
	return project, nil
}

// Environment is the [env] table of a mode TOML.
type Environment map[string]any

type envFile struct {
	Env map[string]any `toml:"env"`
}

// LoadEnvironment reads <baseDir>/config/.env/<mode>.toml, falling back to
// default.toml, and returns its [env] table. Missing files yield an empty
// environment; malformed files are an error wrapping ErrConfiguration.
func LoadEnvironment(baseDir string, mode apps.Mode) (Environment, error) {
	envDir := filepath.Join(baseDir, "config", ".env")

	for _, name := range []string{string(mode) + ".toml", "default.toml"} {
		path := filepath.Join(envDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s; %w (%w)", path, err, ErrConfiguration)
		}

		var file envFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s; %v; %w", path, err, ErrConfiguration)
		}
		if file.Env == nil {
			file.Env = map[string]any{}
		}
		return file.Env, nil
	}
	return Environment{}, nil
}
