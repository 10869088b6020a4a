package spoc

import (
	"fmt"
	"log/slog"

	"github.com/spocdev/spoc/apps"
	"github.com/spocdev/spoc/config"
	"github.com/spocdev/spoc/modules"
)

// Plugin is one loaded plugin-group entry: the dotted URI it was declared
// under and the value the importer resolved for it.
type Plugin struct {
	URI   string
	Value any
}

// Options configures a Framework.
type Options struct {
	// BaseDir is the project root holding apps/ and config/.
	BaseDir string

	// Schema declares the slot modules, their dependencies and hooks.
	Schema apps.Schema

	// ImportMode selects strict (default) or loose code-unit loading.
	ImportMode modules.Mode

	// Registry overrides the host code-unit registry. Defaults to the
	// process-wide modules.Default.
	Registry *modules.Registry

	// Logger overrides slog.Default().
	Logger *slog.Logger
}

// Framework is the assembled runtime: configuration, installed apps,
// discovered components and loaded plugins. All exposed state is immutable
// after New returns; reads need no synchronisation.
type Framework struct {
	BaseDir       string
	Mode          apps.Mode
	Debug         bool
	Project       *config.Project
	Settings      *config.Settings
	Environment   config.Environment
	InstalledApps []string

	// Components is keyed by slot name, then by "<app>.<export>".
	Components map[string]map[string]any

	// Plugins is keyed by group name; each group keeps declaration order.
	Plugins map[string][]Plugin

	importer *modules.Importer
	logger   *slog.Logger
}

// New builds a framework: it loads the project configuration, expands the
// installed apps for the active mode, registers every app/slot pair and
// runs topological startup. The returned framework is fully started.
func New(opts Options) (*Framework, error) {
	if opts.BaseDir == "" {
		return nil, fmt.Errorf("base dir must not be empty; %w", config.ErrConfiguration)
	}
	if opts.ImportMode == "" {
		opts.ImportMode = modules.Strict
	}
	if opts.Registry == nil {
		opts.Registry = modules.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	project, err := config.LoadProject(opts.BaseDir)
	if err != nil {
		return nil, err
	}
	mode := project.Mode()

	environment, err := config.LoadEnvironment(opts.BaseDir, mode)
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings(opts.BaseDir)
	if err != nil {
		return nil, err
	}

	importer := modules.New(
		modules.WithMode(opts.ImportMode),
		modules.WithRegistry(opts.Registry),
		modules.WithLogger(opts.Logger),
	)

	installed := apps.ExpandApps(mode, project.Spoc.Apps, settings.InstalledApps)
	resolver := apps.NewResolver(opts.Schema, importer)
	if err := resolver.Register(installed); err != nil {
		return nil, err
	}

	if err := importer.Startup(); err != nil {
		return nil, err
	}

	plugins, err := loadPlugins(importer, project.Spoc.Plugins, settings.Plugins)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("framework started",
		"mode", string(mode),
		"apps", len(installed),
	)

	return &Framework{
		BaseDir:       opts.BaseDir,
		Mode:          mode,
		Debug:         project.Spoc.Debug || settings.Debug,
		Project:       project,
		Settings:      settings,
		Environment:   environment,
		InstalledApps: installed,
		Components:    importer.Components(),
		Plugins:       plugins,
		importer:      importer,
		logger:        opts.Logger,
	}, nil
}

// loadPlugins resolves every plugin-group URI through the importer. Group
// lists from the project config come first, then the settings lists; the
// first occurrence of a URI wins. Loose-mode misses are skipped.
func loadPlugins(importer *modules.Importer, fromProject, fromSettings map[string][]string) (map[string][]Plugin, error) {
	groups := make(map[string][]string)
	var order []string

	merge := func(src map[string][]string) {
		for group, uris := range src {
			if _, ok := groups[group]; !ok {
				order = append(order, group)
			}
			groups[group] = append(groups[group], uris...)
		}
	}
	merge(fromProject)
	merge(fromSettings)

	loaded := make(map[string][]Plugin, len(groups))
	for _, group := range order {
		seen := make(map[string]struct{})
		for _, uri := range groups[group] {
			if _, ok := seen[uri]; ok {
				continue
			}
			seen[uri] = struct{}{}

			value, err := importer.LoadFromURI(uri)
			if err != nil {
				return nil, fmt.Errorf("plugin group %q; %w", group, err)
			}
			if value == nil {
				continue
			}
			loaded[group] = append(loaded[group], Plugin{URI: uri, Value: value})
		}
	}
	return loaded, nil
}

// Component returns the discovered component stored under slot and key
// ("<app>.<export>").
func (f *Framework) Component(slot, key string) (any, bool) {
	byKey, ok := f.Components[slot]
	if !ok {
		return nil, false
	}
	v, ok := byKey[key]
	return v, ok
}

// Importer exposes the underlying importer for cache maintenance and
// tests.
func (f *Framework) Importer() *modules.Importer {
	return f.importer
}

// Shutdown tears every module down in reverse dependency order.
func (f *Framework) Shutdown() error {
	f.logger.Info("framework stopping")
	return f.importer.Shutdown()
}
