package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/spocdev/spoc/apps"
	"github.com/spocdev/spoc/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved project configuration",
	Long: "Load config/spoc.toml, the mode environment file and settings.*, " +
		"and print what the runtime would see.",
	Example: `  # Inspect the project in the current directory
  spoc config`,
	RunE: runConfig,
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List the installed apps for the active mode",
	Long: "Expand the per-mode app lists from spoc.toml together with the " +
		"explicit installed_apps from settings.*, in the order the runtime " +
		"registers them.",
	RunE: runApps,
}

func loadProject() (*config.Project, *config.Settings, error) {
	project, err := config.LoadProject(baseDir)
	if err != nil {
		return nil, nil, err
	}
	settings, err := config.LoadSettings(baseDir)
	if err != nil {
		return nil, nil, err
	}
	return project, settings, nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	project, settings, err := loadProject()
	if err != nil {
		return err
	}
	environment, err := config.LoadEnvironment(baseDir, project.Mode())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if project.Path != "" {
		fmt.Fprintf(out, "project   %s\n", project.Path)
	} else {
		fmt.Fprintln(out, "project   (defaults; no spoc.toml found)")
	}
	fmt.Fprintf(out, "mode      %s\n", project.Spoc.Mode)
	fmt.Fprintf(out, "debug     %v\n", project.Spoc.Debug || settings.Debug)

	for _, mode := range []apps.Mode{apps.Production, apps.Staging, apps.Development} {
		if list := project.Spoc.Apps[string(mode)]; len(list) > 0 {
			fmt.Fprintf(out, "apps.%-12s %v\n", mode, list)
		}
	}

	groups := make([]string, 0, len(project.Spoc.Plugins))
	for group := range project.Spoc.Plugins {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		fmt.Fprintf(out, "plugins.%-9s %v\n", group, project.Spoc.Plugins[group])
	}

	keys := make([]string, 0, len(environment))
	for k := range environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "env.%-13s %v\n", k, environment[k])
	}
	return nil
}

func runApps(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	project, settings, err := loadProject()
	if err != nil {
		return err
	}

	installed := apps.ExpandApps(project.Mode(), project.Spoc.Apps, settings.InstalledApps)
	if len(installed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no installed apps")
		return nil
	}
	for _, app := range installed {
		fmt.Fprintln(cmd.OutOrStdout(), app)
	}
	return nil
}
