package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const spocTomlTemplate = `[spoc]
mode = "development"
debug = true

[spoc.apps]
production = []
staging = []
development = []

[spoc.plugins]
`

const envTomlTemplate = `[env]
`

const settingsTomlTemplate = `log_file = "spoc.log"
log_level = "info"
installed_apps = []

[plugins]
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold the config layout for a new project",
	Long: "Create the canonical project skeleton under the base directory: " +
		"config/spoc.toml, config/.env/development.toml, config/settings.toml " +
		"and the apps/ directory. Existing files are left untouched.",
	Example: `  # Scaffold into the current directory
  spoc init

  # Scaffold into a specific directory
  spoc init --base-dir ./myproject`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	files := map[string]string{
		filepath.Join(baseDir, "config", "spoc.toml"):              spocTomlTemplate,
		filepath.Join(baseDir, "config", ".env", "development.toml"): envTomlTemplate,
		filepath.Join(baseDir, "config", "settings.toml"):          settingsTomlTemplate,
	}

	for path, content := range files {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "exists   %s\n", path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create %s; %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s; %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created  %s\n", path)
	}

	appsDir := filepath.Join(baseDir, "apps")
	if err := os.MkdirAll(appsDir, 0755); err != nil {
		return fmt.Errorf("create %s; %w", appsDir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ready    %s\n", appsDir)
	return nil
}
