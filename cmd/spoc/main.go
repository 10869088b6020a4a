// Command spoc is the project tooling for spoc-based applications: it
// scaffolds the config layout and inspects the resolved project
// configuration. The runtime itself is a library; apps are compiled into
// the host binary, so this tool only works on the configuration surface.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spocdev/spoc/config"
	"github.com/spocdev/spoc/logging"
)

var logManager *logging.Manager

var baseDir string

var rootCmd = &cobra.Command{
	Use:   "spoc",
	Short: "Project tooling for the spoc application runtime",
	Long: "spoc scaffolds and inspects projects built on the spoc runtime.\n\n" +
		"A project keeps its configuration under <base-dir>/config: spoc.toml " +
		"declares the mode and the per-mode app lists, .env/<mode>.toml holds " +
		"environment values, and settings.* may add explicit apps and plugin groups.",
	PersistentPreRunE: runSetup,
}

func init() {
	logManager = logging.NewManager()
	slog.SetDefault(logManager.Logger())

	rootCmd.PersistentFlags().StringVarP(&baseDir, "base-dir", "b", ".", "Project base directory")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(versionCmd)
}

// runSetup upgrades logging from bootstrap mode once the project settings
// are readable: text to stderr plus rotated JSON at the configured path
// and level.
func runSetup(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings(baseDir)
	if err != nil {
		return err
	}

	level, ok := logging.ParseLevel(settings.LogLevel)
	if !ok {
		slog.Warn("unknown log level, using default", "log_level", settings.LogLevel)
	}
	if settings.Debug {
		level = slog.LevelDebug
	}

	logPath := settings.LogFile
	if logPath == "" {
		logPath = "spoc.log"
	}
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(settings.BaseDir, logPath)
	}
	return logManager.Upgrade(logging.FileOptions{Path: logPath}, level)
}

func main() {
	defer func() { _ = logManager.Close() }()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
