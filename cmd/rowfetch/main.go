// rowfetch exports the resources listed in a spreadsheet into one ZIP of
// workbooks without running the web server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rowfetch/internal/config"
	"github.com/JonMunkholm/rowfetch/internal/core"
	"github.com/JonMunkholm/rowfetch/internal/logging"
	_ "github.com/JonMunkholm/rowfetch/internal/profiles" // Register all naming profiles
)

var version = "dev"

// Global flags
var (
	logLevel string
	envFile  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, mutedStyle.Render(core.FormatUserError(err)))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rowfetch",
		Short:         "Fetch the URLs of a row list and archive them as workbooks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load settings from this .env file")

	root.AddCommand(newExportCmd(), newValidateCmd(), newProfilesCmd())
	return root
}

// loadConfig reads settings from the environment, after an optional .env file.
// Unlike the server, the CLI never overrides variables already set.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(os.Stderr, logLevel, cfg.Logging.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
