// Command auditit runs the inventory audit tracker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/config"
	"github.com/erazemk/auditit/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
}

func newRootCommand() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "auditit",
		Short:         "Track warehouse items through their lifecycle with an append-only audit trail",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("AUDITIT_CONFIG"), "YAML config file (optional)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(newServeCommand(&flags))
	cmd.AddCommand(newInitCommand(&flags))
	cmd.AddCommand(newMigrateCommand(&flags))
	return cmd
}

// loadConfig loads the dotenv file and then the config.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}
	return config.Load(flags.configPath)
}

// setupLogger builds the process logger and installs it as the zap global.
func setupLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, cleanup, err := logging.New(logging.Options{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		File:     cfg.Log.File,
	})
	if err != nil {
		return nil, nil, err
	}
	restore := zap.ReplaceGlobals(log)
	return log, func() {
		restore()
		cleanup()
	}, nil
}
