package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/reptrack/internal/config"
	"github.com/andresmejia3/reptrack/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Cfg is the loaded configuration shared by subcommands
	Cfg *config.Config
	// configPath points at the TOML config file
	configPath string
	logLevel   string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "reptrack",
	Short:   "Camera-driven exercise repetition counter",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// An explicit --config must exist; the default path is optional
		optional := !cmd.Flags().Changed("config")
		loaded, err := config.Load(configPath, optional)
		if err != nil {
			return err
		}
		Cfg = loaded

		// REPTRACK_LOG_LEVEL still wins inside logging.Init
		level := Cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		logging.Init(level)

		if config.Exists(configPath) {
			log.Debug().Str("path", configPath).Msg("config loaded")
		}
		return nil
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
