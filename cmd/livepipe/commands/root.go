package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/livepipe/cmd/livepipe/internal/config"
)

var (
	// Global flags
	verbose bool

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "livepipe",
	Short: "Live duplex session pipeline for realtime model backends",
	Long: `livepipe - stream conversations against realtime model backends.

Backends:
  gemini   Gemini Live API
  openai   OpenAI Realtime API

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/livepipe/
  Linux:   ~/.config/livepipe/
  Windows: %AppData%/livepipe/

Examples:
  # Create a context and configure a backend
  livepipe config add-context dev
  livepipe config set-gemini --api-key YOUR_KEY
  livepipe config use-context dev

  # Chat interactively
  livepipe chat --backend gemini

  # Run the WebSocket gateway
  livepipe serve --addr 127.0.0.1:8089 --backend gemini`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Commands that need config get a clear error via GetConfig();
		// commands like 'livepipe version' keep working.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
