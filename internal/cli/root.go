// Package cli wires the channel's commands: the long-running gateway,
// one-shot sends, the connectivity probe, the MCP server and registry
// inspection.
package cli

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openclaw/feishu-channel/internal/conf"
)

var (
	configPath string
	logLevel   string

	cfg *conf.Config
	log = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:           "feishu-channel",
	Short:         "Feishu/Lark channel gateway for chat-bot hosts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional, same as running with exported vars.
		_ = godotenv.Load()

		var err error
		cfg, err = conf.Load(configPath)
		if err != nil {
			return err
		}

		level := logLevel
		if level == "" {
			level = cfg.LogLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger().
			Level(parseLevel(level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "feishu-channel.json", "path to the JSON or YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(chatsCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "silent":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
