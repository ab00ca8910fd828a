package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/jarvis/internal/cli"
	"github.com/aretw0/jarvis/internal/config"
	"github.com/aretw0/jarvis/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jarvis",
	Short: "Jarvis is a personal assistant built from cooperating agents",
	Long: `Jarvis routes each message to a main agent that answers directly or delegates
to its nutrition, workout and email sub-agents, pausing to ask you when it needs more.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./jarvis.yaml, then ~/.config/jarvis/jarvis.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for threads, profiles and capability settings")
	rootCmd.PersistentFlags().String("store", "", "Thread store: memory, file or redis")
	rootCmd.PersistentFlags().String("oracle", "", "Reasoning backend: openai or echo")
	rootCmd.PersistentFlags().String("user", "", "User the capabilities act for")
}

// loadConfig reads the configuration with this command's flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWithFlags(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.NewWithWriter(os.Stderr, level, cfg.LogFormat == "json"), nil
}

// setup builds the engine for cmd. Commands that never call the oracle
// pass cli.WithOracle so they work without credentials.
func setup(cmd *cobra.Command, opts ...cli.Option) (*cli.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if logger.Enabled(cmd.Context(), slog.LevelDebug) {
		opts = append(opts, cli.WithDebugHooks())
	}
	return cli.Build(cfg, logger, opts...)
}
