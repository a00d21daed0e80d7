package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/djivites/startup-intelligence-rag-sample/internal/config"
)

var (
	noColor  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "startupintel",
	Short: "Startup funding intelligence over news feeds and VC blogs",
	Long: `startupintel crawls startup funding news and VC blog posts, extracts
structured facts with a language model, indexes them, and answers questions
grounded on the indexed facts.

Typical flow:
  startupintel ingest
  startupintel facts
  startupintel index
  startupintel ask "Which fintech startups raised a Series A?"`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if level == "" {
			if cfg, err := config.Load(); err == nil {
				level = cfg.Log.Level
			}
		}
		lvl, err := parseLogLevel(level)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", colorDisabledByDefault(), "disable colored output (default when NO_COLOR is set or stderr is not a terminal)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from log.level)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(processedCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}
