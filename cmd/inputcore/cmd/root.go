// Package cmd implements the inputcore CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsmuxer/inputcore/internal/errs"
)

var rootCmd = &cobra.Command{
	Use:   "inputcore",
	Short: "Demultiplex and frame manifest-declared tracks into an interleaved packet trace",
	Long: `inputcore loads a track manifest, opens each declared stream, and pulls
the interleaver to completion, logging packet flow. It stands in for the
downstream TS/M2TS muxer, which is out of scope for this core.`,
}

var (
	logLevel  string
	logFormat string
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}

func initLogging() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ExitCode maps a returned error onto a process exit code: a
// *errs.ConfigError gets 10 + its Kind, a *errs.StreamError gets 20 + its
// Kind, and any other error gets 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cfgErr *errs.ConfigError
	var streamErr *errs.StreamError
	switch {
	case errors.As(err, &cfgErr):
		return 10 + int(cfgErr.Kind)
	case errors.As(err, &streamErr):
		return 20 + int(streamErr.Kind)
	default:
		return 1
	}
}

func fatal(err error) error {
	return fmt.Errorf("inputcore: %w", err)
}
