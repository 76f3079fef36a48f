// Package cmd implements the mdmend CLI using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/mdmend/config"
	"github.com/gaurav-prasanna/mdmend/logging"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	// Resolved by the root PersistentPreRunE before any subcommand runs.
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mdmend",
	Short: "mdmend repairs Markdown that renders wrong",
	Long: `mdmend repairs Markdown produced by converters and editors so that it
renders as intended. Its core fix restores bold spans written with spaces
inside the markers ("** text **") and removes spaces between a bold span
and the punctuation that follows it.

Usage:
  mdmend fix [paths...] [flags]
  mdmend audit [paths...]
  mdmend preview <file>
  mdmend convert <url> [flags]`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default: mdmend.yaml in ., $XDG_CONFIG_HOME/mdmend, ~/.config/mdmend)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: console, json")
}

// setup loads configuration and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	if flagConfig != "" {
		v.SetConfigFile(flagConfig)
	}
	if err := v.BindPFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
		return wrapValidationError(err)
	}
	if err := v.BindPFlag("log.format", cmd.Flags().Lookup("log-format")); err != nil {
		return wrapValidationError(err)
	}

	loaded, err := config.Load(v)
	if err != nil {
		return wrapValidationError(err)
	}

	log, err := logging.New(loaded.Log.Level, loaded.Log.Format, nil)
	if err != nil {
		return wrapValidationError(err)
	}

	cfg = loaded
	logger = log
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("Loaded configuration", zap.String("file", used))
	}
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
