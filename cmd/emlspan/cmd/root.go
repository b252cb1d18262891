// Package cmd implements the emlspan command line tool: batch
// verification, repair, migration, redaction, and suggestion over a
// corpus directory of .eml files with sibling span JSON files.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "emlspan",
		Short: "Tools for email PII span corpora",
		Long: "emlspan operates on a corpus directory of .eml files with\n" +
			"sibling <name>.spans.json files. Every command processes the\n" +
			"documents independently: one broken document never aborts the\n" +
			"batch.",
		PersistentPreRunE: setup,
	}

	cfgPath   string
	corpusDir string
	cfg       *Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&corpusDir, "corpus", "C", ".", "corpus directory")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = loadConfig(cfgPath)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}
