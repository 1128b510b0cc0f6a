// Package cli wires the epub2md commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simp-lee/epub2md/internal/config"
	"github.com/simp-lee/epub2md/internal/logger"
)

// app carries the state resolved before any subcommand runs.
type app struct {
	configFile string
	debug      bool
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand builds the epub2md command tree.
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	a := &app{log: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "epub2md",
		Short: "Convert ePub books into Markdown and a JSON manifest",
		Long: `epub2md extracts the reading order of an ePub 2 or ePub 3 book into typed
blocks and writes them out as content.md, with a synthesized table of
contents, extracted images and a manifest.json summary.

Settings are read from .epub2md.{yaml,toml,json} in the home or working
directory and from EPUB2MD_* environment variables. Flags win over both.`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default searches for .epub2md in $HOME and .)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newParseCommand(a),
		newValidateCommand(a),
		newInspectCommand(a),
		newVersionCommand(version, commit, buildDate),
	)
	return rootCmd
}

// setup loads the configuration and builds the logger. Persistent flags
// override the configuration only when given explicitly.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = a.debug
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	a.log.Debug("configuration loaded",
		zap.String("config", a.configFile),
		zap.Int("max_chunk", cfg.MaxChunk),
		zap.Bool("extract_images", cfg.ExtractImages))
	return nil
}

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "epub2md %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
