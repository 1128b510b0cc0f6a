package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simp-lee/epub2md"
	"github.com/simp-lee/epub2md/internal/config"
	"github.com/simp-lee/epub2md/internal/output"
)

type parseFlags struct {
	out              string
	noImages         bool
	keepNav          bool
	maxChunk         int
	includeNonLinear bool
	skipLicense      bool
	quiet            bool
}

func newParseCommand(a *app) *cobra.Command {
	var f parseFlags

	cmd := &cobra.Command{
		Use:   "parse EPUB --out DIR",
		Short: "Extract an ePub into content.md, manifest.json and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, extract := parseOptions(cmd, a.cfg, f)
			opts.Logger = a.log
			if extract {
				opts.ImageStore = epub2md.DirImageStore{Root: f.out}
			}

			a.log.Info("parsing", zap.String("epub", args[0]), zap.String("out", f.out))
			doc, err := epub2md.Parse(args[0], opts)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			manifest, err := output.NewWriter(f.out, a.log).Write(doc)
			if err != nil {
				return err
			}
			if f.quiet {
				return nil
			}
			data, err := manifest.MarshalIndent()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.out, "out", "o", "", "output directory")
	flags.BoolVar(&f.noImages, "no-images", false, "do not extract images")
	flags.BoolVar(&f.keepNav, "keep-nav", false, "keep navigation, aside, header and footer content")
	flags.IntVar(&f.maxChunk, "max-chunk", epub2md.DefaultChunkBudget, "character budget per paragraph block (0 disables splitting)")
	flags.BoolVar(&f.includeNonLinear, "include-nonlinear", false, "also extract spine items marked linear=\"no\"")
	flags.BoolVar(&f.skipLicense, "skip-license", false, "drop Project Gutenberg license pages")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "do not print the manifest")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// parseOptions merges the configuration with explicitly set flags and reports
// whether images should be extracted.
func parseOptions(cmd *cobra.Command, cfg *config.Config, f parseFlags) (epub2md.Options, bool) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	opts := epub2md.DefaultOptions()
	opts.MaxChunk = cfg.MaxChunk
	opts.KeepNavigation = cfg.KeepNav
	opts.IncludeNonLinear = cfg.IncludeNonLinear
	opts.SkipLicensePages = cfg.SkipLicense
	opts.ExtraPlaceholders = cfg.ExtraPlaceholders
	extract := cfg.ExtractImages

	flags := cmd.Flags()
	if flags.Changed("max-chunk") {
		opts.MaxChunk = f.maxChunk
	}
	if flags.Changed("keep-nav") {
		opts.KeepNavigation = f.keepNav
	}
	if flags.Changed("include-nonlinear") {
		opts.IncludeNonLinear = f.includeNonLinear
	}
	if flags.Changed("skip-license") {
		opts.SkipLicensePages = f.skipLicense
	}
	if flags.Changed("no-images") {
		extract = !f.noImages
	}
	return opts, extract
}
