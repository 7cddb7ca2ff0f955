package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docchunk/internal/config"
	"github.com/dgallion1/docchunk/internal/pipeline"
)

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docchunk",
		Short: "Split documents into token-bounded chunks",
		Long: `docchunk parses PDF, DOCX, Markdown, HTML, CSV and text files, detects their
heading structure and splits them into chunks sized for retrieval.

Defaults come from the environment and the TOML file named by DOCCHUNK_CONFIG;
flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(newChunkCmd(opts), newOutlineCmd(opts))
	return cmd
}

// newProcessor builds a Processor from the loaded config. Chunking overrides
// are applied per call, not here.
func (o *rootOptions) newProcessor(cmd *cobra.Command) (*pipeline.Processor, error) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return pipeline.NewProcessorFromConfig(cfg, log)
}
