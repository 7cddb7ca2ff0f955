package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/pipeline"
)

type chunkOptions struct {
	minTokens       int
	maxTokens       int
	targetTokens    int
	overlapTokens   int
	respectSections bool
	jsonOutput      bool
	showText        bool
	concurrency     int
}

func newChunkCmd(root *rootOptions) *cobra.Command {
	opts := &chunkOptions{}
	cmd := &cobra.Command{
		Use:   "chunk FILE...",
		Short: "Chunk one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := root.newProcessor(cmd)
			if err != nil {
				return err
			}
			results, err := pipeline.ChunkFiles(cmd.Context(), proc, args, opts.overrides(cmd), opts.concurrency)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(jsonResults(results)); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					printFileResult(out, r, opts.showText)
				}
			}
			return failureSummary(results)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.minTokens, "min-tokens", 0, "Smallest chunk the merger leaves alone")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "Largest chunk the splitter produces")
	f.IntVar(&opts.targetTokens, "target-tokens", 0, "Preferred chunk size for word windows")
	f.IntVar(&opts.overlapTokens, "overlap-tokens", 0, "Tokens repeated between word windows")
	f.BoolVar(&opts.respectSections, "respect-sections", true, "Never let a chunk cross a section boundary")
	f.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	f.BoolVar(&opts.showText, "text", false, "Print the text of every chunk")
	f.IntVarP(&opts.concurrency, "concurrency", "c", 4, "Files processed at once")
	return cmd
}

// overrides includes only the flags given on the command line.
func (o *chunkOptions) overrides(cmd *cobra.Command) *chunker.Overrides {
	var ov chunker.Overrides
	f := cmd.Flags()
	if f.Changed("min-tokens") {
		ov.MinTokens = &o.minTokens
	}
	if f.Changed("max-tokens") {
		ov.MaxTokens = &o.maxTokens
	}
	if f.Changed("target-tokens") {
		ov.TargetTokens = &o.targetTokens
	}
	if f.Changed("overlap-tokens") {
		ov.OverlapTokens = &o.overlapTokens
	}
	if f.Changed("respect-sections") {
		ov.RespectSectionBoundaries = &o.respectSections
	}
	if ov.IsZero() {
		return nil
	}
	return &ov
}

type jsonResult struct {
	Path   string          `json:"path"`
	Title  string          `json:"title,omitempty"`
	Result *chunker.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func jsonResults(results []pipeline.FileResult) []jsonResult {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{Path: r.Path}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			continue
		}
		out[i].Title = r.Outcome.Document.Title
		out[i].Result = &r.Outcome.Result
	}
	return out
}

// failureSummary returns an error when any file could not be parsed or chunked.
func failureSummary(results []pipeline.FileResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil || !r.Outcome.Result.Success {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d files failed", failed, len(results))
}
