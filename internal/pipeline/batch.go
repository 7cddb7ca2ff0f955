package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docchunk/internal/chunker"
)

// FileResult is the outcome for one path in a ChunkFiles call. Exactly one of
// Outcome or Err is set.
type FileResult struct {
	Path    string   `json:"path"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Err     error    `json:"-"`
}

// ChunkFiles processes paths with at most concurrency files in flight.
// Results keep the order of paths. A file that fails to read or parse is
// reported in its FileResult and does not stop the others; only context
// cancellation aborts the batch.
func ChunkFiles(ctx context.Context, proc *Processor, paths []string, overrides *chunker.Overrides, concurrency int) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = chunkFile(proc, path, overrides)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func chunkFile(proc *Processor, path string, overrides *chunker.Overrides) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	o, err := proc.Process(data, filepath.Base(path), overrides)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	return FileResult{Path: path, Outcome: o}
}
