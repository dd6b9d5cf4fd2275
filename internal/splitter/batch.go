package splitter

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/naming"
	"github.com/mdsohelmia/smartchunking/internal/planner"
)

// SplitAll materializes every chunk of the plan into outDir, creating the
// directory if needed. The first failure aborts the batch and is returned.
//
// Chunks share no mutable state, so with Workers > 1 they are extracted
// concurrently; every worker opens its own source demuxer. The worker count
// never exceeds the chunk count.
func SplitAll(ctx context.Context, source string, plan *planner.Plan, outDir string, opts Options, log *logrus.Logger) error {
	if plan == nil || len(plan.Chunks) == 0 {
		return fmt.Errorf("split: empty plan: %w", media.ErrInvalidInput)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("split: create %s: %w", outDir, err)
	}

	format := media.ResolveFormat(opts.AutoFormat, opts.Format, source)
	ext := naming.ExtensionFor(format)

	workers := opts.Workers
	if workers > len(plan.Chunks) {
		workers = len(plan.Chunks)
	}
	if workers < 2 {
		for _, chunk := range plan.Chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := splitOne(source, chunk, outDir, ext, opts, log); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, chunk := range plan.Chunks {
		chunk := chunk
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			return splitOne(source, chunk, outDir, ext, opts, log)
		})
	}
	return g.Wait()
}

func splitOne(source string, chunk planner.Chunk, outDir, ext string, opts Options, log *logrus.Logger) error {
	path := naming.ChunkPath(outDir, chunk.Index, ext)
	if log != nil {
		log.WithFields(logrus.Fields{
			"chunk": chunk.Index,
			"start": chunk.Start,
			"end":   chunk.End,
			"path":  path,
		}).Info("splitting chunk")
	}
	return SplitChunk(source, chunk, path, opts)
}
