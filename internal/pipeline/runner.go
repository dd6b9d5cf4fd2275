package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mdsohelmia/smartchunking/internal/config"
	"github.com/mdsohelmia/smartchunking/internal/display"
	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/planner"
	"github.com/mdsohelmia/smartchunking/internal/probe"
	"github.com/mdsohelmia/smartchunking/internal/splitter"
	"github.com/mdsohelmia/smartchunking/internal/stitcher"
)

// Stage names used in StageError, in pipeline order.
const (
	StageProbe  = "probe"
	StagePlan   = "plan"
	StageSplit  = "split"
	StageStitch = "stitch"
	StageVerify = "verify"
)

// StageError tags a failure with the pipeline stage it happened in, so the
// CLI can map stages to exit codes.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Run executes probe -> plan -> split -> stitch for one source asset and
// returns aggregate stats. Failures abort the run at the failing stage.
func Run(ctx context.Context, cfg *config.Config, log *logrus.Logger) (RunStats, error) {
	var stats RunStats
	start := time.Now()

	// --- Probe ---
	log.WithField("input", cfg.Input).Info("probing source")
	meta, err := probe.Probe(cfg.Input)
	if err != nil {
		return stats, stageErr(StageProbe, err)
	}
	stats.Frames = len(meta.Frames)
	stats.Keyframes = meta.KeyframeCount()
	if fi, err := os.Stat(cfg.Input); err == nil {
		stats.SourceBytes = fi.Size()
	}
	log.WithFields(logrus.Fields{
		"frames":    stats.Frames,
		"keyframes": stats.Keyframes,
		"duration":  display.FormatSeconds(meta.Duration),
	}).Info("probe complete")

	if cfg.FrameReport != "" {
		if err := WriteFrameReport(cfg.FrameReport, meta); err != nil {
			return stats, stageErr(StageProbe, err)
		}
		log.WithField("path", cfg.FrameReport).Debug("frame report written")
	}

	// --- Plan ---
	plan, err := planner.BuildPlan(meta, cfg.Plan)
	if err != nil {
		return stats, stageErr(StagePlan, err)
	}
	stats.Planned = len(plan.Chunks)
	log.Info(display.PlanTable(plan))

	if cfg.PlanJSON != "" {
		if err := writePlanJSON(cfg.PlanJSON, plan); err != nil {
			return stats, stageErr(StagePlan, err)
		}
		log.WithField("path", cfg.PlanJSON).Debug("plan JSON written")
	}

	// --- Split ---
	if !cfg.SkipSplit {
		opts := splitter.Options{
			AutoFormat: cfg.AutoFormat(),
			Format:     forcedFormat(cfg),
			Fragmented: cfg.Fragmented,
			Workers:    cfg.Workers,
		}
		if err := splitter.SplitAll(ctx, cfg.Input, plan, cfg.ChunksDir, opts, log); err != nil {
			return stats, stageErr(StageSplit, err)
		}
		stats.Split = len(plan.Chunks)
		log.WithField("chunks", stats.Split).Info("split complete")
	}

	// --- Stitch ---
	if !cfg.SkipStitch && cfg.Output != "" {
		opts := stitcher.Options{
			AutoFormat: cfg.AutoFormat(),
			Format:     forcedFormat(cfg),
			Fragmented: cfg.Fragmented,
			Faststart:  cfg.Faststart,
		}
		if err := stitcher.Stitch(cfg.Output, plan, cfg.ChunksDir, opts, log); err != nil {
			return stats, stageErr(StageStitch, err)
		}
		stats.Stitched = true
		if fi, err := os.Stat(cfg.Output); err == nil {
			stats.OutputBytes = fi.Size()
		}
		log.WithFields(logrus.Fields{
			"output": cfg.Output,
			"size":   display.FormatBytes(stats.OutputBytes),
		}).Info("stitch complete")

		if cfg.Verify {
			if err := VerifyRoundTrip(cfg.Input, cfg.Output); err != nil {
				return stats, stageErr(StageVerify, err)
			}
			stats.Verified = true
			log.Info("round-trip verified: per-track digests match")
		}
	}

	stats.Elapsed = time.Since(start)
	logSummary(log, &stats)
	return stats, nil
}

func forcedFormat(cfg *config.Config) media.Format {
	return media.Format(cfg.ForceFormat)
}

func writePlanJSON(path string, plan *planner.Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func logSummary(log *logrus.Logger, stats *RunStats) {
	log.WithFields(logrus.Fields{
		"chunks":   stats.Planned,
		"split":    stats.Split,
		"stitched": stats.Stitched,
		"elapsed":  stats.Elapsed.Round(time.Millisecond).String(),
	}).Info("run complete")
}
