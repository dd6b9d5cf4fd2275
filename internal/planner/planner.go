package planner

import (
	"fmt"
	"math"

	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/probe"
)

// BuildPlan produces the chunk plan for a probed asset. This is the central
// decision stage the pipeline calls once per run.
//
// Flow:
//  1. Annotate a private copy of the frames (complexity, scene cuts)
//  2. Derive target/min/max from the config
//  3. Walk the keyframe candidates, choosing one cut per chunk
//  4. Post-process: snap the end, merge a tiny tail, normalize boundaries,
//     correct drift, renumber, enforce the chunk-count caps
func BuildPlan(meta *probe.Result, cfg Config) (*Plan, error) {
	if meta == nil || len(meta.Frames) == 0 || meta.Duration <= 0 {
		return nil, fmt.Errorf("plan: empty probe or non-positive duration: %w", media.ErrInvalidInput)
	}

	// The caller's probe result stays untouched; annotations land on a copy.
	m := meta.Clone()

	smart := cfg.SceneDetection || cfg.ComplexityAdapt
	if smart {
		computeComplexity(m.Frames)
	}
	if cfg.SceneDetection {
		detectSceneChanges(m.Frames, cfg.SceneThreshold)
	}

	target, minDur, maxDur := deriveDurations(cfg, m.Duration)

	plan := buildChunks(m, cfg, target, minDur, maxDur, smart)

	if len(plan.Chunks) == 0 {
		return nil, fmt.Errorf("plan: no chunks produced: %w", media.ErrInvalidInput)
	}

	// --- Post-processing, in contract order ---
	plan.Chunks[len(plan.Chunks)-1].End = m.Duration

	if cfg.AvoidTinyLast {
		mergeTinyTail(plan, minDur, m.Duration)
	}

	normalizeBoundaries(plan, m.Duration)
	renumber(plan)

	if cfg.MinChunks > 0 && len(plan.Chunks) < cfg.MinChunks {
		retry := cfg
		retry.TargetDuration = m.Duration / float64(cfg.MinChunks)
		retry.MinDuration = 0
		retry.MaxDuration = 0
		retry.IdealParallel = 0
		retry.MinChunks = 0
		return BuildPlan(meta, retry)
	}

	if cfg.MaxChunks > 0 {
		for len(plan.Chunks) > cfg.MaxChunks {
			mergeSmallestPair(plan)
		}
		renumber(plan)
	}

	if smart {
		for i := range plan.Chunks {
			c := &plan.Chunks[i]
			computeChunkStats(c, m.Frames, c.Start, c.End)
		}
	}
	return plan, nil
}

// deriveDurations resolves the effective target/min/max chunk lengths.
func deriveDurations(cfg Config, duration float64) (target, minDur, maxDur float64) {
	target = cfg.TargetDuration
	if cfg.IdealParallel > 0 {
		target = duration / float64(cfg.IdealParallel)
	}
	if target <= 0 {
		target = 10.0
	}

	minDur = cfg.MinDuration
	if minDur <= 0 {
		minDur = target * 0.5
	}
	maxDur = cfg.MaxDuration
	if maxDur <= 0 {
		maxDur = target * 2.0
	}
	if maxDur < minDur {
		maxDur = minDur
	}
	return target, minDur, maxDur
}

// buildChunks runs the cut-selection loop over the keyframe candidates.
// A keyframe-free asset degenerates to a single chunk spanning the whole
// duration.
func buildChunks(m *probe.Result, cfg Config, target, minDur, maxDur float64, smart bool) *Plan {
	plan := &Plan{}

	cuts := collectCutPoints(m.Frames, cfg.SceneDetection)
	if len(cuts) == 0 {
		appendChunk(plan, 0, 0, m.Duration)
		if smart && len(plan.Chunks) > 0 {
			computeChunkStats(&plan.Chunks[0], m.Frames, 0, m.Duration)
		}
		return plan
	}

	complexityWeight := cfg.ComplexityWeight
	if complexityWeight <= 0 {
		complexityWeight = DefaultComplexityWeight
	}

	start := 0.0
	cursor := 0
	index := 0
	for start < m.Duration-eps {
		cut := chooseCut(start, m.Duration, target, minDur, maxDur, cuts, &cursor, smart, complexityWeight)
		if cut <= start+eps {
			cut = math.Min(start+maxDur, m.Duration)
		}
		appendChunk(plan, index, start, cut)
		index++
		start = cut
	}
	return plan
}

// appendChunk drops zero-length pieces; index gaps are fixed by renumbering.
func appendChunk(plan *Plan, index int, start, end float64) {
	if end < start+eps {
		return
	}
	plan.Chunks = append(plan.Chunks, Chunk{Index: index, Start: start, End: end})
}

// mergeTinyTail folds a trailing chunk shorter than half the minimum into
// its predecessor.
func mergeTinyTail(plan *Plan, minDur, duration float64) {
	n := len(plan.Chunks)
	if n < 2 {
		return
	}
	last := plan.Chunks[n-1]
	if last.Length() < minDur*0.5 {
		plan.Chunks[n-2].End = duration
		plan.Chunks = plan.Chunks[:n-1]
	}
}

// normalizeBoundaries makes the plan contiguous (each start equals the
// previous end), clamps inverted ranges, and corrects cumulative float
// drift against the asset duration.
func normalizeBoundaries(plan *Plan, duration float64) {
	var total float64
	for i := range plan.Chunks {
		c := &plan.Chunks[i]
		if i > 0 {
			c.Start = plan.Chunks[i-1].End
		}
		if c.End < c.Start {
			c.End = c.Start
		}
		total += c.Length()
	}
	if math.Abs(total-duration) > 0.001 {
		plan.Chunks[len(plan.Chunks)-1].End += duration - total
	}
}

func renumber(plan *Plan) {
	for i := range plan.Chunks {
		plan.Chunks[i].Index = i
	}
}

// mergeSmallestPair joins the adjacent pair with the smallest summed
// duration, used to enforce the MaxChunks cap.
func mergeSmallestPair(plan *Plan) {
	if len(plan.Chunks) < 2 {
		return
	}
	best := 0
	bestLen := math.MaxFloat64
	for i := 0; i+1 < len(plan.Chunks); i++ {
		l := plan.Chunks[i].Length() + plan.Chunks[i+1].Length()
		if l < bestLen {
			bestLen = l
			best = i
		}
	}
	plan.Chunks[best].End = plan.Chunks[best+1].End
	plan.Chunks = append(plan.Chunks[:best+1], plan.Chunks[best+2:]...)
}
