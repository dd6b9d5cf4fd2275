package planner

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mdsohelmia/smartchunking/internal/probe"
)

// sceneWindow is the number of packets averaged on each side of a keyframe
// when looking for a packet-size discontinuity.
const sceneWindow = 5

func packetSizes(frames []probe.FrameMeta) []float64 {
	sizes := make([]float64, len(frames))
	for i := range frames {
		sizes[i] = float64(frames[i].PacketSize)
	}
	return sizes
}

// computeComplexity normalizes packet sizes into [0,1] complexity scores.
// The denominator is floored at 1 so constant-size streams map to 0.
func computeComplexity(frames []probe.FrameMeta) {
	if len(frames) == 0 {
		return
	}
	sizes := packetSizes(frames)
	minSize := floats.Min(sizes)
	rng := floats.Max(sizes) - minSize
	if rng < 1.0 {
		rng = 1.0
	}
	for i := range frames {
		frames[i].Complexity = (float64(frames[i].PacketSize) - minSize) / rng
	}
}

// detectSceneChanges marks keyframes where the mean packet size of the
// sceneWindow packets before and after differ by more than threshold,
// relative to the before-mean. Keyframes closer than a window to either end
// are never candidates.
func detectSceneChanges(frames []probe.FrameMeta, threshold float64) {
	if len(frames) < 2 {
		return
	}
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}

	sizes := packetSizes(frames)
	for i := sceneWindow; i < len(frames)-sceneWindow; i++ {
		if !frames[i].Keyframe {
			continue
		}
		avgBefore := stat.Mean(sizes[i-sceneWindow:i], nil)
		avgAfter := stat.Mean(sizes[i:i+sceneWindow], nil)

		ratio := 0.0
		if avgBefore > 0 {
			ratio = math.Abs(avgAfter-avgBefore) / avgBefore
		}
		if ratio > threshold {
			frames[i].SceneCut = true
		}
	}
}

// computeChunkStats fills the analysis fields of a chunk from the frames it
// covers. The quality score prefers balanced complexity and rewards chunks
// that contain at least one keyframe.
func computeChunkStats(c *Chunk, frames []probe.FrameMeta, start, end float64) {
	c.AvgComplexity = 0
	c.KeyframeCount = 0
	c.SceneCutCount = 0
	c.QualityScore = 0

	frameCount := 0
	var totalComplexity float64
	for i := range frames {
		t := frames[i].PTSTime
		if t >= start-eps && t < end+eps {
			frameCount++
			totalComplexity += frames[i].Complexity
			if frames[i].Keyframe {
				c.KeyframeCount++
			}
			if frames[i].SceneCut {
				c.SceneCutCount++
			}
		}
	}
	if frameCount > 0 {
		c.AvgComplexity = totalComplexity / float64(frameCount)
	}
	c.QualityScore = 1.0 - math.Abs(c.AvgComplexity-0.5)
	if c.KeyframeCount > 0 {
		c.QualityScore += 0.1
	}
}
