package planner

import (
	"math"

	"github.com/mdsohelmia/smartchunking/internal/probe"
)

const eps = 1e-6

// cutPoint is a candidate cut position: a keyframe timestamp with its
// analysis annotations and a quality score (keyframes start at 100, scene
// cuts add 50).
type cutPoint struct {
	time         float64
	sceneCut     bool
	complexity   float64
	qualityScore int
}

// collectCutPoints gathers every keyframe as a candidate. Scene-cut quality
// bonuses only apply when scene scoring is requested.
func collectCutPoints(frames []probe.FrameMeta, useSceneCuts bool) []cutPoint {
	var cuts []cutPoint
	for i := range frames {
		if !frames[i].Keyframe {
			continue
		}
		cp := cutPoint{
			time:         frames[i].PTSTime,
			sceneCut:     frames[i].SceneCut,
			complexity:   frames[i].Complexity,
			qualityScore: 100,
		}
		if frames[i].SceneCut && useSceneCuts {
			cp.qualityScore += 50
		}
		cuts = append(cuts, cp)
	}
	return cuts
}

// chooseCut picks the next cut after start from the ordered candidate list.
//
// Candidates below the min window are skipped. A candidate at or past the
// asset end is clamped to the duration, scored like any other, and ends the
// scan; a candidate past the max window is remembered as the oversize
// fallback and also ends the scan. Within the feasible window the
// lowest-scoring candidate wins, and a strict comparison keeps the earlier
// keyframe on ties, which keeps planning deterministic.
//
// Basic mode scores by distance from the target duration alone. Smart mode
// normalizes that distance, de-weights it by the complexity weight, and adds
// scene-cut and quality bonuses.
func chooseCut(start, duration, target, minDur, maxDur float64,
	cuts []cutPoint, cursor *int, smart bool, complexityWeight float64) float64 {

	score := func(span float64, c *cutPoint) float64 {
		if !smart {
			return math.Abs(span - target)
		}
		durationScore := math.Abs(span-target) / target
		sceneBonus := 0.0
		if c.sceneCut {
			sceneBonus = -0.3
		}
		qualityBonus := -(float64(c.qualityScore) / 200.0)
		return durationScore*(1.0-complexityWeight) + sceneBonus + qualityBonus
	}

	bestCut := -1.0
	bestScore := math.MaxFloat64
	fallback := -1.0

	idx := *cursor
	for idx < len(cuts) && cuts[idx].time <= start+eps {
		idx++
	}

	for ; idx < len(cuts); idx++ {
		t := cuts[idx].time
		if t >= duration-eps {
			// The asset end competes as a regular candidate so a closer
			// in-window keyframe still wins.
			if s := score(duration-start, &cuts[idx]); s < bestScore {
				bestCut = duration
			}
			break
		}

		span := t - start
		if span < minDur-eps {
			continue
		}
		if span > maxDur+eps {
			fallback = t
			break
		}

		if s := score(span, &cuts[idx]); s < bestScore {
			bestScore = s
			bestCut = t
		}
	}

	if bestCut < 0 {
		if fallback > 0 {
			bestCut = fallback
		} else {
			bestCut = duration
		}
	}
	if bestCut > duration {
		bestCut = duration
	}
	if bestCut < start+minDur {
		bestCut = math.Min(start+minDur, duration)
	}

	for *cursor < len(cuts) && cuts[*cursor].time <= bestCut+eps {
		*cursor++
	}
	return bestCut
}
