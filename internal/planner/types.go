package planner

import (
	"encoding/json"
	"math"
)

// Default analysis parameters, applied when the config leaves them unset.
const (
	DefaultSceneThreshold   = 0.35
	DefaultComplexityWeight = 0.3
)

// Config holds the chunk planning options.
type Config struct {
	// TargetDuration is the preferred chunk length in seconds.
	// When 0 (and IdealParallel is 0) an internal default of 10s applies.
	TargetDuration float64 `yaml:"target"`
	// MinDuration and MaxDuration bound chunk lengths; unset values derive
	// as 0.5x and 2.0x the target.
	MinDuration float64 `yaml:"min"`
	MaxDuration float64 `yaml:"max"`
	// AvoidTinyLast merges a trailing chunk shorter than half the minimum
	// into its predecessor.
	AvoidTinyLast bool `yaml:"avoid_tiny_last"`
	// MinChunks and MaxChunks cap the plan size when > 0.
	MinChunks int `yaml:"min_chunks"`
	MaxChunks int `yaml:"max_chunks"`
	// IdealParallel, when > 0, overrides the target with duration/N.
	IdealParallel int `yaml:"ideal_parallel"`

	// SceneDetection enables scene-cut scoring; ComplexityAdapt enables
	// complexity annotation. Either one switches on smart selection.
	SceneDetection  bool `yaml:"scene_detection"`
	ComplexityAdapt bool `yaml:"complexity_adapt"`
	// SceneThreshold is the packet-size change ratio marking a scene cut.
	SceneThreshold float64 `yaml:"scene_threshold"`
	// ComplexityWeight in [0,1] shifts scoring away from pure duration fit.
	ComplexityWeight float64 `yaml:"complexity_weight"`
}

// Chunk is one planned cut: the half-open interval [Start, End), except the
// final chunk which closes at the asset duration.
type Chunk struct {
	Index int
	Start float64
	End   float64

	// Analysis statistics, filled when smart planning is active.
	AvgComplexity float64
	KeyframeCount int
	SceneCutCount int
	QualityScore  float64
}

// Length returns the chunk duration in seconds.
func (c Chunk) Length() float64 { return c.End - c.Start }

// MarshalJSON emits the external plan record shape with millisecond
// precision, matching the serialized plan consumed by collaborating tools.
func (c Chunk) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index int     `json:"index"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	}{c.Index, round3(c.Start), round3(c.End)})
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Plan is the ordered chunk sequence produced by BuildPlan.
type Plan struct {
	Chunks []Chunk
}

// Len returns the chunk count.
func (p *Plan) Len() int { return len(p.Chunks) }

// TotalDuration sums the chunk lengths.
func (p *Plan) TotalDuration() float64 {
	var total float64
	for _, c := range p.Chunks {
		total += c.Length()
	}
	return total
}

// MarshalJSON serializes the plan as a flat array of chunk records.
func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Chunks)
}

// UnmarshalJSON accepts the same flat array shape.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var records []struct {
		Index int     `json:"index"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	p.Chunks = p.Chunks[:0]
	for _, r := range records {
		p.Chunks = append(p.Chunks, Chunk{Index: r.Index, Start: r.Start, End: r.End})
	}
	return nil
}
