// Package config holds runtime configuration: defaults, CLI flag parsing,
// optional YAML config file loading, and validation.
package config

import (
	"errors"
	"fmt"

	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/planner"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// optionally overlaid by a YAML file, and then mutated by [ParseFlags]
// before being passed (by pointer) to the packages that need it.
type Config struct {
	// Paths (set from positional args).
	Input     string // source asset
	ChunksDir string // chunk output/input directory
	Output    string // stitched output; empty skips stitching

	// Chunk planning.
	Plan planner.Config

	// Output container.
	ForceFormat string // muxer short name; empty means auto-detect by extension
	Fragmented  bool   // fragmented mp4 outputs
	Faststart   bool   // moov-first stitched mp4 (non-fragmented only)

	// Behavior flags.
	SkipSplit  bool // plan (and stitch) only
	SkipStitch bool // plan and split only; implied when Output is empty
	Verify     bool // digest-compare stitched output against the source
	Workers    int  // parallel split workers; 1 keeps the batch sequential

	// Artifacts.
	PlanJSON    string // write the plan as a JSON array
	FrameReport string // write per-frame probe metadata as CSV

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode
	LogFile   string // optional log file path
	CheckOnly bool   // run input diagnostics and exit
}

// DefaultConfig returns a Config matching the original chunkify CLI
// defaults: 60s target chunks, tiny-tail merging on, sequential split.
func DefaultConfig() Config {
	return Config{
		Plan: planner.Config{
			TargetDuration:   60.0,
			AvoidTinyLast:    true,
			SceneThreshold:   planner.DefaultSceneThreshold,
			ComplexityWeight: planner.DefaultComplexityWeight,
		},
		Workers:   1,
		ColorMode: ColorAuto,
	}
}

// Validate checks enum fields and value ranges, and resolves implied flags.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	switch media.Format(c.ForceFormat) {
	case "", media.FormatMP4, media.FormatMOV, media.FormatMatroska, media.FormatWebM:
		// valid
	default:
		return fmt.Errorf("invalid format %q (use mp4, mov, matroska or webm)", c.ForceFormat)
	}

	if c.Plan.TargetDuration < 0 || c.Plan.MinDuration < 0 || c.Plan.MaxDuration < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Plan.SceneThreshold < 0 || c.Plan.SceneThreshold > 1 {
		return errors.New("scene threshold must be within [0,1]")
	}
	if c.Plan.ComplexityWeight < 0 || c.Plan.ComplexityWeight > 1 {
		return errors.New("complexity weight must be within [0,1]")
	}
	if c.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	if c.Plan.MinChunks < 0 || c.Plan.MaxChunks < 0 {
		return errors.New("chunk count caps must not be negative")
	}

	if c.CheckOnly {
		if c.Input == "" {
			return errors.New("need an input file to check")
		}
		return nil
	}
	if c.Input == "" || c.ChunksDir == "" {
		return errors.New("need input file and chunks directory")
	}
	if c.Output == "" {
		c.SkipStitch = true
	}
	return nil
}

// AutoFormat reports whether the container format should be derived from
// file extensions rather than ForceFormat.
func (c *Config) AutoFormat() bool { return c.ForceFormat == "" }
