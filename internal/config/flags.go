package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into planning, analysis, output, behavior, and utility.
// Negated flags (e.g. --allow-tiny-last) are applied after Parse so Config
// defaults hold unless set.

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// version is shown in --version and help; override at build time with
// -ldflags "-X .../internal/config.version=...".
var version = "1.0.0-dev"

// ParseFlags parses args (normally os.Args[1:]) into cfg. A --config file,
// when present, is applied before flag values so explicit flags win.
// On --help or --version it prints and exits.
func ParseFlags(cfg *Config, args []string) error {
	if path := preScanConfigPath(args); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return err
		}
	}

	fs := flag.NewFlagSet("smartchunk", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs) }

	var negated negatedFlags

	definePlanningFlags(fs, cfg, &negated)
	defineAnalysisFlags(fs, cfg)
	defineOutputFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg)
	defineUtilityFlags(fs, cfg, &negated)

	if err := fs.Parse(args); err != nil {
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(fs)
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "smartchunk v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(fs, cfg)
}

// preScanConfigPath finds --config before flag parsing so file values can be
// installed as the defaults the flags override.
func preScanConfigPath(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--config" || arg == "-config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-config="):
			return strings.TrimPrefix(arg, "-config=")
		}
	}
	return ""
}

// negatedFlags holds boolean flags applied after Parse. These either invert
// a default (allowTinyLast -> AvoidTinyLast=false) or trigger exit.
type negatedFlags struct {
	allowTinyLast bool
	forceColor    bool
	noColor       bool
	showVersion   bool
	showHelp      bool
	configPath    string
}

// definePlanningFlags registers --target, --min, --max, --ideal-par,
// --min-chunks, --max-chunks, --allow-tiny-last.
func definePlanningFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.Float64Var(&cfg.Plan.TargetDuration, "target", cfg.Plan.TargetDuration, "Target chunk duration in seconds")
	fs.Float64Var(&cfg.Plan.MinDuration, "min", cfg.Plan.MinDuration, "Minimum chunk duration (default: 0.5x target)")
	fs.Float64Var(&cfg.Plan.MaxDuration, "max", cfg.Plan.MaxDuration, "Maximum chunk duration (default: 2x target)")
	fs.IntVar(&cfg.Plan.IdealParallel, "ideal-par", cfg.Plan.IdealParallel, "Ideal parallel workers (overrides --target)")
	fs.IntVar(&cfg.Plan.MinChunks, "min-chunks", cfg.Plan.MinChunks, "Minimum number of chunks")
	fs.IntVar(&cfg.Plan.MaxChunks, "max-chunks", cfg.Plan.MaxChunks, "Maximum number of chunks")
	fs.BoolVar(&n.allowTinyLast, "allow-tiny-last", false, "Keep very small tail chunks")
}

// defineAnalysisFlags registers scene detection and complexity options.
func defineAnalysisFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Plan.SceneDetection, "scene-detect", cfg.Plan.SceneDetection, "Prefer cuts at detected scene changes")
	fs.Float64Var(&cfg.Plan.SceneThreshold, "scene-threshold", cfg.Plan.SceneThreshold, "Scene change sensitivity [0,1]")
	fs.BoolVar(&cfg.Plan.ComplexityAdapt, "complexity-adapt", cfg.Plan.ComplexityAdapt, "Weight cuts by packet-size complexity")
	fs.Float64Var(&cfg.Plan.ComplexityWeight, "complexity-weight", cfg.Plan.ComplexityWeight, "Complexity weighting [0,1]")
}

// defineOutputFlags registers --frag, --faststart, --force-format.
func defineOutputFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Fragmented, "frag", cfg.Fragmented, "Fragmented MP4 outputs")
	fs.BoolVar(&cfg.Faststart, "faststart", cfg.Faststart, "moov-first stitched MP4")
	fs.StringVar(&cfg.ForceFormat, "force-format", cfg.ForceFormat, "Force muxer (mp4/mov/matroska/webm)")
}

// defineBehaviorFlags registers --no-split, --no-stitch, --workers, --verify
// and the artifact paths.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.SkipSplit, "no-split", cfg.SkipSplit, "Skip chunk extraction (stitch only)")
	fs.BoolVar(&cfg.SkipStitch, "no-stitch", cfg.SkipStitch, "Skip stitching")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel split workers")
	fs.BoolVar(&cfg.Verify, "verify", cfg.Verify, "Digest-compare stitched output against the source")
	fs.StringVar(&cfg.PlanJSON, "plan-json", cfg.PlanJSON, "Write plan as JSON array")
	fs.StringVar(&cfg.FrameReport, "frame-report", cfg.FrameReport, "Write per-frame probe metadata as CSV")
}

// defineUtilityFlags registers --config, --color, --no-color, verbose, log,
// check, version, help.
func defineUtilityFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.StringVar(&n.configPath, "config", "", "YAML config file (applied before flags)")
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run input diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.allowTinyLast {
		cfg.Plan.AvoidTinyLast = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets Input, ChunksDir, and the optional Output.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if cfg.CheckOnly {
		if len(args) >= 1 {
			cfg.Input = args[0]
		}
		return nil
	}
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("need <input> <chunks_dir> [final_output]")
	}
	cfg.Input = args[0]
	cfg.ChunksDir = args[1]
	if len(args) == 3 {
		cfg.Output = args[2]
	}
	return nil
}

// printUsage writes the help text to stderr. Column-aligned for readability.
func printUsage(fs *flag.FlagSet) {
	const col1 = 30 // width of "  --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "smartchunk v" + version + " — keyframe-aligned lossless video chunking"},
		{"", ""},
		{"  smartchunk [OPTIONS] <input> <chunks_dir> [final_output]", ""},
		{"", ""},
		{"Planning", ""},
		{"  --target <sec>", "Target chunk duration (default: 60)"},
		{"  --min <sec>", "Minimum chunk duration (default: 0.5x target)"},
		{"  --max <sec>", "Maximum chunk duration (default: 2x target)"},
		{"  --ideal-par <n>", "Ideal parallel workers (overrides --target)"},
		{"  --min-chunks <n>", "Minimum number of chunks"},
		{"  --max-chunks <n>", "Maximum number of chunks"},
		{"  --allow-tiny-last", "Keep very small tail chunks"},
		{"", ""},
		{"Analysis", ""},
		{"  --scene-detect", "Prefer cuts at detected scene changes"},
		{"  --scene-threshold <r>", "Scene change sensitivity [0,1] (default: 0.35)"},
		{"  --complexity-adapt", "Weight cuts by packet-size complexity"},
		{"  --complexity-weight <r>", "Complexity weighting [0,1] (default: 0.3)"},
		{"", ""},
		{"Output", ""},
		{"  --frag", "Fragmented MP4 outputs"},
		{"  --faststart", "moov-first stitched MP4 (non-fragmented)"},
		{"  --force-format <fmt>", "Force muxer (mp4/mov/matroska/webm)"},
		{"", ""},
		{"Behavior", ""},
		{"  --no-split", "Skip chunk extraction (stitch only)"},
		{"  --no-stitch", "Skip stitching"},
		{"  --workers <n>", "Parallel split workers (default: 1)"},
		{"  --verify", "Digest-compare stitched output against source"},
		{"  --plan-json <path>", "Write plan as JSON array"},
		{"  --frame-report <path>", "Write per-frame probe metadata as CSV"},
		{"", ""},
		{"Utility", ""},
		{"  --config <path>", "YAML config file (applied before flags)"},
		{"  --color / --no-color", "Force / disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check <input>", "Input diagnostics (readable, video stream)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}
