// Command smartchunk is the entrypoint for the chunking CLI. It parses
// flags, validates config, and either runs input diagnostics (--check) or
// the probe -> plan -> split -> stitch pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdsohelmia/smartchunking/internal/check"
	"github.com/mdsohelmia/smartchunking/internal/config"
	"github.com/mdsohelmia/smartchunking/internal/logging"
	"github.com/mdsohelmia/smartchunking/internal/pipeline"
)

// Exit codes per failing stage, matching the original CLI contract.
var stageExitCodes = map[string]int{
	pipeline.StageProbe:  2,
	pipeline.StagePlan:   3,
	pipeline.StageSplit:  4,
	pipeline.StageStitch: 5,
	pipeline.StageVerify: 6,
}

func main() {
	// 1. Load config from defaults, optional YAML file, and CLI flags.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "smartchunk: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "smartchunk: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smartchunk: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	// 2. If the user asked for the input check, run it and exit.
	if cfg.CheckOnly {
		check.RunCheck(cfg.Input, log)
		os.Exit(0)
	}

	// 3. Run the pipeline; SIGINT/SIGTERM cancel between chunks.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := pipeline.Run(ctx, &cfg, log.Logger); err != nil {
		log.WithError(err).Error("pipeline failed")
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		if code, ok := stageExitCodes[se.Stage]; ok {
			return code
		}
	}
	return 1
}
