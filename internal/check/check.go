// Package check provides input diagnostics (--check mode): the asset must
// exist, parse as a supported container, and carry a video stream.
package check

import (
	"os"

	"github.com/mdsohelmia/smartchunking/internal/display"
	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/probe"
)

// Logger is the minimal logging interface needed by RunCheck. Defined here
// (rather than importing the logging package) so that check remains
// dependency-light and testable with a mock logger.
type Logger interface {
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
}

// RunCheck runs the interactive --check flow against one input file.
// This is informational only: it logs the first failing step and returns
// without an error.
func RunCheck(path string, log Logger) {
	log.Infof("=== Input Check ===")

	fi, err := os.Stat(path)
	if err != nil {
		log.Errorf("not found: %s", path)
		return
	}
	log.Infof("file:     %s (%s)", path, display.FormatBytes(fi.Size()))
	log.Infof("format:   %s", media.DetectFormat(path))

	dmx, err := media.OpenDemuxer(path)
	if err != nil {
		log.Errorf("cannot open container: %v", err)
		return
	}
	streams := dmx.Streams()
	for _, s := range streams {
		log.Infof("stream %d: %s (%s), time base 1/%d", s.Index, s.Type, s.Codec, s.TimeBase.Den)
	}
	dmx.Close()

	res, err := probe.Probe(path)
	if err != nil {
		log.Errorf("probe failed: %v", err)
		return
	}
	log.Infof("duration: %s", display.FormatSeconds(res.Duration))
	log.Infof("frames:   %d (%d keyframes)", len(res.Frames), res.KeyframeCount())
	if res.KeyframeCount() == 0 {
		log.Warnf("no keyframes flagged; planning will degenerate to a single chunk")
	}
}
