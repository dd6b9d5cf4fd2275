package stitcher

import "github.com/mdsohelmia/smartchunking/internal/media"

// streamState is the per-output-stream accumulator of the stitching machine.
// It lives from the first chunk's header until the trailer. offset, lastPTS,
// and lastDTS are kept in the stream's own (input) time base so rebasing
// never accumulates rescaling error.
type streamState struct {
	outIndex  int
	timeBase  media.Rational
	mediaType media.MediaType
	offset    int64
	lastPTS   int64
	lastDTS   int64
}
