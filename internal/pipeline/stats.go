package pipeline

import "time"

// RunStats tracks aggregate counters and byte totals across a run.
type RunStats struct {
	Frames      int
	Keyframes   int
	Planned     int
	Split       int
	Stitched    bool
	Verified    bool
	SourceBytes int64
	OutputBytes int64
	Elapsed     time.Duration
}
