package media

import "errors"

// Sentinel errors shared by the pipeline stages. Stage functions wrap these
// with context via fmt.Errorf("...: %w", err); callers classify with
// errors.Is.
var (
	// ErrInvalidInput means the caller violated a contract (nil plan, empty
	// probe, non-positive duration, bad chunk range).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoVideoStream means the container holds no video track to probe.
	ErrNoVideoStream = errors.New("no video stream")

	// ErrUnsupportedFormat means the format registry knows the name but no
	// provider implements it (matroska, webm).
	ErrUnsupportedFormat = errors.New("unsupported container format")

	// ErrUnreadableContainer means the file exists but could not be parsed.
	ErrUnreadableContainer = errors.New("unreadable container")

	// ErrSeek means a backward-to-keyframe seek could not be satisfied.
	ErrSeek = errors.New("seek failed")

	// ErrStreamSetup means an output stream could not be created or its
	// codec parameters could not be copied.
	ErrStreamSetup = errors.New("stream setup failed")

	// ErrLayoutMismatch means a chunk file disagrees with the established
	// output layout (stream count or time base).
	ErrLayoutMismatch = errors.New("chunk stream layout mismatch")

	// ErrMissingChunk means a planned chunk file is absent from the chunk
	// directory.
	ErrMissingChunk = errors.New("missing chunk file")
)
