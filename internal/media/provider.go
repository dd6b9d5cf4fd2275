package media

import (
	"fmt"
	"os"
)

// Demuxer reads a container sequentially. ReadPacket returns io.EOF after
// the last packet. Implementations are not safe for concurrent use; workers
// that read the same file in parallel must each open their own Demuxer.
type Demuxer interface {
	// Streams returns the container's streams in index order.
	Streams() []StreamInfo
	// Duration returns the best known container duration in seconds,
	// 0 when nothing is declared.
	Duration() float64
	// ReadPacket returns the next packet in interleaved decode order.
	ReadPacket() (*Packet, error)
	// Seek positions the demuxer at the last keyframe at or before the
	// target, given in microseconds. Subsequent reads resume from there on
	// every stream.
	Seek(micros int64) error
	Close() error
}

// Muxer writes a container. The call sequence is AddStream (once per output
// stream), WriteHeader, WritePacket in interleaved order with timestamps
// already in the output stream's time base, WriteTrailer, Close. Close is
// safe after an error and releases the file handle.
type Muxer interface {
	AddStream(info StreamInfo) (int, error)
	WriteHeader(opts MuxOptions) error
	WritePacket(p *Packet) error
	WriteTrailer() error
	Close() error
}

// OpenDemuxer opens path with the provider for its detected format.
func OpenDemuxer(path string) (Demuxer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	format := DetectFormat(path)
	if !isMP4Family(format) {
		return nil, fmt.Errorf("open %s: %s: %w", path, format, ErrUnsupportedFormat)
	}
	return openMP4Demuxer(path)
}

// NewMuxer allocates a muxer writing to path in the given format. The file
// is created by WriteHeader, not here.
func NewMuxer(path string, format Format) (Muxer, error) {
	if !isMP4Family(format) {
		return nil, fmt.Errorf("create %s: %s: %w", path, format, ErrUnsupportedFormat)
	}
	return newMP4Muxer(path), nil
}
