package media

import "math"

// MediaType classifies a stream the way container formats do.
type MediaType string

const (
	TypeVideo      MediaType = "video"
	TypeAudio      MediaType = "audio"
	TypeSubtitle   MediaType = "subtitle"
	TypeAttachment MediaType = "attachment"
	TypeData       MediaType = "data"
)

// NoTimestamp marks an absent PTS or DTS on a Packet.
const NoTimestamp = int64(math.MinInt64)

// MicrosPerSecond is the unit of Demuxer.Seek targets.
const MicrosPerSecond int64 = 1_000_000

// Packet is one coded access unit read from or written to a container.
// Timestamps and Duration are expressed in the owning stream's time base.
// Data is the untouched coded payload; the pipeline never modifies it.
type Packet struct {
	StreamIndex int
	PTS         int64 // NoTimestamp when absent
	DTS         int64 // NoTimestamp when absent
	Duration    int64 // 0 when unknown
	Keyframe    bool
	Data        []byte
}

// Time returns the packet's best-effort timestamp in seconds: PTS when
// present, else DTS, else the caller-supplied fallback.
func (p *Packet) Time(tb Rational, fallback float64) float64 {
	if p.PTS != NoTimestamp {
		return tb.Seconds(p.PTS)
	}
	if p.DTS != NoTimestamp {
		return tb.Seconds(p.DTS)
	}
	return fallback
}

// EndTime returns the packet end in seconds: its timestamp plus the reported
// duration, or the timestamp alone when no duration is reported.
func (p *Packet) EndTime(tb Rational, ts float64) float64 {
	if p.Duration > 0 {
		return ts + tb.Seconds(p.Duration)
	}
	return ts
}

// StreamInfo describes one stream of a container. CodecParams is an opaque,
// provider-encoded description of the coded format (for the mp4 provider it
// is the serialized sample description box); it is copied verbatim from
// demuxer to muxer so stream copy never needs to understand the codec.
type StreamInfo struct {
	Index             int
	Type              MediaType
	TimeBase          Rational
	Codec             string // four-cc or codec short name, informational
	CodecParams       []byte
	Duration          float64  // declared stream duration in seconds, 0 if unknown
	AvgFrameRate      Rational // zero when unknown or not applicable
	SampleAspectRatio Rational
	Metadata          map[string]string
}
