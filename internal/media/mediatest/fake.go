// Package mediatest provides in-memory Demuxer and Muxer fakes so the
// probe, splitter, and stitcher stages can be tested without container
// files, in the same spirit as testing the probe parser on captured JSON.
package mediatest

import (
	"io"

	"github.com/mdsohelmia/smartchunking/internal/media"
)

// FakeDemuxer replays a fixed, pre-interleaved packet sequence.
type FakeDemuxer struct {
	StreamInfos []media.StreamInfo
	Packets     []*media.Packet
	Dur         float64

	pos    int
	Closed bool
	// SeekTargets records every Seek call in microseconds.
	SeekTargets []int64
}

var _ media.Demuxer = (*FakeDemuxer)(nil)

func (d *FakeDemuxer) Streams() []media.StreamInfo { return d.StreamInfos }
func (d *FakeDemuxer) Duration() float64           { return d.Dur }

func (d *FakeDemuxer) ReadPacket() (*media.Packet, error) {
	if d.pos >= len(d.Packets) {
		return nil, io.EOF
	}
	p := d.Packets[d.pos]
	d.pos++
	// Hand out a copy so callers may rewrite timestamps freely.
	cp := *p
	return &cp, nil
}

// Seek rewinds to the last video keyframe at or before the target, matching
// the backward-to-keyframe contract of the real provider.
func (d *FakeDemuxer) Seek(micros int64) error {
	d.SeekTargets = append(d.SeekTargets, micros)
	target := float64(micros) / float64(media.MicrosPerSecond)

	best := 0
	for i, p := range d.Packets {
		info := d.StreamInfos[p.StreamIndex]
		if info.Type != media.TypeVideo || !p.Keyframe {
			continue
		}
		if p.Time(info.TimeBase, 0) <= target+1e-9 {
			best = i
		} else {
			break
		}
	}
	d.pos = best
	return nil
}

func (d *FakeDemuxer) Close() error {
	d.Closed = true
	return nil
}

// FakeMuxer records everything written to it.
type FakeMuxer struct {
	Streams     []media.StreamInfo
	Opts        media.MuxOptions
	Written     []*media.Packet
	HeaderDone  bool
	TrailerDone bool
	Closed      bool

	// FailWrite, when non-nil, is returned by the next WritePacket call.
	FailWrite error
}

var _ media.Muxer = (*FakeMuxer)(nil)

func (m *FakeMuxer) AddStream(info media.StreamInfo) (int, error) {
	m.Streams = append(m.Streams, info)
	return len(m.Streams) - 1, nil
}

func (m *FakeMuxer) WriteHeader(opts media.MuxOptions) error {
	m.Opts = opts
	m.HeaderDone = true
	return nil
}

func (m *FakeMuxer) WritePacket(p *media.Packet) error {
	if m.FailWrite != nil {
		err := m.FailWrite
		m.FailWrite = nil
		return err
	}
	cp := *p
	m.Written = append(m.Written, &cp)
	return nil
}

func (m *FakeMuxer) WriteTrailer() error {
	m.TrailerDone = true
	return nil
}

func (m *FakeMuxer) Close() error {
	m.Closed = true
	return nil
}

// PacketsFor returns the written packets belonging to one output stream.
func (m *FakeMuxer) PacketsFor(stream int) []*media.Packet {
	var out []*media.Packet
	for _, p := range m.Written {
		if p.StreamIndex == stream {
			out = append(out, p)
		}
	}
	return out
}
