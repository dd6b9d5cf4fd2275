package probe

import (
	"errors"
	"fmt"
	"io"

	"github.com/mdsohelmia/smartchunking/internal/media"
)

// Probe opens path and scans it. The demuxer is always released, also on
// scan errors; partial results are discarded.
func Probe(path string) (*Result, error) {
	dmx, err := media.OpenDemuxer(path)
	if err != nil {
		return nil, fmt.Errorf("probe %q: %w", path, err)
	}
	defer dmx.Close()

	res, err := Scan(dmx)
	if err != nil {
		return nil, fmt.Errorf("probe %q: %w", path, err)
	}
	return res, nil
}

// Scan walks every packet of the best video stream and records frame
// metadata. The duration is the maximum of the largest observed packet end,
// the stream's declared duration, and the container's declared duration.
func Scan(dmx media.Demuxer) (*Result, error) {
	video, err := bestVideoStream(dmx.Streams())
	if err != nil {
		return nil, err
	}
	tb := video.TimeBase

	res := &Result{}
	bestEnd := 0.0
	for {
		pkt, err := dmx.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if pkt.StreamIndex != video.Index {
			continue
		}

		pts := pkt.Time(tb, bestEnd)
		end := pkt.EndTime(tb, pts)
		res.Frames = append(res.Frames, FrameMeta{
			PTSTime:    pts,
			Keyframe:   pkt.Keyframe,
			PacketSize: len(pkt.Data),
		})
		if end > bestEnd {
			bestEnd = end
		}
	}

	res.Duration = bestEnd
	if video.Duration > res.Duration {
		res.Duration = video.Duration
	}
	if d := dmx.Duration(); d > res.Duration {
		res.Duration = d
	}
	return res, nil
}

// bestVideoStream picks the lowest-index video stream, the provider's notion
// of the primary video track.
func bestVideoStream(streams []media.StreamInfo) (media.StreamInfo, error) {
	for _, s := range streams {
		if s.Type == media.TypeVideo {
			return s, nil
		}
	}
	return media.StreamInfo{}, media.ErrNoVideoStream
}
