// Package splitter materializes planned chunks as independent container
// files by stream copy: it seeks the source to the keyframe at or before
// each chunk start and copies packets through untouched. Source timestamps
// are preserved (no per-chunk rebasing) so the stitcher can rebuild a
// bit-faithful timeline.
package splitter

import (
	"errors"
	"fmt"
	"io"

	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/planner"
)

// Options selects the output container behavior, shared with the stitcher's
// option surface.
type Options struct {
	// AutoFormat derives the container format from the source extension;
	// otherwise Format is used as-is.
	AutoFormat bool
	Format     media.Format
	// Fragmented requests fragmented output for mp4-family formats.
	Fragmented bool
	// Workers bounds parallel chunk extraction in SplitAll. Values below 2
	// keep the batch sequential.
	Workers int
}

const tol = 1e-6

// SplitChunk extracts a single chunk from the source into outPath.
// The source is opened fresh per call so parallel workers never share a
// demuxer.
func SplitChunk(source string, chunk planner.Chunk, outPath string, opts Options) error {
	if chunk.End <= chunk.Start {
		return fmt.Errorf("chunk %d: end %.3f not after start %.3f: %w",
			chunk.Index, chunk.End, chunk.Start, media.ErrInvalidInput)
	}

	format := media.ResolveFormat(opts.AutoFormat, opts.Format, source)

	dmx, err := media.OpenDemuxer(source)
	if err != nil {
		return fmt.Errorf("split chunk %d: %w", chunk.Index, err)
	}
	defer dmx.Close()

	mux, err := media.NewMuxer(outPath, format)
	if err != nil {
		return fmt.Errorf("split chunk %d: %w", chunk.Index, err)
	}
	defer mux.Close()

	muxOpts := media.MuxOptions{FragmentedMP4: opts.Fragmented}
	if err := CopyRange(dmx, mux, chunk, muxOpts); err != nil {
		return fmt.Errorf("split chunk %d: %w", chunk.Index, err)
	}
	return nil
}

// CopyRange performs the per-chunk stream copy between an open demuxer and
// muxer. Separated from the file handling so it can be exercised against
// in-memory providers.
//
// Range policy: video packets are kept while their timestamp lies in
// [start-tol, end); the video range closes when a keyframe at or past the
// end arrives (it belongs to the next chunk). Non-video packets are kept
// strictly below the end. The copy stops once every mapped stream has
// passed its boundary or the source is exhausted.
func CopyRange(dmx media.Demuxer, mux media.Muxer, chunk planner.Chunk, opts media.MuxOptions) error {
	streams := dmx.Streams()

	// Mirror every non-attachment stream, preserving its time base.
	streamMap := make([]int, len(streams))
	for i, s := range streams {
		if s.Type == media.TypeAttachment {
			streamMap[i] = -1
			continue
		}
		out, err := mux.AddStream(s)
		if err != nil {
			return fmt.Errorf("mirror stream %d: %w", i, err)
		}
		streamMap[i] = out
	}

	if err := mux.WriteHeader(opts); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := dmx.Seek(int64(chunk.Start * float64(media.MicrosPerSecond))); err != nil {
		return fmt.Errorf("seek to %.3f: %w", chunk.Start, err)
	}

	done := make([]bool, len(streams))
	remaining := 0
	for i := range streams {
		if streamMap[i] >= 0 {
			remaining++
		} else {
			done[i] = true
		}
	}

	lastTS := chunk.Start
	for remaining > 0 {
		pkt, err := dmx.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read packet: %w", err)
		}
		idx := pkt.StreamIndex
		if idx < 0 || idx >= len(streams) || streamMap[idx] < 0 || done[idx] {
			continue
		}

		info := streams[idx]
		ts := pkt.Time(info.TimeBase, lastTS)
		lastTS = ts

		if info.Type == media.TypeVideo {
			if ts >= chunk.End-tol {
				if pkt.Keyframe {
					// The next chunk opens on this keyframe.
					done[idx] = true
					remaining--
				}
				continue
			}
			if ts < chunk.Start-tol {
				continue
			}
		} else {
			if ts >= chunk.End-tol {
				done[idx] = true
				remaining--
				continue
			}
			if ts < chunk.Start-tol {
				continue
			}
		}

		out := streamMap[idx]
		media.RescalePacket(pkt, info.TimeBase, info.TimeBase)
		pkt.StreamIndex = out
		if err := mux.WritePacket(pkt); err != nil {
			return fmt.Errorf("write packet at %.3f: %w", ts, err)
		}
	}

	if err := mux.WriteTrailer(); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	return nil
}
