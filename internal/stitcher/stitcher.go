// Package stitcher concatenates chunk files back into one container with a
// single monotonically increasing timeline per stream. The first chunk
// passes through with its original timestamps; every later chunk is rebased
// by subtracting its own first timestamp and adding the accumulated
// per-stream offset. After each chunk the offset is set to that chunk's
// highest written timestamp plus one frame duration.
package stitcher

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/naming"
	"github.com/mdsohelmia/smartchunking/internal/planner"
)

// Options selects the output container behavior. It mirrors the splitter's
// surface plus faststart for non-fragmented mp4.
type Options struct {
	AutoFormat bool
	Format     media.Format
	Fragmented bool
	Faststart  bool
}

// Stitch writes the concatenation of all planned chunks from chunkDir to
// outputPath. Chunks are consumed in plan-index order; each chunk path is
// canonicalized before opening and must exist.
func Stitch(outputPath string, plan *planner.Plan, chunkDir string, opts Options, log *logrus.Logger) error {
	if plan == nil || len(plan.Chunks) == 0 {
		return fmt.Errorf("stitch: empty plan: %w", media.ErrInvalidInput)
	}

	format := media.ResolveFormat(opts.AutoFormat, opts.Format, outputPath)
	ext := naming.ExtensionFor(format)

	mux, err := media.NewMuxer(outputPath, format)
	if err != nil {
		return fmt.Errorf("stitch: %w", err)
	}
	defer mux.Close()

	s := &session{mux: mux, opts: muxOptions(opts)}

	for ci, chunk := range plan.Chunks {
		path, err := naming.CanonicalChunkPath(chunkDir, chunk.Index, ext)
		if err != nil {
			return fmt.Errorf("stitch chunk %d: %w", chunk.Index, err)
		}
		if log != nil {
			log.WithFields(logrus.Fields{"chunk": chunk.Index, "path": path}).Info("stitching chunk")
		}

		dmx, err := media.OpenDemuxer(path)
		if err != nil {
			return fmt.Errorf("stitch chunk %d: %w", chunk.Index, err)
		}
		err = s.appendChunk(dmx, ci)
		dmx.Close()
		if err != nil {
			return fmt.Errorf("stitch chunk %d: %w", chunk.Index, err)
		}
	}

	if !s.headerWritten {
		return fmt.Errorf("stitch: no streams established: %w", media.ErrStreamSetup)
	}
	if err := mux.WriteTrailer(); err != nil {
		return fmt.Errorf("stitch: write trailer: %w", err)
	}
	return nil
}

// muxOptions maps stitcher options onto the provider's muxer options.
// Negative DTS values from the source must survive, so automatic timestamp
// shifting is always disabled.
func muxOptions(opts Options) media.MuxOptions {
	return media.MuxOptions{
		FragmentedMP4:   opts.Fragmented,
		Faststart:       opts.Faststart && !opts.Fragmented,
		AvoidNegativeTS: media.AvoidNegativeTSDisabled,
	}
}

// session is the streaming state machine across chunks.
type session struct {
	mux           media.Muxer
	opts          media.MuxOptions
	states        []*streamState
	headerWritten bool
}

// appendChunk feeds one chunk through the machine: the first chunk
// establishes the output layout and writes the header, later chunks must
// match it and get their timelines rebased.
func (s *session) appendChunk(dmx media.Demuxer, chunkIdx int) error {
	streams := dmx.Streams()

	// Map non-attachment input streams to dense state slots.
	chunkMap := make([]int, len(streams))
	mediaCount := 0
	for i, st := range streams {
		if st.Type == media.TypeAttachment {
			chunkMap[i] = -1
			continue
		}
		chunkMap[i] = mediaCount
		mediaCount++
	}

	if !s.headerWritten {
		for i, st := range streams {
			if chunkMap[i] < 0 {
				continue
			}
			out, err := s.mux.AddStream(st)
			if err != nil {
				return fmt.Errorf("create output stream %d: %w", i, err)
			}
			s.states = append(s.states, &streamState{
				outIndex:  out,
				timeBase:  st.TimeBase,
				mediaType: st.Type,
				lastPTS:   media.NoTimestamp,
				lastDTS:   media.NoTimestamp,
			})
		}
		if err := s.mux.WriteHeader(s.opts); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		s.headerWritten = true
	} else {
		if mediaCount != len(s.states) {
			return fmt.Errorf("chunk has %d media streams, output has %d: %w",
				mediaCount, len(s.states), media.ErrLayoutMismatch)
		}
		for i, st := range streams {
			if chunkMap[i] < 0 {
				continue
			}
			if st.TimeBase != s.states[chunkMap[i]].timeBase {
				return fmt.Errorf("stream %d time base %d/%d differs from output %d/%d: %w",
					i, st.TimeBase.Num, st.TimeBase.Den,
					s.states[chunkMap[i]].timeBase.Num, s.states[chunkMap[i]].timeBase.Den,
					media.ErrLayoutMismatch)
			}
		}
	}

	return s.copyChunkPackets(dmx, streams, chunkMap, chunkIdx)
}

func (s *session) copyChunkPackets(dmx media.Demuxer, streams []media.StreamInfo, chunkMap []int, chunkIdx int) error {
	n := len(streams)
	firstTS := make([]int64, n)
	maxPTS := make([]int64, n)
	maxDTS := make([]int64, n)
	for i := 0; i < n; i++ {
		firstTS[i] = media.NoTimestamp
		maxPTS[i] = media.NoTimestamp
		maxDTS[i] = media.NoTimestamp
	}

	for {
		pkt, err := dmx.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read packet: %w", err)
		}
		in := pkt.StreamIndex
		if in < 0 || in >= n || chunkMap[in] < 0 {
			continue
		}
		st := s.states[chunkMap[in]]

		if chunkIdx > 0 {
			// Rebase onto the accumulated timeline: strip the chunk's own
			// base timestamp and add this stream's offset.
			base := firstTS[in]
			if base == media.NoTimestamp {
				base = resolveFirstTS(pkt)
				firstTS[in] = base
			}
			if pkt.PTS != media.NoTimestamp {
				pkt.PTS = pkt.PTS - base + st.offset
			}
			if pkt.DTS != media.NoTimestamp {
				pkt.DTS = pkt.DTS - base + st.offset
			}
		}

		if pkt.PTS == media.NoTimestamp && pkt.DTS != media.NoTimestamp {
			pkt.PTS = pkt.DTS
		}
		if pkt.DTS == media.NoTimestamp && pkt.PTS != media.NoTimestamp {
			pkt.DTS = pkt.PTS
		}
		if pkt.PTS != media.NoTimestamp && pkt.DTS != media.NoTimestamp && pkt.DTS > pkt.PTS {
			pkt.PTS = pkt.DTS
		}

		if pkt.PTS != media.NoTimestamp && (maxPTS[in] == media.NoTimestamp || pkt.PTS > maxPTS[in]) {
			maxPTS[in] = pkt.PTS
		}
		if pkt.DTS != media.NoTimestamp && (maxDTS[in] == media.NoTimestamp || pkt.DTS > maxDTS[in]) {
			maxDTS[in] = pkt.DTS
		}

		media.RescalePacket(pkt, streams[in].TimeBase, st.timeBase)
		pkt.StreamIndex = st.outIndex
		if err := s.mux.WritePacket(pkt); err != nil {
			return fmt.Errorf("write packet: %w", err)
		}

		if pkt.PTS != media.NoTimestamp {
			st.lastPTS = pkt.PTS
		}
		if pkt.DTS != media.NoTimestamp {
			st.lastDTS = pkt.DTS
		}
	}

	// Advance each present stream's offset past this chunk's tail.
	for in := 0; in < n; in++ {
		if chunkMap[in] < 0 {
			continue
		}
		tail := maxPTS[in]
		if tail == media.NoTimestamp {
			tail = maxDTS[in]
		}
		if tail == media.NoTimestamp {
			continue
		}
		s.states[chunkMap[in]].offset = tail + oneFrame(streams[in])
	}
	return nil
}

// oneFrame estimates a single frame duration in the stream's time base from
// its average frame rate, defaulting to one tick.
func oneFrame(info media.StreamInfo) int64 {
	if info.AvgFrameRate.Num > 0 {
		if d := media.Rescale(1, info.AvgFrameRate.Inv(), info.TimeBase); d > 0 {
			return d
		}
	}
	return 1
}

func resolveFirstTS(pkt *media.Packet) int64 {
	if pkt.PTS != media.NoTimestamp {
		return pkt.PTS
	}
	if pkt.DTS != media.NoTimestamp {
		return pkt.DTS
	}
	return 0
}
