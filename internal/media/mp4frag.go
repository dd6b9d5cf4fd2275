package media

import (
	"fmt"

	mp4 "github.com/Eyevinn/mp4ff/mp4"
)

// fragWriter emits fragmented mp4: an init segment with an empty moov, then
// one media segment per video-keyframe-led run, the frag_keyframe layout.
// Fragments use movie-fragment-relative offsets, so no tfhd base offsets are
// written.
type fragWriter struct {
	m       *mp4Muxer
	seqNr   uint32
	pending [][]outSample
}

func newFragWriter(m *mp4Muxer) *fragWriter {
	return &fragWriter{m: m, pending: make([][]outSample, len(m.streams))}
}

func (w *fragWriter) writeInit() error {
	init := mp4.CreateEmptyInit()
	for _, s := range w.m.streams {
		init.AddEmptyTrack(uint32(s.info.TimeBase.Den), trackHandlerType(s.info.Type), "und")
	}
	for i, s := range w.m.streams {
		stbl := init.Moov.Traks[i].Mdia.Minf.Stbl
		replaceStblChild(stbl, s.stsd)
		stbl.Stsd = s.stsd
	}
	return init.Encode(w.m.file)
}

func (w *fragWriter) add(stream int, s outSample) error {
	if w.m.streams[stream].info.Type == TypeVideo && s.sync && w.havePending() {
		if err := w.flush(); err != nil {
			return err
		}
	}
	w.pending[stream] = append(w.pending[stream], s)
	return nil
}

func (w *fragWriter) havePending() bool {
	for _, p := range w.pending {
		if len(p) > 0 {
			return true
		}
	}
	return false
}

func (w *fragWriter) flush() error {
	w.seqNr++
	seg := mp4.NewMediaSegment()

	for si, samples := range w.pending {
		if len(samples) == 0 {
			continue
		}
		fillDurations(samples)

		frag, err := mp4.CreateFragment(w.seqNr, uint32(si+1))
		if err != nil {
			return fmt.Errorf("create fragment %d: %v: %w", w.seqNr, err, ErrStreamSetup)
		}
		for i := range samples {
			s := &samples[i]
			flags := mp4.NonSyncSampleFlags
			if s.sync {
				flags = mp4.SyncSampleFlags
			}
			frag.AddFullSample(mp4.FullSample{
				Sample: mp4.Sample{
					Flags:                 flags,
					Dur:                   uint32(s.dur),
					Size:                  s.size,
					CompositionTimeOffset: int32(s.pts - s.dts),
				},
				DecodeTime: uint64(s.dts),
				Data:    s.data,
			})
		}
		seg.AddFragment(frag)
		w.pending[si] = nil
	}
	return seg.Encode(w.m.file)
}

func (w *fragWriter) finish() error {
	if !w.havePending() {
		return nil
	}
	return w.flush()
}
