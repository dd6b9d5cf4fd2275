package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	mp4 "github.com/Eyevinn/mp4ff/mp4"
)

// outSample is one buffered or streamed output access unit. Streamed samples
// (progressive, non-faststart) have data written to disk already and carry
// only the absolute offset; buffered samples carry the payload.
type outSample struct {
	dts    int64
	pts    int64
	dur    int64
	sync   bool
	size   uint32
	offset uint64
	data   []byte
}

type outStream struct {
	info    StreamInfo
	stsd    *mp4.StsdBox
	shift   int64 // applied to make decode times non-negative
	lastDTS int64
	started bool
	samples []outSample
}

// writeRef names one buffered sample. mp4Muxer.order lists them in
// interleaved arrival order so mdat payload order and chunk offsets agree
// between the streamed and buffered paths.
type writeRef struct {
	stream int
	index  int
}

type mp4Muxer struct {
	path    string
	opts    MuxOptions
	file    *os.File
	streams []*outStream
	order   []writeRef

	headerDone  bool
	trailerDone bool

	// Progressive streamed layout bookkeeping.
	mdatStart int64
	cur       int64

	frag *fragWriter
}

func newMP4Muxer(path string) *mp4Muxer {
	return &mp4Muxer{path: path}
}

func (m *mp4Muxer) AddStream(info StreamInfo) (int, error) {
	if m.headerDone {
		return 0, fmt.Errorf("add stream after header: %w", ErrStreamSetup)
	}
	if info.TimeBase.Num != 1 || info.TimeBase.Den <= 0 {
		return 0, fmt.Errorf("time base %d/%d not expressible in this container: %w",
			info.TimeBase.Num, info.TimeBase.Den, ErrStreamSetup)
	}
	if len(info.CodecParams) == 0 {
		return 0, fmt.Errorf("missing codec parameters: %w", ErrStreamSetup)
	}
	box, err := mp4.DecodeBox(0, bytes.NewReader(info.CodecParams))
	if err != nil {
		return 0, fmt.Errorf("decode codec parameters: %v: %w", err, ErrStreamSetup)
	}
	stsd, ok := box.(*mp4.StsdBox)
	if !ok {
		return 0, fmt.Errorf("codec parameters are not a sample description: %w", ErrStreamSetup)
	}

	m.streams = append(m.streams, &outStream{info: info, stsd: stsd, lastDTS: NoTimestamp})
	return len(m.streams) - 1, nil
}

func (m *mp4Muxer) WriteHeader(opts MuxOptions) error {
	if m.headerDone {
		return fmt.Errorf("header already written: %w", ErrInvalidInput)
	}
	if len(m.streams) == 0 {
		return fmt.Errorf("no output streams: %w", ErrStreamSetup)
	}
	m.opts = opts

	f, err := os.Create(m.path)
	if err != nil {
		return err
	}
	m.file = f
	m.headerDone = true

	if opts.FragmentedMP4 {
		m.frag = newFragWriter(m)
		return m.frag.writeInit()
	}
	if opts.Faststart {
		// moov must precede mdat, so everything is buffered until the
		// trailer assembles the file front to back.
		return nil
	}

	ftyp := mp4.CreateFtyp()
	if err := ftyp.Encode(f); err != nil {
		return err
	}
	m.cur = int64(ftyp.Size())
	m.mdatStart = m.cur

	// Large-size mdat header; the 64-bit size is patched in WriteTrailer.
	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], 1)
	copy(hdr[4:8], "mdat")
	if _, err := f.Write(hdr[:]); err != nil {
		return err
	}
	m.cur += 16
	return nil
}

func (m *mp4Muxer) WritePacket(p *Packet) error {
	if !m.headerDone || m.trailerDone {
		return fmt.Errorf("packet outside header/trailer window: %w", ErrInvalidInput)
	}
	if p.StreamIndex < 0 || p.StreamIndex >= len(m.streams) {
		return fmt.Errorf("stream index %d out of range: %w", p.StreamIndex, ErrInvalidInput)
	}
	s := m.streams[p.StreamIndex]

	dts := p.DTS
	if dts == NoTimestamp {
		dts = p.PTS
	}
	if dts == NoTimestamp {
		return fmt.Errorf("packet without any timestamp: %w", ErrInvalidInput)
	}
	pts := p.PTS
	if pts == NoTimestamp {
		pts = dts
	}
	if pts < dts {
		pts = dts
	}

	if !s.started {
		// ISO BMFF decode times are unsigned; a leading negative DTS is
		// absorbed into a constant per-stream shift.
		if dts < 0 {
			s.shift = -dts
		}
		s.started = true
	}
	dts += s.shift
	pts += s.shift
	if s.lastDTS != NoTimestamp && dts < s.lastDTS {
		return fmt.Errorf("non-monotonic DTS %d after %d on stream %d: %w",
			dts, s.lastDTS, p.StreamIndex, ErrInvalidInput)
	}
	s.lastDTS = dts

	cto := pts - dts
	if cto > math.MaxInt32 || cto < math.MinInt32 {
		return fmt.Errorf("composition offset %d overflows container field: %w", cto, ErrInvalidInput)
	}

	out := outSample{
		dts:  dts,
		pts:  pts,
		dur:  p.Duration,
		sync: p.Keyframe,
		size: uint32(len(p.Data)),
	}

	if m.frag != nil {
		out.data = append([]byte(nil), p.Data...)
		return m.frag.add(p.StreamIndex, out)
	}

	if m.opts.Faststart {
		out.data = append([]byte(nil), p.Data...)
	} else {
		out.offset = uint64(m.cur)
		if _, err := m.file.Write(p.Data); err != nil {
			return err
		}
		m.cur += int64(len(p.Data))
	}
	s.samples = append(s.samples, out)
	m.order = append(m.order, writeRef{stream: p.StreamIndex, index: len(s.samples) - 1})
	return nil
}

func (m *mp4Muxer) WriteTrailer() error {
	if !m.headerDone || m.trailerDone {
		return fmt.Errorf("trailer outside header window: %w", ErrInvalidInput)
	}
	m.trailerDone = true

	if m.frag != nil {
		return m.frag.finish()
	}

	for _, s := range m.streams {
		fillDurations(s.samples)
	}

	if m.opts.Faststart {
		return m.writeFaststart()
	}

	// Patch the mdat large size, then append moov.
	mdatSize := uint64(16)
	for _, s := range m.streams {
		for i := range s.samples {
			mdatSize += uint64(s.samples[i].size)
		}
	}
	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], 1)
	copy(hdr[4:8], "mdat")
	binary.BigEndian.PutUint64(hdr[8:16], mdatSize)
	if _, err := m.file.WriteAt(hdr[:], m.mdatStart); err != nil {
		return err
	}
	if _, err := m.file.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	co64 := m.cur > math.MaxUint32
	moov, err := m.buildMoov(co64, nil)
	if err != nil {
		return err
	}
	return moov.Encode(m.file)
}

// writeFaststart lays the file out moov-first: ftyp, moov, mdat. Chunk
// offsets depend on the moov size, which is independent of the offset values
// once the stco/co64 width is fixed.
func (m *mp4Muxer) writeFaststart() error {
	ftyp := mp4.CreateFtyp()

	var total uint64
	for _, s := range m.streams {
		for i := range s.samples {
			total += uint64(s.samples[i].size)
		}
	}

	co64 := false
	moov, err := m.buildMoov(co64, zeroOffsets(m.order))
	if err != nil {
		return err
	}
	dataStart := ftyp.Size() + moov.Size() + 8
	if dataStart+total > math.MaxUint32 {
		co64 = true
		moov, err = m.buildMoov(co64, zeroOffsets(m.order))
		if err != nil {
			return err
		}
		dataStart = ftyp.Size() + moov.Size() + 8
	}

	offsets := make(map[writeRef]uint64, len(m.order))
	at := dataStart
	for _, ref := range m.order {
		offsets[ref] = at
		at += uint64(m.streams[ref.stream].samples[ref.index].size)
	}
	moov, err = m.buildMoov(co64, offsets)
	if err != nil {
		return err
	}

	if err := ftyp.Encode(m.file); err != nil {
		return err
	}
	if err := moov.Encode(m.file); err != nil {
		return err
	}
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(8+total))
	copy(hdr[4:8], "mdat")
	if _, err := m.file.Write(hdr[:]); err != nil {
		return err
	}
	for _, ref := range m.order {
		if _, err := m.file.Write(m.streams[ref.stream].samples[ref.index].data); err != nil {
			return err
		}
	}
	return nil
}

func zeroOffsets(order []writeRef) map[writeRef]uint64 {
	z := make(map[writeRef]uint64, len(order))
	for _, ref := range order {
		z[ref] = 0
	}
	return z
}

// buildMoov assembles a progressive moov from the buffered sample metadata.
// offsets overrides the per-sample chunk offsets (faststart); nil uses the
// offsets recorded while streaming to disk.
func (m *mp4Muxer) buildMoov(co64 bool, offsets map[writeRef]uint64) (*mp4.MoovBox, error) {
	init := mp4.CreateEmptyInit()
	for _, s := range m.streams {
		init.AddEmptyTrack(uint32(s.info.TimeBase.Den), trackHandlerType(s.info.Type), "und")
	}
	moov := init.Moov

	// Progressive files carry no movie-extends box.
	kept := moov.Children[:0]
	for _, c := range moov.Children {
		if _, ok := c.(*mp4.MvexBox); ok {
			continue
		}
		kept = append(kept, c)
	}
	moov.Children = kept
	moov.Mvex = nil

	const movieTimescale = 1000
	moov.Mvhd.Timescale = movieTimescale

	if offsets == nil {
		offsets = make(map[writeRef]uint64, len(m.order))
		for _, ref := range m.order {
			offsets[ref] = m.streams[ref.stream].samples[ref.index].offset
		}
	}

	var movieDur uint64
	for si, s := range m.streams {
		trak := moov.Traks[si]
		if err := fillTrackTables(trak, s, si, co64, offsets); err != nil {
			return nil, err
		}

		var trackDur uint64
		for i := range s.samples {
			trackDur += uint64(s.samples[i].dur)
		}
		trak.Mdia.Mdhd.Duration = trackDur
		scaled := uint64(Rescale(int64(trackDur), s.info.TimeBase, Rational{Num: 1, Den: movieTimescale}))
		trak.Tkhd.Duration = scaled
		if scaled > movieDur {
			movieDur = scaled
		}
	}
	moov.Mvhd.Duration = movieDur
	return moov, nil
}

// fillTrackTables rebuilds the sample tables of one trak: stsd from the
// copied codec parameters, stts/ctts/stss/stsz from the buffered samples,
// and a one-sample-per-chunk stsc with stco or co64 offsets.
func fillTrackTables(trak *mp4.TrakBox, s *outStream, streamIdx int, co64 bool, offsets map[writeRef]uint64) error {
	stbl := trak.Mdia.Minf.Stbl

	replaceStblChild(stbl, s.stsd)
	stbl.Stsd = s.stsd

	stts := &mp4.SttsBox{}
	for i := range s.samples {
		dur := uint32(s.samples[i].dur)
		n := len(stts.SampleTimeDelta)
		if n > 0 && stts.SampleTimeDelta[n-1] == dur {
			stts.SampleCount[n-1]++
		} else {
			stts.SampleCount = append(stts.SampleCount, 1)
			stts.SampleTimeDelta = append(stts.SampleTimeDelta, dur)
		}
	}
	replaceStblChild(stbl, stts)
	stbl.Stts = stts

	var hasCTO bool
	for i := range s.samples {
		if s.samples[i].pts != s.samples[i].dts {
			hasCTO = true
			break
		}
	}
	if hasCTO {
		ctts := &mp4.CttsBox{EndSampleNr: []uint32{0}}
		for i := range s.samples {
			cto := int32(s.samples[i].pts - s.samples[i].dts)
			n := len(ctts.SampleOffset)
			if n > 0 && ctts.SampleOffset[n-1] == cto {
				ctts.EndSampleNr[n]++
			} else {
				ctts.EndSampleNr = append(ctts.EndSampleNr, ctts.EndSampleNr[n]+1)
				ctts.SampleOffset = append(ctts.SampleOffset, cto)
			}
		}
		stbl.AddChild(ctts)
	}

	allSync := true
	for i := range s.samples {
		if !s.samples[i].sync {
			allSync = false
			break
		}
	}
	if !allSync {
		stss := &mp4.StssBox{}
		for i := range s.samples {
			if s.samples[i].sync {
				stss.SampleNumber = append(stss.SampleNumber, uint32(i+1))
			}
		}
		stbl.AddChild(stss)
	}

	stsz := &mp4.StszBox{SampleNumber: uint32(len(s.samples))}
	for i := range s.samples {
		stsz.SampleSize = append(stsz.SampleSize, s.samples[i].size)
	}
	replaceStblChild(stbl, stsz)
	stbl.Stsz = stsz

	stsc := &mp4.StscBox{}
	if len(s.samples) > 0 {
		stsc.Entries = []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: 1, FirstSampleNr: 1}}
		stsc.SampleDescriptionID = []uint32{1}
	}
	replaceStblChild(stbl, stsc)
	stbl.Stsc = stsc

	// One chunk per sample keeps the offset table trivial for both layouts.
	if co64 {
		box := &mp4.Co64Box{}
		for i := range s.samples {
			box.ChunkOffset = append(box.ChunkOffset, offsets[writeRef{stream: streamIdx, index: i}])
		}
		removeStblStco(stbl)
		stbl.AddChild(box)
	} else {
		box := &mp4.StcoBox{}
		for i := range s.samples {
			off := offsets[writeRef{stream: streamIdx, index: i}]
			if off > math.MaxUint32 {
				return fmt.Errorf("chunk offset %d needs co64: %w", off, ErrInvalidInput)
			}
			box.ChunkOffset = append(box.ChunkOffset, uint32(off))
		}
		replaceStblChild(stbl, box)
		stbl.Stco = box
	}
	return nil
}

// replaceStblChild swaps the child of the same box type in place, keeping
// the encode order of the skeleton produced by CreateEmptyInit.
func replaceStblChild(stbl *mp4.StblBox, box mp4.Box) {
	for i, c := range stbl.Children {
		if c.Type() == box.Type() {
			stbl.Children[i] = box
			return
		}
	}
	stbl.AddChild(box)
}

func removeStblStco(stbl *mp4.StblBox) {
	kept := stbl.Children[:0]
	for _, c := range stbl.Children {
		if _, ok := c.(*mp4.StcoBox); ok {
			continue
		}
		kept = append(kept, c)
	}
	stbl.Children = kept
	stbl.Stco = nil
}

func trackHandlerType(t MediaType) string {
	switch t {
	case TypeVideo:
		return "video"
	case TypeAudio:
		return "audio"
	default:
		return "subtitle"
	}
}

// fillDurations replaces missing per-sample durations with DTS deltas; the
// final sample inherits its predecessor's duration.
func fillDurations(samples []outSample) {
	for i := range samples {
		if samples[i].dur > 0 {
			continue
		}
		switch {
		case i+1 < len(samples):
			samples[i].dur = samples[i+1].dts - samples[i].dts
		case i > 0:
			samples[i].dur = samples[i-1].dur
		default:
			samples[i].dur = 1
		}
		if samples[i].dur <= 0 {
			samples[i].dur = 1
		}
	}
}

func (m *mp4Muxer) Close() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}
