package media

import (
	"bytes"
	"fmt"
	"io"
	"os"

	mp4 "github.com/Eyevinn/mp4ff/mp4"
)

// mp4Sample is one access unit located inside the container. Progressive
// files carry an absolute byte offset into the source; fragmented files
// carry the payload directly (their mdat is already in memory).
type mp4Sample struct {
	decTime uint64
	dur     uint32
	cto     int32
	size    uint32
	offset  uint64
	data    []byte
	sync    bool
}

func (s *mp4Sample) presentation() uint64 {
	return uint64(int64(s.decTime) + int64(s.cto))
}

type mp4Track struct {
	info      StreamInfo
	timescale uint32
	samples   []mp4Sample
	cursor    int
}

func (t *mp4Track) timeAt(i int) float64 {
	return t.info.TimeBase.Seconds(int64(t.samples[i].decTime))
}

type mp4Demuxer struct {
	file     *os.File
	tracks   []*mp4Track
	duration float64
}

// openMP4Demuxer parses the container structure and builds per-track sample
// indexes. Progressive files are decoded with a lazy mdat so only the box
// tree is held in memory; fragmented files are decoded fully, which is fine
// for the chunk-sized inputs the stitcher feeds through here.
func openMP4Demuxer(path string) (*mp4Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	mf, err := mp4.DecodeFile(f, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrUnreadableContainer)
	}
	if mf.IsFragmented() {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
		mf, err = mp4.DecodeFile(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %v: %w", path, err, ErrUnreadableContainer)
		}
	}

	d := &mp4Demuxer{file: f}
	if err := d.index(mf); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func (d *mp4Demuxer) index(mf *mp4.File) error {
	moov := mf.Moov
	if mf.IsFragmented() && mf.Init != nil {
		moov = mf.Init.Moov
	}
	if moov == nil || moov.Mvhd == nil {
		return ErrUnreadableContainer
	}
	if moov.Mvhd.Timescale > 0 {
		d.duration = float64(moov.Mvhd.Duration) / float64(moov.Mvhd.Timescale)
	}

	for i, trak := range moov.Traks {
		t, err := buildTrack(i, trak, mf)
		if err != nil {
			return err
		}
		d.tracks = append(d.tracks, t)
	}
	if len(d.tracks) == 0 {
		return ErrUnreadableContainer
	}
	return nil
}

func buildTrack(index int, trak *mp4.TrakBox, mf *mp4.File) (*mp4Track, error) {
	if trak.Mdia == nil || trak.Mdia.Mdhd == nil || trak.Mdia.Hdlr == nil ||
		trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, ErrUnreadableContainer
	}
	mdhd := trak.Mdia.Mdhd
	stbl := trak.Mdia.Minf.Stbl

	t := &mp4Track{timescale: mdhd.Timescale}
	t.info = StreamInfo{
		Index:    index,
		Type:     handlerMediaType(trak.Mdia.Hdlr.HandlerType),
		TimeBase: Rational{Num: 1, Den: int64(mdhd.Timescale)},
	}
	if mdhd.Timescale > 0 {
		t.info.Duration = float64(mdhd.Duration) / float64(mdhd.Timescale)
	}
	if stbl.Stsd != nil {
		var buf bytes.Buffer
		if err := stbl.Stsd.Encode(&buf); err != nil {
			return nil, fmt.Errorf("encode sample description: %v: %w", err, ErrUnreadableContainer)
		}
		t.info.CodecParams = buf.Bytes()
		if len(stbl.Stsd.Children) > 0 {
			t.info.Codec = stbl.Stsd.Children[0].Type()
		}
	}

	var err error
	if mf.IsFragmented() {
		t.samples, err = fragmentedSamples(trak, mf)
	} else {
		t.samples, err = progressiveSamples(stbl)
	}
	if err != nil {
		return nil, err
	}

	if t.info.Type == TypeVideo && len(t.samples) > 0 {
		var total int64
		for i := range t.samples {
			total += int64(t.samples[i].dur)
		}
		if total > 0 {
			t.info.AvgFrameRate = Rational{
				Num: int64(len(t.samples)) * int64(mdhd.Timescale),
				Den: total,
			}.Reduce()
		}
		if t.info.Duration == 0 {
			t.info.Duration = t.info.TimeBase.Seconds(total)
		}
	}
	return t, nil
}

func handlerMediaType(handler string) MediaType {
	switch handler {
	case "vide":
		return TypeVideo
	case "soun":
		return TypeAudio
	case "subt", "sbtl", "text":
		return TypeSubtitle
	default:
		return TypeData
	}
}

// progressiveSamples expands the stbl sample tables into a flat index with
// absolute file offsets, so ReadPacket can pull payloads straight from the
// source file.
func progressiveSamples(stbl *mp4.StblBox) ([]mp4Sample, error) {
	stts := stbl.Stts
	stsz := stbl.Stsz
	stsc := stbl.Stsc
	if stts == nil || stsz == nil || stsc == nil {
		return nil, ErrUnreadableContainer
	}

	count := int(stsz.SampleNumber)
	if count == 0 {
		return nil, nil
	}
	samples := make([]mp4Sample, count)

	// Sizes and their prefix sums (for intra-chunk offsets).
	prefix := make([]uint64, count+1)
	for i := 0; i < count; i++ {
		size := stsz.SampleUniformSize
		if size == 0 {
			if i >= len(stsz.SampleSize) {
				return nil, ErrUnreadableContainer
			}
			size = stsz.SampleSize[i]
		}
		samples[i].size = size
		prefix[i+1] = prefix[i] + uint64(size)
	}

	// Decode times and durations from the stts runs.
	var decTime uint64
	idx := 0
	for run := 0; run < len(stts.SampleCount); run++ {
		for n := uint32(0); n < stts.SampleCount[run]; n++ {
			if idx >= count {
				break
			}
			samples[idx].decTime = decTime
			samples[idx].dur = stts.SampleTimeDelta[run]
			decTime += uint64(stts.SampleTimeDelta[run])
			idx++
		}
	}

	// Composition offsets.
	if ctts := stbl.Ctts; ctts != nil {
		idx = 0
		for run := 0; run < ctts.NrSampleCount() && idx < count; run++ {
			for n := uint32(0); n < ctts.SampleCount(run) && idx < count; n++ {
				samples[idx].cto = ctts.SampleOffset[run]
				idx++
			}
		}
	}

	// Sync samples: absent table means every sample is a random access point.
	if stss := stbl.Stss; stss != nil {
		for _, nr := range stss.SampleNumber {
			if int(nr) >= 1 && int(nr) <= count {
				samples[nr-1].sync = true
			}
		}
	} else {
		for i := range samples {
			samples[i].sync = true
		}
	}

	// Chunk offsets.
	var chunkOffsets []uint64
	switch {
	case stbl.Co64 != nil:
		chunkOffsets = stbl.Co64.ChunkOffset
	case stbl.Stco != nil:
		chunkOffsets = make([]uint64, len(stbl.Stco.ChunkOffset))
		for i, o := range stbl.Stco.ChunkOffset {
			chunkOffsets[i] = uint64(o)
		}
	default:
		return nil, ErrUnreadableContainer
	}

	// Expand the sample-to-chunk map: each stsc entry applies from its
	// FirstChunk up to the next entry's FirstChunk (exclusive).
	sampleNr := 0
	for e := 0; e < len(stsc.Entries); e++ {
		firstChunk := int(stsc.Entries[e].FirstChunk)
		lastChunk := len(chunkOffsets)
		if e+1 < len(stsc.Entries) {
			lastChunk = int(stsc.Entries[e+1].FirstChunk) - 1
		}
		perChunk := int(stsc.Entries[e].SamplesPerChunk)
		for c := firstChunk; c <= lastChunk && sampleNr < count; c++ {
			if c < 1 || c > len(chunkOffsets) {
				return nil, ErrUnreadableContainer
			}
			base := chunkOffsets[c-1]
			chunkStart := sampleNr
			for n := 0; n < perChunk && sampleNr < count; n++ {
				samples[sampleNr].offset = base + (prefix[sampleNr] - prefix[chunkStart])
				sampleNr++
			}
		}
	}
	if sampleNr != count {
		return nil, ErrUnreadableContainer
	}
	return samples, nil
}

// fragmentedSamples flattens every moof/mdat pair belonging to the track.
func fragmentedSamples(trak *mp4.TrakBox, mf *mp4.File) ([]mp4Sample, error) {
	if trak.Tkhd == nil {
		return nil, ErrUnreadableContainer
	}
	trackID := trak.Tkhd.TrackID

	var trex *mp4.TrexBox
	if mf.Init != nil && mf.Init.Moov != nil && mf.Init.Moov.Mvex != nil {
		for _, child := range mf.Init.Moov.Mvex.Children {
			if tx, ok := child.(*mp4.TrexBox); ok && tx.TrackID == trackID {
				trex = tx
				break
			}
		}
	}

	var samples []mp4Sample
	for _, seg := range mf.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || frag.Moof.Traf == nil || frag.Moof.Traf.Tfhd == nil {
				continue
			}
			if frag.Moof.Traf.Tfhd.TrackID != trackID {
				continue
			}
			full, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, fmt.Errorf("fragment samples: %v: %w", err, ErrUnreadableContainer)
			}
			for i := range full {
				fs := &full[i]
				samples = append(samples, mp4Sample{
					decTime: fs.DecodeTime,
					dur:     fs.Sample.Dur,
					cto:     fs.Sample.CompositionTimeOffset,
					size:    fs.Sample.Size,
					data:    fs.Data,
					sync:    fs.Sample.IsSync(),
				})
			}
		}
	}
	return samples, nil
}

func (d *mp4Demuxer) Streams() []StreamInfo {
	infos := make([]StreamInfo, len(d.tracks))
	for i, t := range d.tracks {
		infos[i] = t.info
	}
	return infos
}

func (d *mp4Demuxer) Duration() float64 { return d.duration }

// ReadPacket returns the packet with the smallest decode time across all
// track cursors, which reproduces the interleaved order a streaming demuxer
// would deliver.
func (d *mp4Demuxer) ReadPacket() (*Packet, error) {
	best := -1
	var bestTime float64
	for i, t := range d.tracks {
		if t.cursor >= len(t.samples) {
			continue
		}
		ts := t.timeAt(t.cursor)
		if best < 0 || ts < bestTime {
			best = i
			bestTime = ts
		}
	}
	if best < 0 {
		return nil, io.EOF
	}

	t := d.tracks[best]
	s := &t.samples[t.cursor]
	t.cursor++

	data := s.data
	if data == nil {
		data = make([]byte, s.size)
		if _, err := d.file.ReadAt(data, int64(s.offset)); err != nil {
			return nil, fmt.Errorf("read sample at %d: %w", s.offset, err)
		}
	}
	return &Packet{
		StreamIndex: best,
		PTS:         int64(s.presentation()),
		DTS:         int64(s.decTime),
		Duration:    int64(s.dur),
		Keyframe:    s.sync,
		Data:        data,
	}, nil
}

// Seek implements backward-to-keyframe semantics: it finds the last sync
// sample of the reference video track at or before the target and rewinds
// every track there.
func (d *mp4Demuxer) Seek(micros int64) error {
	target := float64(micros) / float64(MicrosPerSecond)

	ref := 0
	for i, t := range d.tracks {
		if t.info.Type == TypeVideo {
			ref = i
			break
		}
	}
	rt := d.tracks[ref]

	const eps = 1e-6
	key := 0
	found := false
	for i := range rt.samples {
		s := &rt.samples[i]
		if !s.sync {
			continue
		}
		if rt.info.TimeBase.Seconds(int64(s.presentation())) <= target+eps {
			key = i
			found = true
		} else {
			break
		}
	}
	if !found && len(rt.samples) == 0 {
		return fmt.Errorf("seek to %d us: %w", micros, ErrSeek)
	}
	rt.cursor = key
	keyTime := rt.info.TimeBase.Seconds(int64(rt.samples[key].presentation()))

	for i, t := range d.tracks {
		if i == ref {
			continue
		}
		cursor := 0
		for j := range t.samples {
			s := &t.samples[j]
			if !s.sync {
				continue
			}
			if t.info.TimeBase.Seconds(int64(s.presentation())) <= keyTime+eps {
				cursor = j
			} else {
				break
			}
		}
		t.cursor = cursor
	}
	return nil
}

func (d *mp4Demuxer) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
