package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/media/mediatest"
	"github.com/mdsohelmia/smartchunking/internal/planner"
)

// --- Helper builders ---

// avSource builds a 6s source: video frames every 0.5s with keyframes every
// 2s, audio packets every 0.5s, interleaved.
func avSource() *mediatest.FakeDemuxer {
	streams := []media.StreamInfo{
		{Index: 0, Type: media.TypeVideo, TimeBase: media.Rational{Num: 1, Den: 1000}},
		{Index: 1, Type: media.TypeAudio, TimeBase: media.Rational{Num: 1, Den: 1000}},
	}
	var packets []*media.Packet
	for ms := int64(0); ms <= 6000; ms += 500 {
		packets = append(packets, &media.Packet{
			StreamIndex: 0, PTS: ms, DTS: ms, Duration: 500,
			Keyframe: ms%2000 == 0,
			Data:     []byte{byte(ms / 500), 'v'},
		})
		packets = append(packets, &media.Packet{
			StreamIndex: 1, PTS: ms, DTS: ms, Duration: 500,
			Keyframe: true,
			Data:     []byte{byte(ms / 500), 'a'},
		})
	}
	return &mediatest.FakeDemuxer{StreamInfos: streams, Packets: packets, Dur: 6.5}
}

func copyChunk(t *testing.T, dmx *mediatest.FakeDemuxer, start, end float64) *mediatest.FakeMuxer {
	t.Helper()
	mux := &mediatest.FakeMuxer{}
	err := CopyRange(dmx, mux, planner.Chunk{Start: start, End: end}, media.MuxOptions{})
	require.NoError(t, err)
	return mux
}

func times(packets []*media.Packet) []int64 {
	var out []int64
	for _, p := range packets {
		out = append(out, p.PTS)
	}
	return out
}

// --- Range policy ---

func TestCopyRangeFirstChunk(t *testing.T) {
	mux := copyChunk(t, avSource(), 0, 2)

	assert.True(t, mux.HeaderDone)
	assert.True(t, mux.TrailerDone)

	// Video: [0, 2s); the keyframe at 2s belongs to the next chunk.
	assert.Equal(t, []int64{0, 500, 1000, 1500}, times(mux.PacketsFor(0)))
	// Audio: strictly below the end.
	assert.Equal(t, []int64{0, 500, 1000, 1500}, times(mux.PacketsFor(1)))
}

func TestCopyRangeSeeksToKeyframe(t *testing.T) {
	dmx := avSource()
	mux := copyChunk(t, dmx, 2, 4)

	require.Len(t, dmx.SeekTargets, 1)
	assert.Equal(t, int64(2_000_000), dmx.SeekTargets[0])

	assert.Equal(t, []int64{2000, 2500, 3000, 3500}, times(mux.PacketsFor(0)))
	assert.Equal(t, []int64{2000, 2500, 3000, 3500}, times(mux.PacketsFor(1)))
}

func TestCopyRangePreservesSourceTimestamps(t *testing.T) {
	// Timestamps are not rebased per chunk; the chunk at [4s, 6s) keeps its
	// source PTS values so stitching can rebuild the original timeline.
	mux := copyChunk(t, avSource(), 4, 6)
	video := mux.PacketsFor(0)
	require.NotEmpty(t, video)
	assert.Equal(t, int64(4000), video[0].PTS)
	assert.Equal(t, int64(4000), video[0].DTS)
}

func TestCopyRangeVideoClosesOnKeyframeOnly(t *testing.T) {
	// A trailing non-keyframe past the end must be dropped without closing
	// the video range; only the next keyframe ends it.
	streams := []media.StreamInfo{
		{Index: 0, Type: media.TypeVideo, TimeBase: media.Rational{Num: 1, Den: 1000}},
	}
	packets := []*media.Packet{
		{StreamIndex: 0, PTS: 0, DTS: 0, Keyframe: true, Data: []byte{0}},
		{StreamIndex: 0, PTS: 900, DTS: 900, Data: []byte{1}},
		{StreamIndex: 0, PTS: 1100, DTS: 1100, Data: []byte{2}}, // past end, not a keyframe
		{StreamIndex: 0, PTS: 950, DTS: 950, Data: []byte{3}},   // reorder tail, still in range
		{StreamIndex: 0, PTS: 2000, DTS: 2000, Keyframe: true, Data: []byte{4}},
	}
	dmx := &mediatest.FakeDemuxer{StreamInfos: streams, Packets: packets}

	mux := copyChunk(t, dmx, 0, 1)
	assert.Equal(t, []int64{0, 900, 950}, times(mux.PacketsFor(0)))
}

func TestCopyRangeSkipsAttachmentStreams(t *testing.T) {
	streams := []media.StreamInfo{
		{Index: 0, Type: media.TypeVideo, TimeBase: media.Rational{Num: 1, Den: 1000}},
		{Index: 1, Type: media.TypeAttachment, TimeBase: media.Rational{Num: 1, Den: 1000}},
	}
	packets := []*media.Packet{
		{StreamIndex: 0, PTS: 0, DTS: 0, Keyframe: true, Data: []byte{0}},
		{StreamIndex: 1, PTS: 0, DTS: 0, Data: []byte{9}},
	}
	dmx := &mediatest.FakeDemuxer{StreamInfos: streams, Packets: packets}

	mux := copyChunk(t, dmx, 0, 1)
	require.Len(t, mux.Streams, 1)
	assert.Equal(t, media.TypeVideo, mux.Streams[0].Type)
	require.Len(t, mux.Written, 1)
	assert.Equal(t, 0, mux.Written[0].StreamIndex)
}

func TestCopyRangeFragmentedOption(t *testing.T) {
	dmx := avSource()
	mux := &mediatest.FakeMuxer{}
	err := CopyRange(dmx, mux, planner.Chunk{Start: 0, End: 2}, media.MuxOptions{FragmentedMP4: true})
	require.NoError(t, err)
	assert.True(t, mux.Opts.FragmentedMP4)
}

func TestSplitChunkRejectsEmptyRange(t *testing.T) {
	err := SplitChunk("in.mp4", planner.Chunk{Start: 5, End: 5}, "out.mp4", Options{AutoFormat: true})
	assert.ErrorIs(t, err, media.ErrInvalidInput)
}

func TestCopyRangeWriteErrorAborts(t *testing.T) {
	dmx := avSource()
	mux := &mediatest.FakeMuxer{FailWrite: assert.AnError}
	err := CopyRange(dmx, mux, planner.Chunk{Start: 0, End: 2}, media.MuxOptions{})
	assert.ErrorIs(t, err, assert.AnError)
}
