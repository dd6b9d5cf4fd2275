package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdsohelmia/smartchunking/internal/media"
	"github.com/mdsohelmia/smartchunking/internal/media/mediatest"
	"github.com/mdsohelmia/smartchunking/internal/probe"
)

func fakeAV(payloads ...[]byte) *mediatest.FakeDemuxer {
	streams := []media.StreamInfo{
		{Index: 0, Type: media.TypeVideo, TimeBase: media.Rational{Num: 1, Den: 1000}},
		{Index: 1, Type: media.TypeAudio, TimeBase: media.Rational{Num: 1, Den: 1000}},
	}
	var packets []*media.Packet
	for i, data := range payloads {
		packets = append(packets, &media.Packet{
			StreamIndex: i % 2,
			PTS:         int64(i) * 500,
			DTS:         int64(i) * 500,
			Keyframe:    true,
			Data:        data,
		})
	}
	return &mediatest.FakeDemuxer{StreamInfos: streams, Packets: packets}
}

func TestDigestTracksMatchForIdenticalPayloads(t *testing.T) {
	a, err := digestTracks(fakeAV([]byte{1}, []byte{2}, []byte{3}, []byte{4}))
	require.NoError(t, err)
	b, err := digestTracks(fakeAV([]byte{1}, []byte{2}, []byte{3}, []byte{4}))
	require.NoError(t, err)

	require.Len(t, a, 2)
	assert.Equal(t, a, b)
}

func TestDigestTracksDifferPerTrack(t *testing.T) {
	a, err := digestTracks(fakeAV([]byte{1}, []byte{2}))
	require.NoError(t, err)
	b, err := digestTracks(fakeAV([]byte{1}, []byte{9}))
	require.NoError(t, err)

	assert.Equal(t, a[0], b[0], "video payloads identical")
	assert.NotEqual(t, a[1], b[1], "audio payloads differ")
}

func TestDigestTracksSkipsAttachments(t *testing.T) {
	dmx := &mediatest.FakeDemuxer{
		StreamInfos: []media.StreamInfo{
			{Index: 0, Type: media.TypeVideo, TimeBase: media.Rational{Num: 1, Den: 1000}},
			{Index: 1, Type: media.TypeAttachment, TimeBase: media.Rational{Num: 1, Den: 1000}},
		},
		Packets: []*media.Packet{
			{StreamIndex: 0, PTS: 0, DTS: 0, Keyframe: true, Data: []byte{1}},
			{StreamIndex: 1, PTS: 0, DTS: 0, Data: []byte{2}},
		},
	}
	digests, err := digestTracks(dmx)
	require.NoError(t, err)
	assert.Len(t, digests, 1)
}

func TestWriteFrameReport(t *testing.T) {
	res := &probe.Result{
		Frames: []probe.FrameMeta{
			{PTSTime: 0, Keyframe: true, PacketSize: 5000},
			{PTSTime: 0.04, Keyframe: false, PacketSize: 900},
		},
		Duration: 0.08,
	}

	path := filepath.Join(t.TempDir(), "frames.csv")
	require.NoError(t, WriteFrameReport(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "header plus two rows")
	assert.Equal(t, "index,pts_time,keyframe,packet_size", lines[0])
	assert.Contains(t, lines[1], "0,0,true,5000")
	assert.Contains(t, lines[2], "0.04,false,900")
}

func TestStageErrorWrapping(t *testing.T) {
	err := stageErr(StageSplit, media.ErrMissingChunk)
	assert.ErrorIs(t, err, media.ErrMissingChunk)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSplit, se.Stage)
}
