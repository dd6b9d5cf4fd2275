package media

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	mp4 "github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Round-trip tests for the real provider: packets written through the muxer
// (progressive, faststart, and fragmented layouts) must come back from the
// demuxer with identical payloads, timestamps, durations, and keyframe
// flags.

// testCodecParams builds a minimal serialized sample description, the same
// opaque bytes AddStream expects from a demuxed source.
func testCodecParams(t *testing.T) []byte {
	t.Helper()
	stsd := &mp4.StsdBox{}
	var buf bytes.Buffer
	require.NoError(t, stsd.Encode(&buf))
	return buf.Bytes()
}

func testVideoInfo(t *testing.T) StreamInfo {
	return StreamInfo{
		Index:       0,
		Type:        TypeVideo,
		TimeBase:    Rational{Num: 1, Den: 1000},
		CodecParams: testCodecParams(t),
	}
}

func testAudioInfo(t *testing.T) StreamInfo {
	return StreamInfo{
		Index:       1,
		Type:        TypeAudio,
		TimeBase:    Rational{Num: 1, Den: 48000},
		CodecParams: testCodecParams(t),
	}
}

// testPackets returns two GOPs of video (keyframes at 0ms and 1000ms, a
// composition offset on the non-key frames) and a run of audio packets.
func testPackets() (video, audio []*Packet) {
	for i := 0; i < 4; i++ {
		dts := int64(i) * 500
		key := i%2 == 0
		cto := int64(0)
		if !key {
			cto = 100
		}
		video = append(video, &Packet{
			StreamIndex: 0,
			PTS:         dts + cto,
			DTS:         dts,
			Duration:    500,
			Keyframe:    key,
			Data:        []byte{'v', byte(i), byte(i * 3)},
		})
	}
	for i := 0; i < 4; i++ {
		dts := int64(i) * 1024
		audio = append(audio, &Packet{
			StreamIndex: 1,
			PTS:         dts,
			DTS:         dts,
			Duration:    1024,
			Keyframe:    true,
			Data:        []byte{'a', byte(i)},
		})
	}
	return video, audio
}

// writeAVFile muxes the test packets into path with the given options.
func writeAVFile(t *testing.T, path string, opts MuxOptions) (video, audio []*Packet) {
	t.Helper()

	mux, err := NewMuxer(path, FormatMP4)
	require.NoError(t, err)

	vi, err := mux.AddStream(testVideoInfo(t))
	require.NoError(t, err)
	require.Equal(t, 0, vi)
	ai, err := mux.AddStream(testAudioInfo(t))
	require.NoError(t, err)
	require.Equal(t, 1, ai)

	require.NoError(t, mux.WriteHeader(opts))

	video, audio = testPackets()
	for _, p := range video {
		cp := *p
		require.NoError(t, mux.WritePacket(&cp))
	}
	for _, p := range audio {
		cp := *p
		require.NoError(t, mux.WritePacket(&cp))
	}

	require.NoError(t, mux.WriteTrailer())
	require.NoError(t, mux.Close())
	return video, audio
}

// readAVFile demuxes path and groups the packets per stream.
func readAVFile(t *testing.T, path string) ([]StreamInfo, map[int][]*Packet) {
	t.Helper()

	dmx, err := OpenDemuxer(path)
	require.NoError(t, err)
	defer dmx.Close()

	streams := dmx.Streams()
	perStream := make(map[int][]*Packet)
	for {
		pkt, err := dmx.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		perStream[pkt.StreamIndex] = append(perStream[pkt.StreamIndex], pkt)
	}
	return streams, perStream
}

func assertPacketFidelity(t *testing.T, want, got []*Packet) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].DTS, got[i].DTS, "packet %d DTS", i)
		assert.Equal(t, want[i].PTS, got[i].PTS, "packet %d PTS", i)
		assert.Equal(t, want[i].Duration, got[i].Duration, "packet %d duration", i)
		assert.Equal(t, want[i].Keyframe, got[i].Keyframe, "packet %d keyframe flag", i)
		assert.True(t, bytes.Equal(want[i].Data, got[i].Data), "packet %d payload", i)
	}
}

func assertAVRoundTrip(t *testing.T, path string) {
	t.Helper()
	video, audio := testPackets()
	streams, perStream := readAVFile(t, path)

	require.Len(t, streams, 2)
	assert.Equal(t, TypeVideo, streams[0].Type)
	assert.Equal(t, Rational{Num: 1, Den: 1000}, streams[0].TimeBase)
	assert.Equal(t, TypeAudio, streams[1].Type)
	assert.Equal(t, Rational{Num: 1, Den: 48000}, streams[1].TimeBase)

	assertPacketFidelity(t, video, perStream[0])
	assertPacketFidelity(t, audio, perStream[1])
}

// boxOffset returns the byte offset of the first occurrence of a top-level
// box name in the file, for layout assertions.
func boxOffset(t *testing.T, path, name string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	idx := bytes.Index(data, []byte(name))
	require.GreaterOrEqual(t, idx, 0, "box %s not found", name)
	return idx
}

func TestMuxDemuxRoundTripProgressive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progressive.mp4")
	writeAVFile(t, path, MuxOptions{})
	assertAVRoundTrip(t, path)

	// Default layout streams the mdat and appends moov at the trailer.
	assert.Less(t, boxOffset(t, path, "mdat"), boxOffset(t, path, "moov"))
}

func TestMuxDemuxRoundTripFaststart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faststart.mp4")
	writeAVFile(t, path, MuxOptions{Faststart: true})
	assertAVRoundTrip(t, path)

	// Faststart puts moov ahead of the sample data.
	assert.Less(t, boxOffset(t, path, "moov"), boxOffset(t, path, "mdat"))
}

func TestMuxDemuxRoundTripFragmented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fragmented.mp4")
	writeAVFile(t, path, MuxOptions{FragmentedMP4: true})
	assertAVRoundTrip(t, path)

	// The keyframe at 1000ms opens a second media segment: one video-only
	// fragment for the first GOP, then a video and an audio fragment for
	// the remainder.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count(data, []byte("moof")))
}

func TestRoundTripSeekBackwardToKeyframe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.mp4")
	writeAVFile(t, path, MuxOptions{})

	dmx, err := OpenDemuxer(path)
	require.NoError(t, err)
	defer dmx.Close()

	// Seeking into the second GOP must land on its opening keyframe.
	require.NoError(t, dmx.Seek(1_200_000))
	for {
		pkt, err := dmx.ReadPacket()
		require.NoError(t, err)
		if pkt.StreamIndex != 0 {
			continue
		}
		assert.Equal(t, int64(1000), pkt.DTS)
		assert.True(t, pkt.Keyframe)
		break
	}
}
