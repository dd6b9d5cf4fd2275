package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/mdsohelmia/smartchunking/internal/media"
)

// TrackDigests returns one SHA-256 hex digest per non-attachment stream,
// computed over the concatenated coded packet payloads in read order. Two
// files whose digests match carry byte-identical coded frames per track.
func TrackDigests(path string) ([]string, error) {
	dmx, err := media.OpenDemuxer(path)
	if err != nil {
		return nil, err
	}
	defer dmx.Close()
	return digestTracks(dmx)
}

func digestTracks(dmx media.Demuxer) ([]string, error) {
	streams := dmx.Streams()
	hashes := make([]hash.Hash, 0, len(streams))
	slot := make([]int, len(streams))
	for i, s := range streams {
		if s.Type == media.TypeAttachment {
			slot[i] = -1
			continue
		}
		slot[i] = len(hashes)
		hashes = append(hashes, sha256.New())
	}

	for {
		pkt, err := dmx.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if pkt.StreamIndex < 0 || pkt.StreamIndex >= len(slot) || slot[pkt.StreamIndex] < 0 {
			continue
		}
		hashes[slot[pkt.StreamIndex]].Write(pkt.Data)
	}

	digests := make([]string, len(hashes))
	for i, h := range hashes {
		digests[i] = hex.EncodeToString(h.Sum(nil))
	}
	return digests, nil
}

// VerifyRoundTrip compares the per-track digests of the source and the
// stitched output. All mismatches are reported together.
func VerifyRoundTrip(sourcePath, outputPath string) error {
	srcDigests, err := TrackDigests(sourcePath)
	if err != nil {
		return fmt.Errorf("digest source: %w", err)
	}
	outDigests, err := TrackDigests(outputPath)
	if err != nil {
		return fmt.Errorf("digest output: %w", err)
	}

	if len(srcDigests) != len(outDigests) {
		return fmt.Errorf("track count differs: source %d, output %d: %w",
			len(srcDigests), len(outDigests), media.ErrLayoutMismatch)
	}

	var result *multierror.Error
	for i := range srcDigests {
		if srcDigests[i] != outDigests[i] {
			result = multierror.Append(result, fmt.Errorf(
				"track %d payload digest differs: source %s, output %s",
				i, srcDigests[i][:12], outDigests[i][:12]))
		}
	}
	return result.ErrorOrNil()
}
