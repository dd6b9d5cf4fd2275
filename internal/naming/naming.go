// Package naming owns the chunk file layout: zero-padded chunk_NNNN.EXT
// names inside the caller-supplied chunk directory, and the canonical
// (absolute) path resolution the stitcher performs before opening a chunk.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mdsohelmia/smartchunking/internal/media"
)

const chunkPrefix = "chunk_"

// ExtensionFor maps a container format to its customary file extension.
func ExtensionFor(format media.Format) string {
	switch format {
	case media.FormatMOV:
		return "mov"
	case media.FormatMatroska:
		return "mkv"
	case media.FormatWebM:
		return "webm"
	default:
		return "mp4"
	}
}

// ChunkFileName returns the zero-padded chunk file name, e.g. chunk_0007.mp4.
func ChunkFileName(index int, ext string) string {
	return fmt.Sprintf("%s%04d.%s", chunkPrefix, index, ext)
}

// ChunkPath joins the chunk directory with the chunk file name.
func ChunkPath(dir string, index int, ext string) string {
	return filepath.Join(dir, ChunkFileName(index, ext))
}

// CanonicalChunkPath resolves the absolute path of a chunk file and verifies
// it exists. A missing file reports media.ErrMissingChunk.
func CanonicalChunkPath(dir string, index int, ext string) (string, error) {
	path, err := filepath.Abs(ChunkPath(dir, index, ext))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%s: %w", path, media.ErrMissingChunk)
	}
	return path, nil
}

// ParseChunkFileName splits a chunk file name into index and extension.
// ok is false for names outside the chunk_NNNN.EXT layout.
func ParseChunkFileName(name string) (index int, ext string, ok bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, chunkPrefix) {
		return 0, "", false
	}
	rest := strings.TrimPrefix(base, chunkPrefix)
	dot := strings.LastIndexByte(rest, '.')
	if dot <= 0 || dot == len(rest)-1 {
		return 0, "", false
	}
	numPart, ext := rest[:dot], rest[dot+1:]
	if len(numPart) != 4 {
		return 0, "", false
	}
	n, err := strconv.Atoi(numPart)
	if err != nil || n < 0 {
		return 0, "", false
	}
	return n, ext, true
}
