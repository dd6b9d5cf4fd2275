package media

import (
	"path/filepath"
	"strings"
)

// Format is a muxer short name, following the usual libav vocabulary.
type Format string

const (
	FormatMP4      Format = "mp4"
	FormatMOV      Format = "mov"
	FormatMatroska Format = "matroska"
	FormatWebM     Format = "webm"
)

// DetectFormat maps a file path to a container format by extension.
// Unknown extensions fall back to mp4, matching the original splitter.
func DetectFormat(path string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "mp4", "m4v":
		return FormatMP4
	case "mov":
		return FormatMOV
	case "mkv":
		return FormatMatroska
	case "webm":
		return FormatWebM
	default:
		return FormatMP4
	}
}

// ResolveFormat applies the auto/forced format policy shared by the splitter
// and stitcher: auto mode derives the format from the reference path, forced
// mode uses the caller's format name (empty defaults to mp4).
func ResolveFormat(auto bool, forced Format, referencePath string) Format {
	if auto {
		return DetectFormat(referencePath)
	}
	if forced == "" {
		return FormatMP4
	}
	return forced
}

// isMP4Family reports whether the format is handled by the ISO BMFF provider.
func isMP4Family(f Format) bool {
	return f == FormatMP4 || f == FormatMOV
}

// Values for MuxOptions.AvoidNegativeTS, mirroring the muxer option
// vocabulary of the provider family.
const (
	AvoidNegativeTSAuto     = ""
	AvoidNegativeTSDisabled = "disabled"
)

// MuxOptions carries the muxer options the pipeline needs. For mp4 outputs
// FragmentedMP4 corresponds to movflags frag_keyframe+empty_moov+
// omit_tfhd_offset and Faststart to movflags faststart. Faststart is ignored
// when FragmentedMP4 is set.
type MuxOptions struct {
	FragmentedMP4   bool
	Faststart       bool
	AvoidNegativeTS string
}
