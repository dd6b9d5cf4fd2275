// Package media defines the narrow I/O surface the chunking pipeline needs
// from a container library: open a file, enumerate streams, read packets in
// order, seek backward to a keyframe, and write packets into a new container
// without touching the coded payload.
//
// The probe, planner, splitter, and stitcher stages program against the
// Demuxer and Muxer interfaces only. The concrete provider in this package
// is a pure-Go ISO BMFF (mp4/mov) implementation built on
// github.com/Eyevinn/mp4ff; matroska and webm are recognized by the format
// registry but have no provider and fail with ErrUnsupportedFormat.
package media
