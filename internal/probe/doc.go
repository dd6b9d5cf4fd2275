// Package probe performs a packet-only scan of a video asset: it walks every
// packet of the best video stream without decoding and records timestamp,
// keyframe flag, and packet size, plus a trustworthy total duration. The
// result feeds the chunk planner.
//
// Types:
//   - FrameMeta, Result
//
// Functions:
//   - Probe(path) → *Result
//     Opens the container through the media provider and scans it.
//   - Scan(dmx) → *Result
//     The provider-agnostic scan, separated so tests can feed a fake
//     demuxer the way the legacy prober was tested on captured JSON.
package probe
