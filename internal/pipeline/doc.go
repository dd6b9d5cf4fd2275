// Package pipeline orchestrates the four stages of a run: probe the source,
// build the chunk plan, split the chunks, and stitch them back. It also owns
// the run artifacts (plan JSON, frame report) and the optional round-trip
// digest verification.
package pipeline
