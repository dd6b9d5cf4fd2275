// Package planner turns a probe result into a keyframe-aligned chunk plan.
// It is the central decision stage of the pipeline: cut points are selected
// from the probed keyframe timestamps under target/min/max duration
// constraints, optionally scored by scene-change and complexity analysis,
// then post-processed into a contiguous, densely indexed plan covering
// [0, duration].
//
// Two selection modes exist: the basic mode scores candidates purely by
// distance from the target duration; the smart mode (enabled by scene
// detection or complexity adaptation) adds scene-cut and quality bonuses.
package planner
