// Package region models the user's description of which screen areas to
// reconstruct.
//
// A Spec is one of three immutable shapes: a Box covering the whole video,
// a list of time-bounded Segments at named or explicit positions, or a
// Freehand drawing captured on a preview canvas. Specs are parsed once from
// JSON and never mutated; the mask package turns them into pixel masks.
//
// Mapper rescales canvas coordinates to source pixels with an independent
// linear factor per axis. Aspect ratio differences between canvas and source
// are not corrected.
package region
