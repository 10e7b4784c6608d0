// Package mask resolves region specs into binary per-pixel masks at source
// resolution and grows them by square dilation.
//
// A Timeline answers "which mask is active at time t" for a resolved spec.
// Boxes and freehand drawings produce a single mask for the whole video;
// segment lists produce one mask per segment, and the active mask at t is
// the union of every segment whose closed interval contains t. Unions and
// their dilated forms are cached per distinct active set.
package mask
