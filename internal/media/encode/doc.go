// Package encode reassembles processed frames into an output container.
//
// Frames are piped as rawvideo into ffmpeg, which encodes them with the
// selected quality tier, copies the source's audio, and pins the output to
// the exact source frame rate. Output is written to a hidden ".partial-" file
// beside the destination and renamed into place only after ffmpeg exits
// cleanly.
package encode
