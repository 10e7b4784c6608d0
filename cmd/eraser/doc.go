// Command eraser removes watermarks and other overlays from video files by
// reconstructing the selected regions of every frame.
//
// Typical use:
//
//	eraser probe input.mp4
//	eraser frame input.mp4 --at 2.5 -o reference.png
//	eraser preview input.mp4 --region region.json -o preview.png
//	eraser run input.mp4 --region region.json --quality high
//
// Region files hold one JSON object: a box, a list of timed segments, or a
// freehand mask drawn over a reference frame.
package main
