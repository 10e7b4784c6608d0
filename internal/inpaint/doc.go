// Package inpaint fills masked frame regions from their surroundings.
//
// The default engine is a pure-Go implementation of Telea's fast marching
// method. Builds with the with_cv tag additionally register an engine backed
// by OpenCV through gocv.
package inpaint
