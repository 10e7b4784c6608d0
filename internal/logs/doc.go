// Package logs reads the JSON log file that every eraser process tees its
// records into.
//
// Read returns the last matching records with bounded memory, and Follow
// polls for records appended after an offset so `eraser logs --follow` can
// stream a running job. Records are filtered by job ID prefix and minimum
// level; lines that are not JSON objects are skipped.
package logs
