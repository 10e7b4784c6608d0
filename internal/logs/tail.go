package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	scanBuffer  = 64 * 1024
	maxLineSize = 1024 * 1024

	// DefaultPoll is the Follow interval when callers pass zero.
	DefaultPoll = 250 * time.Millisecond
)

// Read returns the entries matching q and the file offset after the last
// byte read. A missing file yields no entries and offset 0.
func Read(path string, q Query) ([]Entry, int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	var ring []Entry
	next := 0
	count := 0
	if q.Limit > 0 {
		ring = make([]Entry, q.Limit)
	}
	var all []Entry

	offset, err := scan(file, func(e Entry) {
		if !q.Match(e) {
			return
		}
		if ring == nil {
			all = append(all, e)
			return
		}
		ring[next] = e
		next = (next + 1) % q.Limit
		if count < q.Limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}
	if ring == nil {
		return all, offset, nil
	}

	entries := make([]Entry, count)
	if count == q.Limit {
		for i := 0; i < count; i++ {
			entries[i] = ring[(next+i)%q.Limit]
		}
	} else {
		copy(entries, ring[:count])
	}
	return entries, offset, nil
}

// Follow polls path from offset and calls fn for every matching entry
// appended afterwards. A truncated file is read again from the start. It
// returns ctx.Err() when ctx ends.
func Follow(ctx context.Context, path string, offset int64, q Query, poll time.Duration, fn func(Entry)) error {
	if poll <= 0 {
		poll = DefaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, q, fn)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, q Query, fn func(Entry)) (int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scan(file, func(e Entry) {
		if q.Match(e) {
			fn(e)
		}
	})
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scan decodes complete lines from r and returns the number of bytes
// consumed. A trailing partial line is left for the next read.
func scan(r io.Reader, fn func(Entry)) (int64, error) {
	reader := bufio.NewReaderSize(r, scanBuffer)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineSize {
			continue
		}
		if entry, ok := ParseEntry(line); ok {
			fn(entry)
		}
	}
}

func open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}
