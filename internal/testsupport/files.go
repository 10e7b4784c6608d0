package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a placeholder media file of size bytes: an MP4 "ftyp"
// box followed by zero padding. Tests that stub ffprobe only need the path to
// exist; the header keeps tools that sniff content from rejecting it. Sizes
// smaller than the header are raised to fit it.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	var header bytes.Buffer
	_ = binary.Write(&header, binary.BigEndian, uint32(20))
	header.WriteString("ftypisom")
	_ = binary.Write(&header, binary.BigEndian, uint32(0x200))
	header.WriteString("isom")

	if size < int64(header.Len()) {
		size = int64(header.Len())
	}
	data := make([]byte, size)
	copy(data, header.Bytes())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// RawVideoBytes returns the size of count rgb24 frames, the amount a stub
// decoder must emit.
func RawVideoBytes(width, height, count int) int {
	return width * height * 3 * count
}
