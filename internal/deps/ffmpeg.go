package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CheckEncoder reports whether the ffmpeg binary was built with the named
// video encoder, by scanning `ffmpeg -encoders`.
func CheckEncoder(ctx context.Context, ffmpegBinary, codec string) Status {
	codec = strings.TrimSpace(codec)
	result := Status{
		Name:        "Encoder " + codec,
		Command:     strings.TrimSpace(ffmpegBinary),
		Description: "Video encoder used for output files",
	}
	if result.Command == "" {
		result.Command = "ffmpeg"
	}
	if codec == "" {
		result.Detail = "codec not configured"
		return result
	}

	out, err := exec.CommandContext(ctx, result.Command, "-hide_banner", "-encoders").Output()
	if err != nil {
		result.Detail = fmt.Sprintf("list encoders: %v", err)
		return result
	}
	if hasEncoder(out, codec) {
		result.Available = true
		return result
	}
	result.Detail = fmt.Sprintf("ffmpeg was built without %s", codec)
	return result
}

// hasEncoder scans lines like " V....D libx264  libx264 H.264 ..." for codec.
func hasEncoder(listing []byte, codec string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == codec {
			return true
		}
	}
	return false
}
