package testsupport

import (
	"fmt"
	"strings"
)

// ProbeJSON renders an ffprobe payload for a single video stream and an
// optional AAC audio stream.
func ProbeJSON(width, height int, rate string, frames int, duration float64, withAudio bool) string {
	streams := []string{fmt.Sprintf(
		`{"index":0,"codec_name":"h264","codec_type":"video","width":%d,"height":%d,"pix_fmt":"yuv420p","r_frame_rate":%q,"avg_frame_rate":%q,"nb_frames":"%d","duration":"%f"}`,
		width, height, rate, rate, frames, duration,
	)}
	if withAudio {
		streams = append(streams, `{"index":1,"codec_name":"aac","codec_type":"audio","sample_rate":"48000","channels":2}`)
	}
	return fmt.Sprintf(`{"streams":[%s],"format":{"filename":"input.mp4","nb_streams":%d,"duration":"%f","size":"1024","format_name":"mov,mp4,m4a,3gp,3g2,mj2"}}`,
		strings.Join(streams, ","), len(streams), duration)
}

// EchoScript returns a shell body that prints payload verbatim.
func EchoScript(payload string) string {
	return "cat <<'EOF'\n" + payload + "\nEOF"
}
