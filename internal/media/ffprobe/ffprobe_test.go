package ffprobe

import (
	"math"
	"testing"
)

const samplePayload = `{
  "streams": [
    {"index":0,"codec_name":"h264","codec_type":"video","width":1920,"height":1080,"pix_fmt":"yuv420p",
     "r_frame_rate":"30000/1001","avg_frame_rate":"30000/1001","nb_frames":"300","duration":"10.010000"},
    {"index":1,"codec_name":"aac","codec_type":"audio","sample_rate":"48000","channels":2}
  ],
  "format": {"filename":"in.mp4","nb_streams":2,"duration":"10.010000","size":"1048576","bit_rate":"838000","format_name":"mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseResult(t *testing.T) {
	result, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected audio stream count %d", result.AudioStreamCount())
	}
	video, ok := result.VideoStream()
	if !ok {
		t.Fatal("expected video stream")
	}
	if video.Width != 1920 || video.Height != 1080 {
		t.Fatalf("unexpected dimensions %dx%d", video.Width, video.Height)
	}
	rate, ok := video.FrameRate()
	if !ok || rate != (Rational{Num: 30000, Den: 1001}) {
		t.Fatalf("unexpected frame rate %v", rate)
	}
	if video.FrameCount() != 300 {
		t.Fatalf("expected 300 frames, got %d", video.FrameCount())
	}
	if video.Rotation() != 0 {
		t.Fatalf("expected no rotation, got %d", video.Rotation())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video"}, {CodecType: "audio"}, {CodecType: "audio"}},
		Format:  Format{Duration: "123.45", Size: "1000"},
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("unexpected audio count: %d", result.AudioStreamCount())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestRotation(t *testing.T) {
	payload := `{"streams":[{"codec_type":"video","width":1080,"height":1920,
	  "side_data_list":[{"side_data_type":"Display Matrix","rotation":-90}]}],"format":{}}`
	result, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	video, _ := result.VideoStream()
	if video.Rotation() != 270 {
		t.Fatalf("expected 270, got %d", video.Rotation())
	}
	tagged := Stream{Tags: map[string]string{"rotate": "90"}}
	if tagged.Rotation() != 90 {
		t.Fatalf("expected 90 from tag, got %d", tagged.Rotation())
	}
}

func TestFrameRateFallsBackToAverage(t *testing.T) {
	stream := Stream{RFrameRate: "0/0", AvgFrameRate: "25/1"}
	rate, ok := stream.FrameRate()
	if !ok || rate.Float64() != 25 {
		t.Fatalf("expected 25fps fallback, got %v ok=%v", rate, ok)
	}
	if _, ok := (Stream{}).FrameRate(); ok {
		t.Fatal("expected no frame rate for empty stream")
	}
}

func TestParseRational(t *testing.T) {
	tests := []struct {
		in      string
		want    Rational
		wantErr bool
	}{
		{"30000/1001", Rational{30000, 1001}, false},
		{"25", Rational{25, 1}, false},
		{" 24 / 1 ", Rational{24, 1}, false},
		{"", Rational{}, true},
		{"abc/1", Rational{}, true},
	}
	for _, tt := range tests {
		got, err := ParseRational(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseRational(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("ParseRational(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if s := (Rational{30000, 1001}).String(); s != "30000/1001" {
		t.Fatalf("String() = %q", s)
	}
	if (Rational{1, 0}).Float64() != 0 {
		t.Fatal("expected zero for invalid rational")
	}
}
