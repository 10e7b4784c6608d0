package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"zero uses default", 0, 10},
		{"negative uses default", -3, 10},
		{"custom", 25, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Fatalf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
		})
	}
}

func TestProgressSamplerEmitsOncePerBucket(t *testing.T) {
	s := NewProgressSampler(10)
	emitted := 0
	for done := 0; done <= 300; done++ {
		if s.ShouldLog(done, 300) {
			emitted++
		}
	}
	// buckets 0..10 inclusive
	if emitted != 11 {
		t.Fatalf("expected 11 emissions, got %d", emitted)
	}
}

func TestProgressSamplerUnknownTotalAlwaysLogs(t *testing.T) {
	s := NewProgressSampler(10)
	for i := 0; i < 3; i++ {
		if !s.ShouldLog(i, 0) {
			t.Fatalf("expected unknown total to log")
		}
	}
}

func TestProgressSamplerResetAndNil(t *testing.T) {
	s := NewProgressSampler(50)
	if !s.ShouldLog(10, 100) {
		t.Fatal("first sample should log")
	}
	if s.ShouldLog(20, 100) {
		t.Fatal("same bucket should not log")
	}
	s.Reset()
	if !s.ShouldLog(20, 100) {
		t.Fatal("reset should re-enable logging")
	}

	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(1, 2) {
		t.Fatal("nil sampler should always log")
	}
	nilSampler.Reset()
}
