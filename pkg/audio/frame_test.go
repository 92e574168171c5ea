package audio

import "testing"

func TestNewFrame(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{"exact stride", FrameSamples, false},
		{"too short", FrameSamples - 1, true},
		{"too long", FrameSamples + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]float32, tt.n)
			f, err := NewFrame(samples, 1000)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewFrame() should have returned an error but didn't")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFrame() unexpected error: %v", err)
			}
			if f.CaptureTS != 1000 {
				t.Errorf("CaptureTS = %d, want 1000", f.CaptureTS)
			}
		})
	}
}

func TestFrameClone(t *testing.T) {
	samples := make([]float32, FrameSamples)
	samples[0] = 0.5
	original, err := NewFrame(samples, 42)
	if err != nil {
		t.Fatalf("NewFrame() error = %v", err)
	}
	clone := original.Clone()

	clone.Samples[0] = -0.5
	if original.Samples[0] != 0.5 {
		t.Error("modifying clone affected original")
	}
	if clone.CaptureTS != original.CaptureTS {
		t.Errorf("clone CaptureTS = %d, want %d", clone.CaptureTS, original.CaptureTS)
	}
}

func TestFrameRMS(t *testing.T) {
	samples := make([]float32, FrameSamples)
	f, _ := NewFrame(samples, 0)
	if got := f.RMS(); got != 0 {
		t.Errorf("RMS() of silence = %v, want 0", got)
	}

	for i := range samples {
		samples[i] = 1.0
	}
	f, _ = NewFrame(samples, 0)
	if got := f.RMS(); got < 0.99 || got > 1.01 {
		t.Errorf("RMS() of full-scale constant = %v, want ~1.0", got)
	}
}
