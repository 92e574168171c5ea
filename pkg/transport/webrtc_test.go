package transport

import (
	"testing"

	"github.com/goldvox/agentcore/pkg/audio"
	transportfake "github.com/goldvox/agentcore/pkg/transport/fake"
)

func TestSplitIntoFramesProducesFixedStrideFrames(t *testing.T) {
	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = float32(i)
	}

	frames := splitIntoFrames(samples, 12345)
	wantFrames := len(samples) / audio.FrameSamples
	if len(frames) != wantFrames {
		t.Fatalf("len(frames) = %d, want %d", len(frames), wantFrames)
	}
	for _, f := range frames {
		if f.CaptureTS != 12345 {
			t.Errorf("CaptureTS = %d, want 12345", f.CaptureTS)
		}
	}
}

func TestFakeOpusCodecRoundTrips(t *testing.T) {
	codec := transportfake.New()
	samples := []float32{0.1, -0.2, 0.3, 0.0}

	payload, err := codec.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := codec.Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("len(decoded) = %d, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, decoded[i], samples[i])
		}
	}
}
