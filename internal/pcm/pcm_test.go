package pcm

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestEncodeFrameValues(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0.0, 0},
		{"full scale positive", 1.0, 32767},
		{"full scale negative", -1.0, -32767},
		{"half scale", 0.5, 16384}, // round(0.5*32767) = round(16383.5)
		{"clamped above", 1.5, 32767},
		{"clamped below", -2.0, -32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EncodeFrame([]float32{tt.input})
			if len(out) != 2 {
				t.Fatalf("expected 2 bytes, got %d", len(out))
			}
			got := int16(uint16(out[0]) | uint16(out[1])<<8)
			if got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestEncodeFrameLength(t *testing.T) {
	samples := make([]float32, 4096)
	out := EncodeFrame(samples)
	if len(out) != 8192 {
		t.Fatalf("expected 8192 bytes for 4096 samples, got %d", len(out))
	}
}

func TestDecodeSampleCountAndDuration(t *testing.T) {
	// 2400 samples at 24kHz is 100ms of audio.
	payload := make([]byte, 4800)
	buf, err := Decode(payload, PlaybackRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf.Samples) != 2400 {
		t.Fatalf("expected 2400 samples, got %d", len(buf.Samples))
	}
	if buf.Duration() != 100*time.Millisecond {
		t.Fatalf("expected 100ms, got %v", buf.Duration())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"odd length", []byte{0x00, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload, PlaybackRate)
			var derr *DecodeError
			if !errors.As(err, &derr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	input := []float32{0, 0.25, -0.25, 0.9, -0.9, 1, -1}
	buf, err := Decode(EncodeFrame(input), CaptureRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf.Samples) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(buf.Samples))
	}
	for i := range input {
		if diff := math.Abs(float64(buf.Samples[i] - input[i])); diff > 1.0/32768.0 {
			t.Errorf("sample %d: expected %f within 1/32768, got %f", i, input[i], buf.Samples[i])
		}
	}
}

func TestZeroRateBufferDuration(t *testing.T) {
	b := Buffer{Samples: make([]float32, 100)}
	if b.Duration() != 0 {
		t.Fatalf("expected zero duration for zero rate, got %v", b.Duration())
	}
}
