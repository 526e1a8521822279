package audio

import "testing"

func TestDownmixInterleaved(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		frames   int
		input    []float32
		expected []float32
	}{
		{
			name:     "mono passthrough",
			channels: 1,
			frames:   4,
			input:    []float32{0.1, 0.2, 0.3, 0.4},
			expected: []float32{0.1, 0.2, 0.3, 0.4},
		},
		{
			name:     "stereo average",
			channels: 2,
			frames:   4,
			input:    []float32{0.0, 1.0, 0.5, 0.5, 1.0, 0.0, -0.5, 0.5},
			expected: []float32{0.5, 0.5, 0.5, 0.0},
		},
		{
			name:     "three channel average",
			channels: 3,
			frames:   2,
			input:    []float32{1, 3, 5, 2, 4, 6},
			expected: []float32{3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := downmixInterleaved(tt.input, tt.channels, tt.frames)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d frames, got %d", len(tt.expected), len(got))
			}
			for i := range tt.expected {
				if got[i] != tt.expected[i] {
					t.Errorf("frame %d: expected %f, got %f", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestDownmixInterleavedCopiesMono(t *testing.T) {
	input := []float32{0.1, 0.2}
	got := downmixInterleaved(input, 1, len(input))
	if &got[0] == &input[0] {
		t.Fatal("expected mono result to be copied into a new slice")
	}
}
