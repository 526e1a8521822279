package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	// CaptureRate is the sample rate of outbound microphone audio.
	CaptureRate = 16000
	// PlaybackRate is the sample rate of synthesized speech from the service.
	PlaybackRate = 24000
)

// DecodeError reports a malformed inbound speech payload. Malformed chunks
// are dropped by the caller; they never terminate a session.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pcm decode: %s", e.Reason)
}

// Buffer holds one decoded speech chunk ready for playback.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// EncodeFrame converts one capture window of float32 samples into 16-bit
// signed little-endian PCM. Input samples are clamped to [-1, 1].
func EncodeFrame(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// Decode converts an encoded 16-bit little-endian PCM payload into a Buffer
// at the given sample rate.
func Decode(payload []byte, sampleRate int) (Buffer, error) {
	if len(payload) == 0 {
		return Buffer{}, &DecodeError{Reason: "empty payload"}
	}
	if len(payload)%2 != 0 {
		return Buffer{}, &DecodeError{Reason: fmt.Sprintf("odd payload length %d", len(payload))}
	}
	samples := make([]float32, len(payload)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(payload[i*2:]))
		samples[i] = float32(v) / 32768.0
	}
	return Buffer{Samples: samples, SampleRate: sampleRate}, nil
}
