package audio

import "context"

// Capture defines the interface for microphone capture. The device delivers
// fixed-size windows of float32 samples on the out channel until ctx is done.
type Capture interface {
	Start(ctx context.Context, deviceID string, sampleRate, frameSize int, out chan<- []float32) error
	Stop() error
	ListDevices() ([]Device, error)
	Close() error
}

// Output defines the interface for the playback device: a monotonic clock
// plus buffer playback scheduled at an explicit clock position.
type Output interface {
	// Open acquires the device for one session; Stop releases it again.
	Open(deviceID string, sampleRate int) error
	Stop() error
	SampleRate() int
	// Clock returns the device position in seconds since Open.
	Clock() float64
	// PlayAt schedules samples to begin rendering at the given clock
	// position. done fires once the source has fully rendered; it does not
	// fire for sources stopped early.
	PlayAt(samples []float32, start float64, done func()) (Source, error)
	ListDevices() ([]Device, error)
	Close() error
}

// Source is one scheduled playback source. Stop silences it immediately.
type Source interface {
	Stop()
}

// Device represents an audio input or output device
type Device struct {
	ID      string
	Name    string
	Default bool
}
