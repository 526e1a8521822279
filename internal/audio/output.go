package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const outputBlockSize = 512

// portAudioOutput renders scheduled mono sources through a PortAudio output
// stream. The device clock is the count of samples handed to the hardware,
// which makes it monotonic and independent of wall time.
type portAudioOutput struct {
	mu         sync.Mutex
	stream     *portaudio.Stream
	sampleRate int
	clock      int64 // samples rendered since Open
	sources    []*playSource
}

type playSource struct {
	owner   *portAudioOutput
	samples []float32
	start   int64 // clock position of the first sample
	pos     int   // samples already rendered
	stopped bool
	done    func()
}

// NewOutput creates a new PortAudio-based playback device
func NewOutput() (Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioOutput{}, nil
}

func (o *portAudioOutput) Open(deviceID string, sampleRate int) error {
	device, err := findOutputDevice(deviceID)
	if err != nil {
		return err
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: outputBlockSize,
	}, o.render)

	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	o.mu.Lock()
	o.stream = stream
	o.sampleRate = sampleRate
	o.clock = 0
	o.sources = nil
	o.mu.Unlock()
	return nil
}

func (o *portAudioOutput) SampleRate() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sampleRate
}

func (o *portAudioOutput) Clock() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sampleRate == 0 {
		return 0
	}
	return float64(o.clock) / float64(o.sampleRate)
}

func (o *portAudioOutput) PlayAt(samples []float32, start float64, done func()) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sampleRate == 0 {
		return nil, fmt.Errorf("output device not open")
	}
	src := &playSource{
		owner:   o,
		samples: samples,
		start:   int64(start * float64(o.sampleRate)),
		done:    done,
	}
	o.sources = append(o.sources, src)
	return src, nil
}

// render is the PortAudio callback. Completed sources fire their done
// callbacks after the lock is released.
func (o *portAudioOutput) render(out []float32) {
	o.mu.Lock()
	for i := range out {
		out[i] = 0
	}

	var finished []func()
	kept := o.sources[:0]
	for _, src := range o.sources {
		if src.stopped {
			continue
		}
		src.mix(out, o.clock)
		if src.pos >= len(src.samples) {
			if src.done != nil {
				finished = append(finished, src.done)
			}
			continue
		}
		kept = append(kept, src)
	}
	o.sources = kept
	o.clock += int64(len(out))
	o.mu.Unlock()

	for _, fn := range finished {
		fn()
	}
}

// mix copies the source's due samples into the block starting at clock.
func (s *playSource) mix(out []float32, clock int64) {
	offset := s.start + int64(s.pos) - clock
	if offset >= int64(len(out)) {
		return // not due yet
	}
	i := 0
	if offset > 0 {
		i = int(offset)
	}
	for ; i < len(out) && s.pos < len(s.samples); i++ {
		v := out[i] + s.samples[s.pos]
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = v
		s.pos++
	}
}

func (s *playSource) Stop() {
	s.owner.mu.Lock()
	s.stopped = true
	s.owner.mu.Unlock()
}

func (o *portAudioOutput) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultOutputDevice()

	for _, d := range devices {
		if d.MaxOutputChannels > 0 {
			result = append(result, Device{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

// Stop releases the device stream at the end of a session. The Output can
// be opened again for the next session.
func (o *portAudioOutput) Stop() error {
	o.mu.Lock()
	stream := o.stream
	o.stream = nil
	o.sources = nil
	o.sampleRate = 0
	o.mu.Unlock()

	if stream != nil {
		stream.Stop()
		return stream.Close()
	}
	return nil
}

func (o *portAudioOutput) Close() error {
	o.Stop()
	portaudio.Terminate()
	return nil
}

func findOutputDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default output device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", deviceID)
}
