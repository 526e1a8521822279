package playback

import (
	"sync"

	"github.com/petems/translive/internal/audio"
	"github.com/petems/translive/internal/pcm"
	"github.com/rs/zerolog"
)

// Scheduler queues decoded speech buffers for gapless, ordered playback.
// Each buffer starts at max(nextStart, device clock) so chunks arriving at
// irregular intervals still assemble into continuous audio.
type Scheduler struct {
	out audio.Output
	log zerolog.Logger

	mu        sync.Mutex
	nextStart float64
	nextID    int
	handles   map[int]audio.Source
}

// New creates a Scheduler that plays through the given output device.
func New(out audio.Output, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		out:     out,
		log:     log,
		handles: make(map[int]audio.Source),
	}
}

// Enqueue schedules one decoded buffer directly after the last one. A buffer
// with no samples or a rate mismatching the device is dropped.
func (s *Scheduler) Enqueue(buf pcm.Buffer) {
	if len(buf.Samples) == 0 {
		s.log.Warn().Msg("Dropping zero-duration buffer")
		return
	}
	if buf.SampleRate != s.out.SampleRate() {
		s.log.Warn().
			Int("buffer_rate", buf.SampleRate).
			Int("device_rate", s.out.SampleRate()).
			Msg("Dropping buffer with mismatched sample rate")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.nextStart
	if clock := s.out.Clock(); clock > start {
		start = clock
	}

	id := s.nextID
	s.nextID++

	src, err := s.out.PlayAt(buf.Samples, start, func() {
		s.mu.Lock()
		delete(s.handles, id)
		s.mu.Unlock()
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to schedule buffer")
		return
	}

	s.handles[id] = src
	s.nextStart = start + buf.Duration().Seconds()
}

// Flush stops all pending and in-flight playback and resets the timeline.
// Safe to call at any time, including when nothing is scheduled.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, src := range s.handles {
		src.Stop()
		delete(s.handles, id)
	}
	s.nextStart = 0
}

// Pending returns the number of buffers scheduled but not yet fully rendered.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// NextStart returns the clock position the next buffer would start at.
func (s *Scheduler) NextStart() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}
