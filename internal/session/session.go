package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/petems/translive/internal/audio"
	"github.com/petems/translive/internal/config"
	"github.com/petems/translive/internal/pcm"
	"github.com/petems/translive/internal/playback"
	"github.com/petems/translive/internal/service"
	"github.com/petems/translive/internal/transcript"
	"github.com/rs/zerolog"
)

// Phase is the lifecycle state of the translation session.
type Phase int

const (
	Idle Phase = iota
	Connecting
	Active
	Errored
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

const connectTimeout = 15 * time.Second

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetConnecting()
	SetActive()
	SetError(msg string)
	SetLevel(level float64)
}

type Config struct {
	Capture audio.Capture
	Output  audio.Output
	Client  service.Client
	Config  *config.Config
	Log     *transcript.Log
	Logger  zerolog.Logger
	Status  StatusUpdater // Optional - can be nil
}

// Manager coordinates the capture pipeline, playback scheduler and turn
// aggregator across one Connecting..Idle cycle. All inbound service events
// are handled by a single goroutine in arrival order, so decode-then-enqueue
// never interleaves between chunks.
type Manager struct {
	capture audio.Capture
	output  audio.Output
	client  service.Client
	cfg     *config.Config
	logbook *transcript.Log
	log     zerolog.Logger
	status  StatusUpdater

	mu          sync.Mutex
	phase       Phase
	errMsg      string
	sess        service.Session
	scheduler   *playback.Scheduler
	aggregator  *transcript.Aggregator
	captureStop context.CancelFunc
}

func New(cfg Config) *Manager {
	return &Manager{
		capture: cfg.Capture,
		output:  cfg.Output,
		client:  cfg.Client,
		cfg:     cfg.Config,
		logbook: cfg.Log,
		log:     cfg.Logger,
		status:  cfg.Status,
	}
}

// Start moves Idle (or Errored) to Connecting: acquires the output device,
// dials the service and hands the event stream to the control goroutine.
// Starting while a session is connecting or active is ignored.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.phase == Connecting || m.phase == Active {
		m.mu.Unlock()
		m.log.Debug().Msg("Start ignored, session already running")
		return nil
	}
	m.phase = Connecting
	m.errMsg = ""
	m.mu.Unlock()

	m.log.Info().Msg("Starting translation session")
	if m.status != nil {
		m.status.SetConnecting()
	}

	if err := m.output.Open(m.cfg.Audio.OutputDeviceID, pcm.PlaybackRate); err != nil {
		return m.failStart(fmt.Errorf("output device unavailable: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	sess, err := m.client.Connect(ctx, service.SessionConfig{
		Voice:               m.cfg.Service.Voice,
		SourceLanguage:      m.cfg.Service.SourceLanguage,
		TargetLanguage:      m.cfg.Service.TargetLanguage,
		Instruction:         m.cfg.Service.Instruction(),
		InputTranscription:  m.cfg.Service.InputTranscription,
		OutputTranscription: m.cfg.Service.OutputTranscription,
	})
	if err != nil {
		m.output.Stop()
		return m.failStart(fmt.Errorf("failed to connect: %w", err))
	}

	m.mu.Lock()
	if m.phase != Connecting {
		// Stopped while dialing; release what we acquired.
		m.mu.Unlock()
		sess.Close()
		m.output.Stop()
		return nil
	}
	m.sess = sess
	m.scheduler = playback.New(m.output, m.log)
	m.aggregator = &transcript.Aggregator{}
	m.mu.Unlock()

	go m.run(sess)
	return nil
}

// failStart records a start-up failure: Connecting to Errored with nothing
// retained.
func (m *Manager) failStart(err error) error {
	m.log.Error().Err(err).Msg("Session start failed")
	m.mu.Lock()
	m.phase = Errored
	m.errMsg = err.Error()
	m.mu.Unlock()
	if m.status != nil {
		m.status.SetError(err.Error())
	}
	return err
}

// Stop ends the session from the user side. Playback is flushed and both
// devices are released before Stop returns.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Connecting && m.phase != Active {
		return
	}
	m.log.Info().Msg("Stopping translation session")
	m.teardownLocked(Idle, "")
}

// run is the control goroutine: one event at a time, in arrival order.
func (m *Manager) run(sess service.Session) {
	for ev := range sess.Events() {
		m.handleEvent(sess, ev)
	}
}

func (m *Manager) handleEvent(sess service.Session, ev service.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Events from a session already torn down (e.g. the Closed event that
	// follows a user stop) are ignored.
	if m.sess != sess {
		return
	}

	switch ev.Type {
	case service.EventOpened:
		m.activateLocked()

	case service.EventInputTranscript:
		m.aggregator.AddFragment(transcript.RoleUser, ev.Text)

	case service.EventOutputTranscript:
		m.aggregator.AddFragment(transcript.RoleModel, ev.Text)

	case service.EventTurnComplete:
		entries := m.aggregator.EndTurn()
		if len(entries) > 0 {
			m.logbook.Append(entries...)
			m.log.Debug().Int("entries", len(entries)).Msg("Turn finalized")
		}

	case service.EventSpeechChunk:
		buf, err := pcm.Decode(ev.Audio, pcm.PlaybackRate)
		if err != nil {
			m.log.Warn().Err(err).Int("bytes", len(ev.Audio)).Msg("Dropping malformed speech chunk")
			return
		}
		m.scheduler.Enqueue(buf)

	case service.EventInterrupted:
		m.log.Debug().Msg("Interrupted, flushing playback")
		m.scheduler.Flush()

	case service.EventError:
		m.log.Error().Str("message", ev.Text).Msg("Service error")
		m.teardownLocked(Errored, ev.Text)

	case service.EventClosed:
		m.log.Info().Msg("Service closed the session")
		m.teardownLocked(Idle, "")
	}
}

// activateLocked moves Connecting to Active and starts the capture pipeline.
func (m *Manager) activateLocked() {
	if m.phase != Connecting {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan []float32, 8)

	if err := m.capture.Start(ctx, m.cfg.Audio.InputDeviceID, pcm.CaptureRate, m.cfg.Audio.FrameSize, frames); err != nil {
		cancel()
		m.log.Error().Err(err).Msg("Microphone unavailable")
		m.teardownLocked(Errored, fmt.Sprintf("microphone unavailable: %v", err))
		return
	}
	m.captureStop = cancel

	sess := m.sess
	go m.pump(ctx, sess, frames)

	m.phase = Active
	m.log.Info().Msg("Session active")
	if m.status != nil {
		m.status.SetActive()
	}
}

// pump encodes capture windows and hands them to the service in capture
// order. A single goroutine keeps frame N ahead of frame N+1.
func (m *Manager) pump(ctx context.Context, sess service.Session, frames <-chan []float32) {
	for {
		select {
		case <-ctx.Done():
			return
		case samples, ok := <-frames:
			if !ok {
				return
			}
			if m.status != nil {
				m.status.SetLevel(rms(samples))
			}
			sess.Send(pcm.EncodeFrame(samples))
		}
	}
}

// teardownLocked is the single release path for every way a session ends:
// user stop, service close and errors all come through here.
func (m *Manager) teardownLocked(next Phase, errMsg string) {
	if m.captureStop != nil {
		m.captureStop()
		m.captureStop = nil
	}
	m.capture.Stop()

	if m.scheduler != nil {
		m.scheduler.Flush()
		m.scheduler = nil
	}
	m.output.Stop()

	if m.sess != nil {
		m.sess.Close()
		m.sess = nil
	}
	m.aggregator = nil

	m.phase = next
	m.errMsg = errMsg
	if m.status == nil {
		return
	}
	if next == Errored {
		m.status.SetError(errMsg)
	} else {
		m.status.SetIdle()
	}
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// ErrorMessage returns the message recorded by the last error transition.
func (m *Manager) ErrorMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// IsRunning reports whether a session is connecting or active.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == Connecting || m.phase == Active
}

// Shutdown stops any running session on app exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.Stop()
	return nil
}

// ListInputDevices returns the available microphone devices.
func (m *Manager) ListInputDevices() ([]audio.Device, error) {
	return m.capture.ListDevices()
}

// ListOutputDevices returns the available playback devices.
func (m *Manager) ListOutputDevices() ([]audio.Device, error) {
	return m.output.ListDevices()
}

// SetInputDevice changes the capture device for the next session.
func (m *Manager) SetInputDevice(id string) error {
	if m.IsRunning() {
		return errors.New("cannot change device during a session")
	}
	m.cfg.Audio.InputDeviceID = id
	return m.cfg.Save()
}

// SetOutputDevice changes the playback device for the next session.
func (m *Manager) SetOutputDevice(id string) error {
	if m.IsRunning() {
		return errors.New("cannot change device during a session")
	}
	m.cfg.Audio.OutputDeviceID = id
	return m.cfg.Save()
}

// rms is the capture level for the UI meter.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
