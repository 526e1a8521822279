package service

import "context"

// Client dials the translation service.
type Client interface {
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}

// Session is one live connection to the service. Events are delivered in
// arrival order on a single channel; the channel is closed after the final
// Closed event.
type Session interface {
	// Send queues one encoded audio frame for delivery. Fire-and-forget:
	// it never blocks the caller, and queued frames keep capture order.
	Send(frame []byte)
	Events() <-chan Event
	Close() error
}

// SessionConfig enumerates what the service needs to open a session.
type SessionConfig struct {
	Voice               string `json:"voice"`
	SourceLanguage      string `json:"source_language"`
	TargetLanguage      string `json:"target_language"`
	Instruction         string `json:"instruction"`
	InputTranscription  bool   `json:"input_transcription"`
	OutputTranscription bool   `json:"output_transcription"`
}

// EventType enumerates inbound service events.
type EventType int

const (
	EventOpened EventType = iota
	EventInputTranscript
	EventOutputTranscript
	EventTurnComplete
	EventSpeechChunk
	EventInterrupted
	EventError
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventInputTranscript:
		return "input_transcript"
	case EventOutputTranscript:
		return "output_transcript"
	case EventTurnComplete:
		return "turn_complete"
	case EventSpeechChunk:
		return "speech_chunk"
	case EventInterrupted:
		return "interrupted"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one inbound service event. Text carries transcript fragments and
// error messages; Audio carries an encoded speech chunk.
type Event struct {
	Type  EventType
	Text  string
	Audio []byte
}
