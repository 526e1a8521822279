package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// outboundDepth bounds queued frames; at ~256ms per frame this is well
	// over a minute of backlog before anything is dropped.
	outboundDepth = 256
	eventDepth    = 64
)

// serverMessage is the JSON envelope for every service-to-client message.
type serverMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Data    string `json:"data,omitempty"` // base64 PCM for "audio"
	Message string `json:"message,omitempty"`
}

// setupMessage opens a session: audio-out modality plus transcription flags.
type setupMessage struct {
	Type   string        `json:"type"`
	Config SessionConfig `json:"config"`
}

// WSClient connects to the translation service over a websocket.
type WSClient struct {
	URL    string
	APIKey string
	Log    zerolog.Logger
}

func (c *WSClient) Connect(ctx context.Context, cfg SessionConfig) (Session, error) {
	header := http.Header{
		"Authorization": {fmt.Sprintf("Bearer %s", c.APIKey)},
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial service: %w", err)
	}

	s := &wsSession{
		conn:   conn,
		log:    c.Log,
		out:    make(chan []byte, outboundDepth),
		events: make(chan Event, eventDepth),
		done:   make(chan struct{}),
	}

	setup, err := json.Marshal(setupMessage{Type: "setup", Config: cfg})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send setup: %w", err)
	}

	go s.writeLoop()
	go s.readLoop()
	return s, nil
}

type wsSession struct {
	conn   *websocket.Conn
	log    zerolog.Logger
	out    chan []byte
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *wsSession) Send(frame []byte) {
	select {
	case s.out <- frame:
	case <-s.done:
	default:
		s.log.Warn().Msg("Outbound frame queue full, dropping frame")
	}
}

func (s *wsSession) Events() <-chan Event {
	return s.events
}

func (s *wsSession) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	})
	return nil
}

// writeLoop drains the outbound queue one frame at a time, preserving
// capture order.
func (s *wsSession) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				s.log.Debug().Err(err).Msg("Frame write failed")
				return
			}
		}
	}
}

// readLoop turns inbound messages into Events in arrival order. The events
// channel always ends with a Closed event and is then closed.
func (s *wsSession) readLoop() {
	defer close(s.events)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// local close
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.events <- Event{Type: EventError, Text: err.Error()}
				}
			}
			s.events <- Event{Type: EventClosed}
			return
		}

		ev, err := parseServerMessage(msg)
		if err != nil {
			s.log.Warn().Err(err).Msg("Ignoring malformed service message")
			continue
		}
		s.events <- ev
		if ev.Type == EventError {
			s.Close()
		}
	}
}

// parseServerMessage maps one JSON envelope onto an Event.
func parseServerMessage(msg []byte) (Event, error) {
	var sm serverMessage
	if err := json.Unmarshal(msg, &sm); err != nil {
		return Event{}, fmt.Errorf("invalid message: %w", err)
	}

	switch sm.Type {
	case "opened":
		return Event{Type: EventOpened}, nil
	case "input_transcript":
		return Event{Type: EventInputTranscript, Text: sm.Text}, nil
	case "output_transcript":
		return Event{Type: EventOutputTranscript, Text: sm.Text}, nil
	case "turn_complete":
		return Event{Type: EventTurnComplete}, nil
	case "audio":
		payload, err := base64.StdEncoding.DecodeString(sm.Data)
		if err != nil {
			return Event{}, fmt.Errorf("invalid audio payload: %w", err)
		}
		return Event{Type: EventSpeechChunk, Audio: payload}, nil
	case "interrupted":
		return Event{Type: EventInterrupted}, nil
	case "error":
		return Event{Type: EventError, Text: sm.Message}, nil
	default:
		return Event{}, fmt.Errorf("unknown message type %q", sm.Type)
	}
}
