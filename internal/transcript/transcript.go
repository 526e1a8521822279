package transcript

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Role identifies the speaker of a transcript entry.
type Role string

const (
	RoleUser  Role = "user"  // source speech heard by the microphone
	RoleModel Role = "model" // translated speech from the service
)

// Entry is one finalized line of the transcript log.
type Entry struct {
	Role      Role
	Text      string
	Timestamp int64
}

// Aggregator accumulates streamed partial transcript fragments per role and
// finalizes them into ordered entries at each turn boundary.
type Aggregator struct {
	user  strings.Builder
	model strings.Builder
	seq   int64
}

// AddFragment appends a partial transcript fragment to the role's buffer.
// Fragments arrive in order and are concatenated, never replaced.
func (a *Aggregator) AddFragment(role Role, text string) {
	switch role {
	case RoleUser:
		a.user.WriteString(text)
	case RoleModel:
		a.model.WriteString(text)
	}
}

// EndTurn finalizes the current turn: one entry per non-empty role, user
// before model, with strictly increasing timestamps. Both buffers are cleared
// unconditionally so no partial text leaks into the next turn.
func (a *Aggregator) EndTurn() []Entry {
	var entries []Entry
	if text := strings.TrimSpace(a.user.String()); text != "" {
		a.seq++
		entries = append(entries, Entry{Role: RoleUser, Text: text, Timestamp: a.seq})
	}
	if text := strings.TrimSpace(a.model.String()); text != "" {
		a.seq++
		entries = append(entries, Entry{Role: RoleModel, Text: text, Timestamp: a.seq})
	}
	a.user.Reset()
	a.model.Reset()
	return entries
}

// Log is the append-only transcript of a session. Entries are never mutated;
// the only removal is a full Clear from the UI.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// Append adds finalized entries to the log.
func (l *Log) Append(entries ...Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
}

// Entries returns a copy of the log in append order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// WriteTo renders the log as plain text, one line per entry.
func (l *Log) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range l.Entries() {
		n, err := fmt.Fprintf(w, "[%s] %s\n", e.Role, e.Text)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String renders the log as plain text for clipboard export.
func (l *Log) String() string {
	var sb strings.Builder
	l.WriteTo(&sb)
	return sb.String()
}
