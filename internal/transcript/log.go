package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one utterance in a conversation. Turns are values; once returned
// they are never edited.
type Turn struct {
	Seq     int       `json:"seq"`
	ID      string    `json:"id"`
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Summary condenses a log for status displays.
type Summary struct {
	Exchanges     int    `json:"exchanges"`
	LastUser      string `json:"last_user,omitempty"`
	LastAssistant string `json:"last_assistant,omitempty"`
}

// Log is an append-only, in-process conversation record. Sequence numbers
// keep increasing across Clear so a reset never reuses an index.
type Log struct {
	mu      sync.RWMutex
	turns   []Turn
	nextSeq int
	now     func() time.Time
}

func NewLog() *Log {
	return &Log{now: func() time.Time { return time.Now().UTC() }}
}

// Append records a turn and returns it with its sequence index assigned.
func (l *Log) Append(speaker Speaker, text string) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := Turn{
		Seq:     l.nextSeq,
		ID:      uuid.NewString(),
		Speaker: speaker,
		Text:    text,
		At:      l.now(),
	}
	l.nextSeq++
	l.turns = append(l.turns, t)
	return t
}

// Turns returns a snapshot. Later appends never show up in a returned slice.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.turns) == 0 {
		return nil
	}
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Recent returns up to limit of the newest turns in chronological order.
func (l *Log) Recent(limit int) []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.turns) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(l.turns) {
		limit = len(l.turns)
	}
	out := make([]Turn, 0, limit)
	for i := len(l.turns) - limit; i < len(l.turns); i++ {
		out = append(out, l.turns[i])
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Clear drops all turns. Only an explicit session reset calls this.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}

func (l *Log) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var s Summary
	for _, t := range l.turns {
		switch t.Speaker {
		case SpeakerUser:
			s.Exchanges++
			s.LastUser = t.Text
		case SpeakerAssistant:
			s.LastAssistant = t.Text
		}
	}
	return s
}
