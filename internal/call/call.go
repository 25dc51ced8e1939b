package call

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a call session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusEnded      Status = "ended"
)

// Speaker tags a transcript turn.
type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
)

// Message is one transcript turn.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Speaker   Speaker   `json:"speaker"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one simulated customer-service call with an ordered transcript.
// EndedAt stays nil until the call is finalized.
type Session struct {
	ID        string     `json:"id"`
	Messages  []Message  `json:"messages"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Status    Status     `json:"status"`
}

// NewSession returns a session in the connecting state.
func NewSession() Session {
	return Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    StatusConnecting,
	}
}

// NewMessage builds a transcript turn stamped with the current time.
func NewMessage(speaker Speaker, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Speaker:   speaker,
		Timestamp: time.Now().UTC(),
	}
}
