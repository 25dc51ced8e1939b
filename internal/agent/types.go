package agent

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"supportline/internal/call"
)

// Transcriber turns a WAV clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Generator produces the agent's next reply from the conversation so far.
// The last message in history is the caller turn being answered.
type Generator interface {
	Generate(ctx context.Context, history []call.Message) (string, error)
}

// Synthesizer turns reply text into a PCM16 clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Responder answers keyword-matched questions with fixed strings and supplies
// the fallback guidance for everything else.
type Responder interface {
	Match(text string) (string, bool)
	Fallback() string
}

// Store persists finished sessions.
type Store interface {
	Append(ctx context.Context, sess call.Session) error
}

// Events receives the live UI feed for a call. Implementations must not block.
type Events interface {
	PublishMessage(callID string, m call.Message)
	PublishLevel(callID string, level float64)
	PublishAudio(callID string, pcm []byte)
	PublishStatus(callID string, status call.Status)
	PublishError(callID, text string)
}

// Uploader archives the caller audio after a call ends.
type Uploader interface {
	Upload(key, contentType string, data []byte) error
}

// NoopEvents drops every event. Used when no UI feed is attached.
type NoopEvents struct{}

func (NoopEvents) PublishMessage(string, call.Message) {}
func (NoopEvents) PublishLevel(string, float64)        {}
func (NoopEvents) PublishAudio(string, []byte)         {}
func (NoopEvents) PublishStatus(string, call.Status)   {}
func (NoopEvents) PublishError(string, string)         {}

// Options wires an Engine. Transcriber and Store are required; Generator,
// Synthesizer and Uploader may be nil, in which case the concern is skipped.
type Options struct {
	Transcriber Transcriber
	Generator   Generator
	Synthesizer Synthesizer
	Responder   Responder
	Store       Store
	Events      Events
	Uploader    Uploader

	Interval           time.Duration
	MinClipBytes       int
	MinTranscriptChars int

	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}
