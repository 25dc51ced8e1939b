package agent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"supportline/internal/audio"
	"supportline/internal/call"
	"supportline/internal/canned"
)

// Engine orchestrates one call: it buffers caller audio, and on a fixed
// interval transcribes the buffered clip, picks a reply (canned match first,
// then the generation API), and synthesizes speech for it.
type Engine struct {
	id string

	transcriber Transcriber
	generator   Generator
	synthesizer Synthesizer
	responder   Responder
	store       Store
	events      Events
	uploader    Uploader

	interval           time.Duration
	minClipBytes       int
	minTranscriptChars int

	log    *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	buffer *audio.ClipBuffer

	// busy guards the cycle: a tick that fires while a previous cycle is
	// still waiting on a vendor call drops its turn instead of queueing.
	busy atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	sess      call.Session
	callerPCM bytes.Buffer
	ended     bool
}

func NewEngine(opts Options) *Engine {
	if opts.Responder == nil {
		opts.Responder = canned.NewResponder()
	}
	if opts.Events == nil {
		opts.Events = NoopEvents{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("supportline/agent")
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter("supportline/agent")
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.MinClipBytes <= 0 {
		opts.MinClipBytes = 3200
	}
	if opts.MinTranscriptChars <= 0 {
		opts.MinTranscriptChars = 4
	}

	sess := call.NewSession()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		id:                 sess.ID,
		transcriber:        opts.Transcriber,
		generator:          opts.Generator,
		synthesizer:        opts.Synthesizer,
		responder:          opts.Responder,
		store:              opts.Store,
		events:             opts.Events,
		uploader:           opts.Uploader,
		interval:           opts.Interval,
		minClipBytes:       opts.MinClipBytes,
		minTranscriptChars: opts.MinTranscriptChars,
		log:                opts.Logger.With("call_id", sess.ID),
		tracer:             opts.Tracer,
		meter:              opts.Meter,
		buffer:             audio.NewClipBuffer(0),
		ctx:                ctx,
		cancel:             cancel,
		sess:               sess,
	}
}

func (e *Engine) ID() string { return e.id }

// Session returns a snapshot of the call state.
func (e *Engine) Session() call.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() call.Session {
	s := e.sess
	s.Messages = append([]call.Message(nil), e.sess.Messages...)
	return s
}

// Start marks the call active and begins the cycle loop. It is called when
// the audio stream attaches and is a no-op after the first time.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.sess.Status != call.StatusConnecting {
		e.mu.Unlock()
		return
	}
	e.sess.Status = call.StatusActive
	e.mu.Unlock()

	e.events.PublishStatus(e.id, call.StatusActive)
	e.log.Info("call started")
	go e.loop()
}

// Ingest appends a chunk of caller PCM16 to the pending clip and reports the
// chunk's level for the waveform.
func (e *Engine) Ingest(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	e.mu.Lock()
	ended := e.ended
	e.mu.Unlock()
	if ended {
		return
	}
	if !e.buffer.Append(chunk) {
		e.log.Warn("clip buffer full, dropping audio")
		return
	}
	e.events.PublishLevel(e.id, audio.Level(chunk))
}

func (e *Engine) loop() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			go e.runCycle(e.ctx)
		}
	}
}

// runCycle drains the pending clip and walks one transcribe/reply/speak round.
func (e *Engine) runCycle(ctx context.Context) {
	if !e.busy.CompareAndSwap(false, true) {
		e.log.Debug("cycle still in flight, dropping tick")
		return
	}
	defer e.busy.Store(false)

	ctx, span := e.tracer.Start(ctx, "call_cycle")
	defer span.End()
	start := time.Now()

	clip := e.buffer.Drain()
	if len(clip) == 0 {
		return
	}
	e.mu.Lock()
	e.callerPCM.Write(clip)
	e.mu.Unlock()
	if len(clip) < e.minClipBytes {
		e.log.Debug("clip below minimum, discarding", "bytes", len(clip))
		return
	}

	text, err := e.transcribe(ctx, audio.WAVFromPCM16(clip, audio.SampleRate))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.log.Error("transcription failed", "error", err)
		e.events.PublishError(e.id, "transcription failed")
		return
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < e.minTranscriptChars {
		e.log.Debug("transcript below minimum, discarding", "text", text)
		return
	}

	userMsg := call.NewMessage(call.SpeakerCaller, text)
	history, ok := e.appendMessage(userMsg)
	if !ok {
		return
	}
	e.events.PublishMessage(e.id, userMsg)

	reply, ok := e.replyFor(ctx, text, history)
	if !ok {
		return
	}

	agentMsg := call.NewMessage(call.SpeakerAgent, reply)
	if _, ok := e.appendMessage(agentMsg); !ok {
		return
	}
	e.events.PublishMessage(e.id, agentMsg)

	e.speak(ctx, reply)

	if histogram, err := e.meter.Float64Histogram(
		"call.cycle.duration",
		metric.WithDescription("Full cycle duration in milliseconds"),
	); err == nil {
		histogram.Record(ctx, float64(time.Since(start).Milliseconds()))
	}
}

func (e *Engine) transcribe(ctx context.Context, wav []byte) (string, error) {
	ctx, span := e.tracer.Start(ctx, "transcription_api_call")
	defer span.End()
	return e.transcriber.Transcribe(ctx, wav)
}

// replyFor picks the agent reply: a canned match answers instantly without
// touching the generation API, otherwise the generator runs with the full
// history, and without a generator the fallback guidance is used.
func (e *Engine) replyFor(ctx context.Context, text string, history []call.Message) (string, bool) {
	if answer, ok := e.responder.Match(text); ok {
		return answer, true
	}
	if e.generator == nil {
		return e.responder.Fallback(), true
	}

	genCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	genCtx, span := e.tracer.Start(genCtx, "generation_api_call")
	defer span.End()
	reply, err := e.generator.Generate(genCtx, history)
	if err != nil {
		if ctx.Err() != nil {
			return "", false
		}
		e.log.Error("reply generation failed", "error", err)
		e.events.PublishError(e.id, "reply generation failed")
		return "", false
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return e.responder.Fallback(), true
	}
	return reply, true
}

// speak synthesizes the reply and pushes the clip to subscribers. A synthesis
// failure keeps the text turn; the transcript is already committed.
func (e *Engine) speak(ctx context.Context, text string) {
	if e.synthesizer == nil {
		return
	}
	ttsCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	ttsCtx, span := e.tracer.Start(ttsCtx, "synthesis_api_call")
	defer span.End()
	pcm, err := e.synthesizer.Synthesize(ttsCtx, text)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.log.Error("speech synthesis failed", "error", err)
		e.events.PublishError(e.id, "speech synthesis failed")
		return
	}
	if len(pcm) > 0 {
		e.events.PublishAudio(e.id, pcm)
	}
}

func (e *Engine) appendMessage(m call.Message) ([]call.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return nil, false
	}
	e.sess.Messages = append(e.sess.Messages, m)
	return append([]call.Message(nil), e.sess.Messages...), true
}

// End finalizes the call: it stops the cycle loop, aborts any in-flight
// vendor request, and persists exactly one session record. Ending an already
// ended call returns the finalized snapshot again without a second record.
func (e *Engine) End(ctx context.Context) (call.Session, error) {
	tail := e.buffer.Drain()

	e.mu.Lock()
	if e.ended {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, nil
	}
	e.ended = true
	e.callerPCM.Write(tail)
	now := time.Now().UTC()
	e.sess.EndedAt = &now
	e.sess.Status = call.StatusEnded
	snap := e.snapshotLocked()
	callerPCM := append([]byte(nil), e.callerPCM.Bytes()...)
	e.mu.Unlock()

	e.cancel()
	e.events.PublishStatus(e.id, call.StatusEnded)

	if err := e.store.Append(ctx, snap); err != nil {
		return snap, fmt.Errorf("persist session: %w", err)
	}
	e.log.Info("call ended", "messages", len(snap.Messages))

	if e.uploader != nil && len(callerPCM) > 0 {
		go func() {
			key := fmt.Sprintf("calls/%s.wav", snap.ID)
			if err := e.uploader.Upload(key, "audio/wav", audio.WAVFromPCM16(callerPCM, audio.SampleRate)); err != nil {
				e.log.Error("archive upload failed", "error", err)
			}
		}()
	}
	return snap, nil
}
