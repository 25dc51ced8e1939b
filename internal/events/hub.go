package events

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"

	"supportline/internal/audio"
	"supportline/internal/call"
)

const (
	messageSSEType = "message"
	levelSSEType   = "level"
	audioSSEType   = "audio"
	statusSSEType  = "status"
	errorSSEType   = "error"
)

// Hub fans call events out to browsers over server-sent events. Each call has
// its own topic; clients subscribe with ?call_id= and only receive events for
// that call.
type Hub struct {
	srv *sse.Server
}

func NewHub() *Hub {
	return &Hub{
		srv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				callID := s.Req.URL.Query().Get("call_id")
				if callID != "" {
					topics = append(topics, callTopic(callID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
	}
}

func callTopic(callID string) string {
	return fmt.Sprintf("call-%s", callID)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.srv.ServeHTTP(w, r)
}

type messagePayload struct {
	CallID  string       `json:"call_id"`
	Message call.Message `json:"message"`
}

type levelPayload struct {
	CallID string  `json:"call_id"`
	Level  float64 `json:"level"`
}

type audioPayload struct {
	CallID     string `json:"call_id"`
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate"`
}

type statusPayload struct {
	CallID string      `json:"call_id"`
	Status call.Status `json:"status"`
}

type errorPayload struct {
	CallID string `json:"call_id"`
	Error  string `json:"error"`
}

// PublishMessage pushes a finished transcript turn to the call's subscribers.
func (h *Hub) PublishMessage(callID string, m call.Message) {
	h.publish(callID, messageSSEType, messagePayload{CallID: callID, Message: m})
}

// PublishLevel pushes a waveform level sample in the range [0,1].
func (h *Hub) PublishLevel(callID string, level float64) {
	h.publish(callID, levelSSEType, levelPayload{CallID: callID, Level: level})
}

// PublishAudio pushes a synthesized PCM16 clip, base64-encoded for transport.
func (h *Hub) PublishAudio(callID string, pcm []byte) {
	h.publish(callID, audioSSEType, audioPayload{
		CallID:     callID,
		Audio:      base64.StdEncoding.EncodeToString(pcm),
		SampleRate: audio.SampleRate,
	})
}

// PublishStatus pushes a call status transition.
func (h *Hub) PublishStatus(callID string, status call.Status) {
	h.publish(callID, statusSSEType, statusPayload{CallID: callID, Status: status})
}

// PublishError pushes a non-fatal pipeline error so the UI can surface it.
func (h *Hub) PublishError(callID, text string) {
	h.publish(callID, errorSSEType, errorPayload{CallID: callID, Error: text})
}

func (h *Hub) publish(callID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("marshal sse payload failed", "type", eventType, "error", err)
		return
	}
	msg := sse.Message{Type: sse.Type(eventType)}
	msg.AppendData(string(data))
	if err := h.srv.Publish(&msg, callTopic(callID)); err != nil {
		slog.Debug("publish sse event failed", "type", eventType, "error", err)
	}
}

// Shutdown broadcasts a close event and waits for subscribers to drain.
func (h *Hub) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeCall")}
	e.AppendData("bye")
	_ = h.srv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return h.srv.Shutdown(ctx)
}
