package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"supportline/internal/agent"
	"supportline/internal/call"
)

// SessionStore lists persisted call records, newest first.
type SessionStore interface {
	Sessions(ctx context.Context) ([]call.Session, error)
}

type Handlers struct {
	Manager *agent.Manager
	Store   SessionStore
	Events  http.Handler
}

func NewHandlers(manager *agent.Manager, store SessionStore, events http.Handler) Handlers {
	return Handlers{Manager: manager, Store: store, Events: events}
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	api := e.Group("/api")
	api.POST("/calls", h.startCall)
	api.GET("/calls/:id", h.getCall)
	api.POST("/calls/:id/end", h.endCall)
	api.GET("/calls/:id/audio", h.callAudio)
	api.GET("/events", h.events)
	api.GET("/sessions", h.sessions)
}

func (h Handlers) startCall(c echo.Context) error {
	eng := h.Manager.Create()
	return c.JSON(http.StatusCreated, eng.Session())
}

func (h Handlers) getCall(c echo.Context) error {
	eng, ok := h.Manager.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
	}
	return c.JSON(http.StatusOK, eng.Session())
}

func (h Handlers) endCall(c echo.Context) error {
	snap, err := h.Manager.EndCall(c.Request().Context(), c.Param("id"))
	if errors.Is(err, agent.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
	}
	if err != nil {
		slog.Error("end call failed", "call_id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to end call"})
	}
	return c.JSON(http.StatusOK, snap)
}

func (h Handlers) sessions(c echo.Context) error {
	sessions, err := h.Store.Sessions(c.Request().Context())
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}
	if sessions == nil {
		sessions = []call.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h Handlers) events(c echo.Context) error {
	h.Events.ServeHTTP(c.Response(), c.Request())
	return nil
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Allow any origin for demo use; restrict in production
		return true
	},
}

// callAudio upgrades to WebSocket and feeds binary PCM16 frames into the
// call's clip buffer. Closing the socket leaves the call running; only the
// end route finalizes it.
func (h Handlers) callAudio(c echo.Context) error {
	eng, ok := h.Manager.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
	}

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("ws upgrade error", "call_id", eng.ID(), "error", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	// The call goes active once audio starts flowing.
	eng.Start()

	for {
		mt, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return nil
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		eng.Ingest(data)
	}
}
