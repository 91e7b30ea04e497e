package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const wsWriteTimeout = 10 * time.Second

type wsServerMessage struct {
	Type string    `json:"type"` // connected, invalidated
	Op   string    `json:"op,omitempty"`
	Path string    `json:"path,omitempty"`
	Time time.Time `json:"time"`
}

type wsConnWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConnWriter(conn *websocket.Conn) *wsConnWriter {
	return &wsConnWriter{conn: conn}
}

func (w *wsConnWriter) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteJSON(v)
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return allowWSOrigin(s.cfg.AllowOrigin, r) },
	}
}

// allowWSOrigin accepts any origin for "*", otherwise the configured origin
// or the server's own host.
func allowWSOrigin(allowed string, r *http.Request) bool {
	if allowed == "*" {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if allowed != "" && strings.EqualFold(origin, allowed) {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}
	return strings.EqualFold(originURL.Host, r.Host)
}

// handleEvents pushes index invalidations to a websocket client. Bursts are
// coalesced so the client sees at most one message per EventInterval.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads keep control frames flowing and detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseNoStatusReceived,
				) {
					webLog.Warn("websocket_closed_unexpectedly", slog.String("error", err.Error()))
				}
				return
			}
		}
	}()

	writer := newWSConnWriter(conn)
	if err := writer.WriteJSON(wsServerMessage{Type: "connected", Time: time.Now().UTC()}); err != nil {
		return
	}
	webLog.Debug("events_client_connected", slog.String("remote", r.RemoteAddr))

	limiter := rate.NewLimiter(rate.Every(s.cfg.EventInterval), 1)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		drain:
			for {
				select {
				case next := <-events:
					ev = next
				default:
					break drain
				}
			}

			msg := wsServerMessage{Type: "invalidated", Op: ev.Op, Path: ev.Path, Time: ev.Time.UTC()}
			if err := writer.WriteJSON(msg); err != nil {
				webLog.Debug("events_write_failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
