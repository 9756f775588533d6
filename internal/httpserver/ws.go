// internal/httpserver/ws.go
//
// Websocket stream for one round: GET /game/{id}/ws
//   - Server → client: {"type":"snapshot"|"tick"|"click"|"status"|"error", ...}
//     An initial snapshot is sent right after the upgrade.
//   - Client → server: {"type":"start"} | {"type":"reset"} |
//     {"type":"click", x,y | clientX,clientY,rect, imageType}
//
// Only the writer goroutine touches the connection for writes; slow clients
// drop events rather than blocking the round.

package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/game"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/scoring"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/store"
)

const (
	wsReadLimit    = 1 << 20
	wsPongWait     = 60 * time.Second
	wsPingInterval = 25 * time.Second
	wsWriteWait    = 10 * time.Second
	wsBuffer       = 32
)

type streamMsg struct {
	Type  string          `json:"type"`
	Game  *game.Snapshot  `json:"game,omitempty"`
	Click *scoring.Result `json:"click,omitempty"`
	Error string          `json:"error,omitempty"`
}

type streamCmd struct {
	Type string `json:"type"`
	clickReq
}

func (s *Server) upgrader() *websocket.Upgrader {
	origin := s.d.Config.ClientOrigin
	dev := s.d.Config.DevMode
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			if o == "" || dev {
				return true
			}
			if u, err := url.Parse(o); err == nil && u.Host == r.Host {
				return true
			}
			return o == origin
		},
	}
}

func (s *Server) handleGameStream(w http.ResponseWriter, r *http.Request) {
	g, err := s.d.Games.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error")
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("game", g.ID).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	out := make(chan streamMsg, wsBuffer)
	send := func(m streamMsg) {
		select {
		case out <- m:
		default:
		}
	}
	snap := g.Snapshot()
	out <- streamMsg{Type: "snapshot", Game: &snap}

	unsubscribe := g.Subscribe(func(ev game.Event) {
		snap := ev.Snapshot
		send(streamMsg{Type: string(ev.Type), Game: &snap, Click: ev.Click})
	})
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	go streamWriter(conn, out, done)

	log.Debug().Str("game", g.ID).Msg("ws connected")
	for {
		var cmd streamCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("game", g.ID).Msg("ws read")
			}
			return
		}
		switch cmd.Type {
		case "start":
			if !g.Start() {
				send(streamMsg{Type: "error", Error: "no_differences"})
			}
		case "reset":
			g.Reset()
		case "click":
			if _, _, err := applyClick(g, cmd.clickReq); err != nil {
				send(streamMsg{Type: "error", Error: err.Error()})
			}
		default:
			send(streamMsg{Type: "error", Error: "unknown_command"})
		}
	}
}

// streamWriter drains out to conn and keeps the connection alive with pings
// until done is closed or a write fails.
func streamWriter(conn *websocket.Conn, out <-chan streamMsg, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case m := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(m); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}
