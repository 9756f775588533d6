// internal/httpserver/routes_game.go
//
// Round endpoints (optional auth; guests get an anonymous cookie id):
//   - POST   /game/new          {levelId}        → snapshot of a ready round
//   - GET    /game/{id}                          → snapshot
//   - POST   /game/{id}/start                    → start (no-op on empty levels)
//   - POST   /game/{id}/click   {x,y,imageType} or {clientX,clientY,rect,imageType}
//   - POST   /game/{id}/reset
//   - DELETE /game/{id}                          → drop the session
//
// In dev mode a new round plays the editor's current collection for the
// level and follows later edits live.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/auth"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/game"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/level"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/persist"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/results"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/scoring"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/store"
)

const anonCookieName = "diferencias_anon"

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Get("/game/{id}", s.withGame(s.handleGetGame))
	r.Delete("/game/{id}", s.handleDeleteGame)
	r.Post("/game/{id}/start", s.withGame(s.handleStart))
	r.Post("/game/{id}/click", s.withGame(s.handleClick))
	r.Post("/game/{id}/reset", s.withGame(s.handleReset))
}

type newGameReq struct {
	LevelID string `json:"levelId"`
}

type newGameRes struct {
	GameID string        `json:"gameId"`
	Level  level.Level   `json:"level"`
	Game   game.Snapshot `json:"game"`
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	var (
		lv  level.Level
		err error
	)
	if req.LevelID == "" {
		lv, err = s.d.Catalog.First()
	} else {
		lv, err = s.d.Catalog.Get(req.LevelID)
	}
	if err != nil {
		writeError(w, http.StatusNotFound, "level_not_found")
		return
	}

	lv.Differences = s.playableDifferences(r.Context(), lv)
	g := game.New(lv, game.Options{Clock: s.d.Clock, DefaultTimeLimit: s.d.Config.DefaultTimeLimit})

	if s.d.Config.DevMode {
		if sess := s.editors.lookup(lv.ID); sess != nil {
			g.OnClose(sess.engine.Subscribe(g.SetDifferences))
		}
	}

	player := s.playerID(w, r)
	g.Subscribe(func(ev game.Event) {
		if ev.Type == game.EventStatus && ev.Snapshot.Status == game.StatusWon {
			s.recordResult(player, ev.Snapshot)
		}
	})

	if err := s.d.Games.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	log.Info().Str("game", g.ID).Str("level", lv.ID).Str("player", player).Msg("round created")
	writeJSON(w, http.StatusCreated, newGameRes{GameID: g.ID, Level: lv, Game: g.Snapshot()})
}

// playableDifferences picks the collection a new round plays: the live
// editor session, then a stored checkpoint (dev mode only), then the level
// file.
func (s *Server) playableDifferences(ctx context.Context, lv level.Level) geometry.Collection {
	if !s.d.Config.DevMode {
		return lv.Differences
	}
	if sess := s.editors.lookup(lv.ID); sess != nil {
		return sess.engine.Differences()
	}
	if s.d.Persist != nil {
		if stored := persist.Load[geometry.Collection](ctx, s.d.Persist, persist.DifferencesKey(lv.ID), nil); stored != nil {
			return stored
		}
	}
	return lv.Differences
}

// withGame resolves {id} to a live round.
func (s *Server) withGame(h func(http.ResponseWriter, *http.Request, *game.Game)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := s.d.Games.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "store_error")
			return
		}
		h(w, r, g)
	}
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request, g *game.Game) {
	writeJSON(w, http.StatusOK, g.Snapshot())
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.d.Games.Delete(r.Context(), chi.URLParam(r, "id")); errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, g *game.Game) {
	if !g.Start() {
		writeError(w, http.StatusConflict, "no_differences")
		return
	}
	writeJSON(w, http.StatusOK, g.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, g *game.Game) {
	g.Reset()
	writeJSON(w, http.StatusOK, g.Snapshot())
}

// clickReq carries either percent coordinates or client pixels plus the
// image box they were measured in.
type clickReq struct {
	X         *float64           `json:"x"`
	Y         *float64           `json:"y"`
	ClientX   *float64           `json:"clientX"`
	ClientY   *float64           `json:"clientY"`
	Rect      *geometry.Viewport `json:"rect"`
	ImageType scoring.Image      `json:"imageType"`
}

type clickRes struct {
	Accepted bool           `json:"accepted"`
	Result   scoring.Result `json:"result"`
	Game     game.Snapshot  `json:"game"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request, g *game.Game) {
	var req clickReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	res, ok, err := applyClick(g, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, clickRes{Accepted: ok, Result: res, Game: g.Snapshot()})
}

var errBadClick = errors.New("click needs x,y or clientX,clientY,rect")

func applyClick(g *game.Game, req clickReq) (scoring.Result, bool, error) {
	ctx := scoring.ClickContext{Image: req.ImageType}
	switch {
	case req.X != nil && req.Y != nil:
		res, ok := g.Click(*req.X, *req.Y, ctx)
		return res, ok, nil
	case req.ClientX != nil && req.ClientY != nil && req.Rect != nil:
		res, ok := g.ClickPixels(*req.ClientX, *req.ClientY, *req.Rect, ctx)
		return res, ok, nil
	default:
		return scoring.Result{}, false, errBadClick
	}
}

// playerID is the signed-in user, or a stable anonymous id kept in a cookie.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) string {
	if me := auth.FromContext(r.Context()); me != nil {
		return me.ID
	}
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	secure := s.d.Config.Production()
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// recordResult stores a won round. Failures are logged only.
func (s *Server) recordResult(player string, snap game.Snapshot) {
	if s.d.Results == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.d.Results.Insert(ctx, results.Result{
		GameID:    snap.ID,
		LevelID:   snap.LevelID,
		PlayerID:  player,
		Score:     snap.Score,
		Attempts:  snap.Attempts,
		Found:     len(snap.FoundDifferences),
		Total:     snap.Total,
		ElapsedMs: snap.Elapsed().Milliseconds(),
	})
	if err != nil {
		log.Warn().Err(err).Str("game", snap.ID).Msg("record result")
	}
}
