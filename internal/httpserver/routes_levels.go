// internal/httpserver/routes_levels.go
//
// Level catalog and leaderboard endpoints:
//   - GET /levels               → index entries in play order
//   - GET /levels/daily         → level of the day (HMAC over date + salt)
//   - GET /levels/{id}          → full level descriptor
//   - GET /levels/{id}/next     → the level after id (wraps around)
//   - GET /leaderboard/{levelId}?limit=N

package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/level"
)

func (s *Server) mountLevels(r chi.Router) {
	r.Get("/levels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, level.Index{Levels: s.d.Catalog.List()})
	})
	r.Get("/levels/daily", s.handleDailyLevel)
	r.Get("/levels/{id}", s.handleGetLevel)
	r.Get("/levels/{id}/next", s.handleNextLevel)
	r.Get("/leaderboard/{levelId}", s.handleLeaderboard)
}

type dailyRes struct {
	Date  string      `json:"date"`
	Level level.Level `json:"level"`
}

func (s *Server) handleDailyLevel(w http.ResponseWriter, r *http.Request) {
	now := s.d.Clock.Now()
	lv, err := s.d.Catalog.Daily(now, s.d.Config.DailySalt)
	if err != nil {
		writeError(w, http.StatusNotFound, "no_levels")
		return
	}
	writeJSON(w, http.StatusOK, dailyRes{Date: level.DateKey(now), Level: lv})
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	lv, err := s.d.Catalog.Get(chi.URLParam(r, "id"))
	if errors.Is(err, level.ErrNotFound) {
		writeError(w, http.StatusNotFound, "level_not_found")
		return
	}
	writeJSON(w, http.StatusOK, lv)
}

type nextRes struct {
	Next    *level.Meta `json:"next"`
	Advance bool        `json:"advance"`
}

// handleNextLevel returns advance=false when there is nothing to move to; the
// client then replays the current level.
func (s *Server) handleNextLevel(w http.ResponseWriter, r *http.Request) {
	m, ok := s.d.Catalog.Next(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusOK, nextRes{})
		return
	}
	writeJSON(w, http.StatusOK, nextRes{Next: &m, Advance: true})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.d.Results == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 100 {
		limit = 100
	}
	rows, err := s.d.Results.Leaderboard(r.Context(), chi.URLParam(r, "levelId"), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	w.Header().Set("Cache-Control", "max-age=5")
	writeJSON(w, http.StatusOK, rows)
}
