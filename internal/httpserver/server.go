// internal/httpserver/server.go
//
// HTTP server wiring for the spot-the-difference backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     request logging).
//   - Public endpoints: "/", "/health", level catalog, leaderboards.
//   - Game endpoints (optional auth): create/start/click/reset rounds, plus a
//     websocket stream per round (ws.go).
//   - Editor endpoints (dev mode + required auth): routes_editor.go.
//   - Designer accounts: /auth/*.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The websocket route sits outside the request timeout group.
//   - While serving, finished and idle rounds are swept from the store.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/auth"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/clock"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/config"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/level"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/persist"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/results"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/store"
)

// Deps are the collaborators a Server needs. Results may be nil, in which
// case finished rounds are not recorded.
type Deps struct {
	Config  config.Config
	Catalog *level.Catalog
	Games   store.Store
	Results *results.Store
	Auth    *auth.Service
	// Persist backs editor checkpoints.
	Persist *persist.Adapter
	// Clock drives round timers and editor debounces (default clock.Real()).
	Clock clock.Clock
}

// Server bundles the router and its dependencies.
type Server struct {
	r       *chi.Mux
	d       Deps
	editors *editorRegistry
	http    *http.Server

	sweepCtx  context.Context
	stopSweep context.CancelFunc
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	s := &Server{r: chi.NewRouter(), d: d}
	s.editors = newEditorRegistry(s)
	s.http = &http.Server{Handler: s.r, ReadHeaderTimeout: 10 * time.Second}
	s.sweepCtx, s.stopSweep = context.WithCancel(context.Background())

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(jsonContentType)
	s.r.Use(cors(d.Config.ClientOrigin))

	// Streaming lives outside the timeout group.
	s.r.With(d.Auth.Optional()).Get("/game/{id}/ws", s.handleGameStream)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"diferencias-go","endpoints":["/health","/levels","POST /game/new","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		s.mountLevels(r)
		s.mountGame(r.With(d.Auth.Optional()))
		s.mountAuth(r)
		if d.Config.DevMode {
			s.mountEditor(r.With(d.Auth.Require()))
		}
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	go store.RunSweeper(s.sweepCtx, s.d.Games, s.d.Clock.Now, store.SweepPolicy{
		Interval:    s.d.Config.RoundSweep,
		FinishedTTL: s.d.Config.RoundFinishedTTL,
		IdleTTL:     s.d.Config.RoundIdleTTL,
	})
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests, stops the round sweeper and closes live
// sessions. Pending editor checkpoints are flushed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopSweep()
	err := s.http.Shutdown(ctx)
	s.editors.closeAll()
	return err
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Str("reqId", chimw.GetReqID(r.Context())).
			Msg("http")
	})
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
