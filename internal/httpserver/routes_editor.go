// internal/httpserver/routes_editor.go
//
// Editor endpoints (dev mode only, designer account required). One editor
// session per level lives in memory; rounds created while a session exists
// play its collection and follow its edits.
//   - GET    /editor/{levelId}                    → session state
//   - POST   /editor/{levelId}/toggle
//   - POST   /editor/{levelId}/select             {id} (null clears)
//   - POST   /editor/{levelId}/drag/begin         {id,x,y,rect}
//   - POST   /editor/{levelId}/drag/move          {x,y}
//   - POST   /editor/{levelId}/drag/end
//   - POST   /editor/{levelId}/key                {key,shift}
//   - POST   /editor/{levelId}/differences        {x,y} or {clientX,clientY,rect}
//   - DELETE /editor/{levelId}/differences/{diffId}
//   - POST   /editor/{levelId}/differences/{diffId}/nudge   {dx,dy}
//   - POST   /editor/{levelId}/differences/{diffId}/adjust  {field,delta}
//   - POST   /editor/{levelId}/differences/{diffId}/field   {field,value}
//   - POST   /editor/{levelId}/differences/{diffId}/shape   {type}
//   - POST   /editor/{levelId}/import             raw level JSON
//   - GET    /editor/{levelId}/export             level JSON download
//   - DELETE /editor/{levelId}                    → close the session
//   - DELETE /editor/{levelId}/storage            → drop the stored checkpoint
//
// Edits (drag begin, add, remove, per-difference changes, import) answer 409
// while editor mode is off, like arrow keys.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/editor"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/level"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/persist"
)

const maxImportBytes = 1 << 20

// ----------------------------- sessions ------------------------------------

type editorSession struct {
	engine *editor.Engine

	mu    sync.Mutex
	level level.Level
}

func (es *editorSession) currentLevel() level.Level {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.level
}

type editorRegistry struct {
	srv *Server

	mu       sync.Mutex
	sessions map[string]*editorSession
}

func newEditorRegistry(s *Server) *editorRegistry {
	return &editorRegistry{srv: s, sessions: make(map[string]*editorSession)}
}

// lookup returns the live session for levelID, or nil.
func (reg *editorRegistry) lookup(levelID string) *editorSession {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.sessions[levelID]
}

// get returns the session for levelID, opening it from the stored checkpoint
// or the level file on first use.
func (reg *editorRegistry) get(ctx context.Context, levelID string) (*editorSession, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if sess, ok := reg.sessions[levelID]; ok {
		return sess, nil
	}
	lv, err := reg.srv.d.Catalog.Get(levelID)
	if err != nil {
		return nil, err
	}
	cfg := reg.srv.d.Config
	eng := editor.New(lv.Differences, editor.Options{
		LevelID:      lv.ID,
		DevMode:      cfg.DevMode,
		Store:        reg.srv.d.Persist,
		Clock:        reg.srv.d.Clock,
		SaveDelay:    cfg.SaveDebounce,
		FlushOnClose: true,
	})
	if stored, ok := eng.LoadStored(ctx); ok {
		eng.Replace(stored)
	}
	sess := &editorSession{engine: eng, level: lv}
	reg.sessions[levelID] = sess
	log.Info().Str("level", levelID).Int("differences", len(eng.Differences())).Msg("editor session opened")
	return sess, nil
}

// evict closes and forgets the session for levelID.
func (reg *editorRegistry) evict(levelID string) bool {
	reg.mu.Lock()
	sess, ok := reg.sessions[levelID]
	delete(reg.sessions, levelID)
	reg.mu.Unlock()
	if ok {
		sess.engine.Close()
	}
	return ok
}

// closeAll closes every session, flushing pending checkpoints.
func (reg *editorRegistry) closeAll() {
	reg.mu.Lock()
	sessions := reg.sessions
	reg.sessions = make(map[string]*editorSession)
	reg.mu.Unlock()
	for _, sess := range sessions {
		sess.engine.Close()
	}
}

// ------------------------------- routes ------------------------------------

func (s *Server) mountEditor(r chi.Router) {
	r.Get("/editor/{levelId}", s.withEditor(s.handleEditorState))
	r.Delete("/editor/{levelId}", s.handleEditorClose)
	r.Delete("/editor/{levelId}/storage", s.handleEditorClearStorage)

	r.Post("/editor/{levelId}/toggle", s.withEditor(func(w http.ResponseWriter, r *http.Request, sess *editorSession) {
		sess.engine.Toggle()
		s.handleEditorState(w, r, sess)
	}))
	r.Post("/editor/{levelId}/select", s.withEditor(s.handleEditorSelect))
	r.Post("/editor/{levelId}/drag/begin", s.withEditMode(s.handleDragBegin))
	r.Post("/editor/{levelId}/drag/move", s.withEditor(s.handleDragMove))
	r.Post("/editor/{levelId}/drag/end", s.withEditor(func(w http.ResponseWriter, r *http.Request, sess *editorSession) {
		sess.engine.EndDrag()
		s.handleEditorState(w, r, sess)
	}))
	r.Post("/editor/{levelId}/key", s.withEditor(s.handleEditorKey))

	r.Post("/editor/{levelId}/differences", s.withEditMode(s.handleAddDifference))
	r.Delete("/editor/{levelId}/differences/{diffId}", s.withDifference(s.handleRemoveDifference))
	r.Post("/editor/{levelId}/differences/{diffId}/nudge", s.withDifference(s.handleNudge))
	r.Post("/editor/{levelId}/differences/{diffId}/adjust", s.withDifference(s.handleAdjust))
	r.Post("/editor/{levelId}/differences/{diffId}/field", s.withDifference(s.handleSetField))
	r.Post("/editor/{levelId}/differences/{diffId}/shape", s.withDifference(s.handleChangeShape))

	r.Post("/editor/{levelId}/import", s.withEditMode(s.handleImport))
	r.Get("/editor/{levelId}/export", s.withEditor(s.handleExport))
}

type editorHandler func(http.ResponseWriter, *http.Request, *editorSession)

type differenceHandler func(http.ResponseWriter, *http.Request, *editorSession, int)

// withEditor resolves {levelId} to an editor session, opening one if needed.
func (s *Server) withEditor(h editorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.editors.get(r.Context(), chi.URLParam(r, "levelId"))
		if errors.Is(err, level.ErrNotFound) {
			writeError(w, http.StatusNotFound, "level_not_found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "editor_error")
			return
		}
		h(w, r, sess)
	}
}

// withEditMode rejects the request unless editor mode is on, matching the
// arrow-key path.
func (s *Server) withEditMode(h editorHandler) http.HandlerFunc {
	return s.withEditor(func(w http.ResponseWriter, r *http.Request, sess *editorSession) {
		if !sess.engine.Enabled() {
			writeError(w, http.StatusConflict, "editor_disabled")
			return
		}
		h(w, r, sess)
	})
}

// withDifference parses {diffId} for edits that need editor mode.
func (s *Server) withDifference(h differenceHandler) http.HandlerFunc {
	return s.withEditMode(func(w http.ResponseWriter, r *http.Request, sess *editorSession) {
		id, err := strconv.Atoi(chi.URLParam(r, "diffId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_difference_id")
			return
		}
		h(w, r, sess, id)
	})
}

type editorState struct {
	LevelID     string              `json:"levelId"`
	Enabled     bool                `json:"enabled"`
	Selected    *int                `json:"selected"`
	Dragging    *int                `json:"dragging"`
	SavePending bool                `json:"savePending"`
	Differences geometry.Collection `json:"differences"`
}

func stateOf(sess *editorSession) editorState {
	e := sess.engine
	st := editorState{
		LevelID:     e.LevelID(),
		Enabled:     e.Enabled(),
		SavePending: e.SavePending(),
		Differences: e.Differences(),
	}
	if id, ok := e.Selected(); ok {
		st.Selected = &id
	}
	if id, ok := e.Dragging(); ok {
		st.Dragging = &id
	}
	return st
}

func (s *Server) handleEditorState(w http.ResponseWriter, r *http.Request, sess *editorSession) {
	writeJSON(w, http.StatusOK, stateOf(sess))
}

func (s *Server) handleEditorClose(w http.ResponseWriter, r *http.Request) {
	if !s.editors.evict(chi.URLParam(r, "levelId")) {
		writeError(w, http.StatusNotFound, "no_session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleEditorClearStorage(w http.ResponseWriter, r *http.Request) {
	if s.d.Persist == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"cleared": false})
		return
	}
	ok := s.d.Persist.Clear(r.Context(), persist.DifferencesKey(chi.URLParam(r, "levelId")))
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": ok})
}

type selectReq struct {
	ID *int `json:"id"`
}

func (s *Server) handleEditorSelect(w http.ResponseWriter, r *http.Request, sess *editorSession) {
	var req selectReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.ID == nil {
		sess.engine.ClearSelection()
	} else {
		sess.engine.Select(*req.ID)
	}
	s.handleEditorState(w, r, sess)
}

type dragReq struct {
	ID   int               `json:"id"`
	X    float64           `json:"x"`
	Y    float64           `json:"y"`
	Rect geometry.Viewport `json:"rect"`
}

func (s *Server) handleDragBegin(w http.ResponseWriter, r *http.Request, sess *editorSession) {
	var req dragReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if !sess.engine.BeginDrag(req.ID, req.X, req.Y, req.Rect) {
		writeError(w, http.StatusConflict, "drag_rejected")
		return
	}
	s.handleEditorState(w, r, sess)
}

// handleDragMove queues a pointer position; the engine applies the latest
// one on the next frame, so the response may not reflect it yet.
func (s *Server) handleDragMove(w http.ResponseWriter, r *http.Request, sess *editorSession) {
	var req dragReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess.engine.UpdateDrag(req.X, req.Y)
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

type keyReq struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift"`
}

func (s *Server) handleEditorKey(w http.ResponseWriter, r *http.Request, sess *editorSession) {
	var req keyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	handled := sess.engine.HandleKey(req.Key, req.Shift)
	writeJSON(w, http.StatusOK, struct {
		Handled bool `json:"handled"`
		editorState
	}{handled, stateOf(sess)})
}

type addReq struct {
	X       *float64           `json:"x"`
	Y       *float64           `json:"y"`
	ClientX *float64           `json:"clientX"`
	ClientY *float64           `json:"clientY"`
	Rect    *geometry.Viewport `json:"rect"`
}

func (s *Server) handleAddDifference(w http.ResponseWriter, r *http.Request, sess *editorSession) {
	var req addReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	var (
		d  geometry.Difference
		ok = true
	)
	switch {
	case req.X != nil && req.Y != nil:
		d = sess.engine.Add(*req.X, *req.Y)
	case req.ClientX != nil && req.ClientY != nil && req.Rect != nil:
		d, ok = sess.engine.AddAt(*req.ClientX, *req.ClientY, *req.Rect)
	default:
		ok = false
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_position")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleRemoveDifference(w http.ResponseWriter, r *http.Request, sess *editorSession, id int) {
	if !sess.engine.Remove(id) {
		writeError(w, http.StatusNotFound, "difference_not_found")
		return
	}
	s.handleEditorState(w, r, sess)
}

type nudgeReq struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request, sess *editorSession, id int) {
	var req nudgeReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.editResult(w, r, sess, sess.engine.Nudge(id, req.DX, req.DY))
}

type adjustReq struct {
	Field editor.Field `json:"field"`
	Delta float64      `json:"delta"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request, sess *editorSession, id int) {
	var req adjustReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	var changed bool
	switch req.Field {
	case editor.FieldRadius:
		changed = sess.engine.AdjustRadius(id, req.Delta)
	case editor.FieldWidth, editor.FieldHeight:
		changed = sess.engine.AdjustDimension(id, req.Field, req.Delta)
	case editor.FieldTolerance:
		changed = sess.engine.AdjustTolerance(id, req.Delta)
	default:
		writeError(w, http.StatusBadRequest, "bad_field")
		return
	}
	s.editResult(w, r, sess, changed)
}

// fieldReq takes the value as typed in the form, so it stays a string.
type fieldReq struct {
	Field editor.Field `json:"field"`
	Value string       `json:"value"`
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request, sess *editorSession, id int) {
	var req fieldReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.editResult(w, r, sess, sess.engine.SetFieldAbsolute(id, req.Field, req.Value))
}

type shapeReq struct {
	Type geometry.Kind `json:"type"`
}

func (s *Server) handleChangeShape(w http.ResponseWriter, r *http.Request, sess *editorSession, id int) {
	var req shapeReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.Type != geometry.KindCircle && req.Type != geometry.KindRect {
		writeError(w, http.StatusBadRequest, "bad_shape")
		return
	}
	s.editResult(w, r, sess, sess.engine.ChangeShapeType(id, req.Type))
}

// editResult answers a per-difference edit. Rejected edits still return the
// unchanged state with changed=false.
func (s *Server) editResult(w http.ResponseWriter, r *http.Request, sess *editorSession, changed bool) {
	writeJSON(w, http.StatusOK, struct {
		Changed bool `json:"changed"`
		editorState
	}{changed, stateOf(sess)})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, sess *editorSession) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
		return
	}
	sess.mu.Lock()
	merged, err := level.ApplyImport(sess.level, body)
	if err == nil {
		// The level id is the session key; imports cannot move it.
		merged.ID = sess.level.ID
		sess.level = merged
	}
	sess.mu.Unlock()
	if errors.Is(err, level.ErrNoDifferences) {
		writeError(w, http.StatusBadRequest, "missing_differences")
		return
	}
	if errors.Is(err, level.ErrDuplicateID) {
		writeError(w, http.StatusBadRequest, "duplicate_difference_id")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_level")
		return
	}
	sess.engine.Replace(merged.Differences)
	log.Info().Str("level", merged.ID).Int("differences", len(merged.Differences)).Msg("level imported")
	s.handleEditorState(w, r, sess)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *editorSession) {
	lv := sess.currentLevel()
	data, err := level.Export(lv, sess.engine.Differences())
	if err != nil {
		log.Error().Err(err).Str("level", lv.ID).Msg("export")
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", lv.ID+".json"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
