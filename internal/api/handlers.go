package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Veraticus/ecolens/internal/camera"
	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/presentation"
	"github.com/Veraticus/ecolens/internal/session"
	"github.com/Veraticus/ecolens/internal/storage"
)

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	UserID string `json:"user_id"`
}

// SessionView is the JSON form of a session snapshot.
type SessionView struct {
	Mission           *model.Mission         `json:"mission,omitempty"`
	LastAttempt       *session.Attempt       `json:"last_attempt,omitempty"`
	ID                string                 `json:"id"`
	UserID            string                 `json:"user_id"`
	Mode              session.Mode           `json:"mode"`
	State             session.State          `json:"state"`
	ModelState        string                 `json:"model_state"`
	View              presentation.ViewState `json:"view"`
	CooldownRemaining int                    `json:"cooldown_remaining"`
}

// ScanResponse is the body of a successful POST /sessions/{id}/scan.
type ScanResponse struct {
	Attempt *session.Attempt `json:"attempt"`
	Session SessionView      `json:"session"`
}

// ProfileView is the JSON form of a user's experience.
type ProfileView struct {
	NextLevel *model.Level `json:"next_level,omitempty"`
	UserID    string       `json:"user_id"`
	Level     model.Level  `json:"level"`
	XP        int          `json:"xp"`
	Progress  float64      `json:"progress"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newSessionView(snap session.Snapshot) SessionView {
	return SessionView{
		ID:                snap.SessionID,
		UserID:            snap.UserID,
		Mode:              snap.Mode,
		State:             snap.State,
		ModelState:        snap.ModelState.String(),
		CooldownRemaining: snap.CooldownRemaining,
		Mission:           snap.Mission,
		LastAttempt:       snap.LastAttempt,
		View:              presentation.Build(snap),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	slot := &camera.Slot{}
	sess, err := s.factory(req.UserID, slot)
	if err != nil {
		s.logger.Error("failed to create session", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = &entry{session: sess, slot: slot}
	s.mu.Unlock()

	s.logger.Info("Session created", "session_id", sess.ID(), "user_id", req.UserID)
	writeJSON(w, http.StatusCreated, newSessionView(sess.Snapshot()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(e.session.Snapshot()))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err := e.session.Close(); err != nil {
		s.logger.Warn("failed to close session", "session_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutFrame(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	frame, err := s.readFrame(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if frame == nil {
		writeError(w, http.StatusBadRequest, "frame body is empty")
		return
	}

	e.slot.Put(*frame)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	frame, err := s.readFrame(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if frame != nil {
		e.slot.Put(*frame)
	}

	attempt, err := e.session.AttemptScan(r.Context())
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("scan failed", "session_id", e.session.ID(), "error", err)
		}
		writeError(w, status, errorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Attempt: attempt,
		Session: newSessionView(e.session.Snapshot()),
	})
}

func (s *Server) handleUserScans(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is not available")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	records, err := s.history.RecentScans(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if records == nil {
		records = []model.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is not available")
		return
	}

	profile, err := s.history.GetProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	view := ProfileView{
		UserID:   profile.UserID,
		XP:       profile.XP,
		Level:    model.LevelFor(profile.XP),
		Progress: model.Progress(profile.XP),
	}
	if next, ok := model.NextLevel(profile.XP); ok {
		view.NextLevel = &next
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidLimit), errors.Is(err, storage.ErrEmptyString):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
	}
}

// readFrame returns the request body as a frame, or nil when the body is
// empty.
func (s *Server) readFrame(w http.ResponseWriter, r *http.Request) (*model.Frame, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxFrameBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("frame exceeds %d bytes", s.maxFrameBytes)
		}
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	mime := r.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}

	return &model.Frame{
		Name:       r.URL.Query().Get("name"),
		MIME:       mime,
		Data:       data,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// statusFor maps a scan error onto an HTTP status.
// statusClientClosedRequest reports a scan the client gave up on before it
// finished.
const statusClientClosedRequest = 499

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrCoolingDown), errors.Is(err, common.ErrScanInProgress):
		return http.StatusConflict
	case errors.Is(err, common.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrModelLoad), errors.Is(err, common.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, common.ErrCaptureFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrClassificationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorMessage(err error) string {
	return common.UserMessage(err, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
