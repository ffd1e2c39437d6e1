package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/state"
)

const maxBodyBytes = 1 << 20 // 1MB

type envelope struct {
	Status        string `json:"status"`
	Reply         string `json:"reply,omitempty"`
	ScamDetected  *bool  `json:"scamDetected,omitempty"`
	SessionClosed *bool  `json:"sessionClosed,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "honeynet",
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleHoneypot(w http.ResponseWriter, r *http.Request) {
	var req contract.EngageRequest
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json payload")
		return
	}

	res, err := s.engine.HandleMessage(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, res, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Status:        "success",
		Reply:         res.Reply,
		ScamDetected:  &res.ScamDetected,
		SessionClosed: &res.SessionClosed,
	})
}

// writeEngineError maps pipeline sentinels onto HTTP statuses. A dispatch
// failure still carries the generated reply so the conversation can go on.
func (s *Server) writeEngineError(w http.ResponseWriter, res contract.EngageResult, err error) {
	switch {
	case errors.Is(err, contract.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contract.ErrLockTimeout):
		writeError(w, http.StatusServiceUnavailable, "session busy, retry shortly")
	case errors.Is(err, contract.ErrReportDispatch):
		writeJSON(w, http.StatusBadGateway, envelope{
			Status:        "error",
			Reply:         res.Reply,
			ScamDetected:  &res.ScamDetected,
			SessionClosed: &res.SessionClosed,
			Error:         "final report dispatch failed",
		})
	default:
		log.Error().Err(err).Msg("pipeline failure")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleSessionLookup(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusNotFound, "session lookup not supported by this store")
		return
	}

	id := chi.URLParam(r, "sessionID")
	sess, err := s.sessions.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, contract.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error().Err(err).Str("session_id", id).Msg("session lookup failure")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sessionView(sess))
}

// sessionView is the read-only projection served to operators. The raw
// history stays internal.
func sessionView(s *state.Session) map[string]any {
	return map[string]any{
		"sessionId":     s.ID,
		"phase":         s.Phase(),
		"scamDetected":  s.ScamDetected,
		"totalMessages": len(s.History),
		"intelligence":  s.Intelligence,
		"startedAt":     s.StartedAt,
		"lastActivity":  s.LastActivity,
		"closed":        s.Closed,
		"reported":      s.Reported,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failure")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Status: "error", Error: msg})
}
