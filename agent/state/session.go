package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/scambait/honeynet/agent/contract"
)

// Phase is the derived position in the session lifecycle.
// NEW -> ACTIVE -> AGENT_ENGAGED -> CLOSED; CLOSED is terminal.
type Phase string

const (
	PhaseNew          Phase = "NEW"
	PhaseActive       Phase = "ACTIVE"
	PhaseAgentEngaged Phase = "AGENT_ENGAGED"
	PhaseClosed       Phase = "CLOSED"
)

var (
	ErrNilSession     = errors.New("session is nil")
	ErrEmptySessionID = errors.New("session id is empty")
)

// Session is the persistent per-conversation record.
//
// Invariants: ScamDetected, Closed and Reported flip false->true exactly
// once and never revert; History is append-only; Intelligence categories
// only grow (monotonic union). All mutation happens under the store's
// per-session lock.
type Session struct {
	ID           string                `json:"session_id"`
	History      []contract.Message    `json:"history"`
	ScamDetected bool                  `json:"scam_detected"`
	AgentActive  bool                  `json:"agent_active"`
	Intelligence contract.Intelligence `json:"intelligence"`
	StartedAt    time.Time             `json:"started_at"`
	LastActivity time.Time             `json:"last_activity"`
	Closed       bool                  `json:"closed"`
	Reported     bool                  `json:"reported"`
	// FallbackSeq rotates the neutral fallback reply pool so repeated
	// provider failures within one session don't repeat the same line.
	FallbackSeq int                `json:"fallback_seq"`
	Metadata    *contract.Metadata `json:"metadata,omitempty"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		StartedAt:    now.UTC(),
		LastActivity: now.UTC(),
	}
}

func (s *Session) Phase() Phase {
	switch {
	case s == nil || s.ID == "":
		return PhaseNew
	case s.Closed:
		return PhaseClosed
	case s.AgentActive:
		return PhaseAgentEngaged
	default:
		return PhaseActive
	}
}

// Append records an inbound message. Messages arriving after close are
// still appended for audit completeness.
func (s *Session) Append(msg contract.Message, now time.Time) {
	s.History = append(s.History, msg)
	s.LastActivity = now.UTC()
}

// MarkScamDetected flips the detection flags. Irreversible; calling it
// again is a no-op.
func (s *Session) MarkScamDetected() {
	s.ScamDetected = true
	s.AgentActive = true
}

// MergeIntelligence unions newly extracted intelligence into the session.
func (s *Session) MergeIntelligence(found contract.Intelligence) {
	s.Intelligence.Merge(found)
}

// Close transitions the session to its terminal phase. Irreversible.
func (s *Session) Close(now time.Time) {
	s.Closed = true
	s.LastActivity = now.UTC()
}

// MarkReported must be called, under the session lock, before any dispatch
// attempt. Irreversible.
func (s *Session) MarkReported() {
	s.Reported = true
}

// NextFallback returns the rotation index for the fallback pool and
// advances it.
func (s *Session) NextFallback() int {
	seq := s.FallbackSeq
	s.FallbackSeq++
	return seq
}

// Clone returns a deep copy so callers can mutate a working copy and
// persist it with a single Save.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.History = append([]contract.Message(nil), s.History...)
	cp.Intelligence = s.Intelligence.Clone()
	if s.Metadata != nil {
		md := *s.Metadata
		cp.Metadata = &md
	}
	return &cp
}

// Validate checks structural invariants before persisting.
func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.ID == "" {
		return ErrEmptySessionID
	}
	if s.Reported && !s.Closed {
		return fmt.Errorf("session %s reported but not closed", s.ID)
	}
	if s.ScamDetected != s.AgentActive {
		return fmt.Errorf("session %s detection flags out of sync", s.ID)
	}
	return nil
}
