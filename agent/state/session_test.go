package state

import (
	"testing"
	"time"

	"github.com/scambait/honeynet/agent/contract"
)

func TestPhaseTransitions(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := NewSession("s1", now)

	if got := s.Phase(); got != PhaseActive {
		t.Fatalf("fresh session phase = %s, want ACTIVE", got)
	}

	s.MarkScamDetected()
	if got := s.Phase(); got != PhaseAgentEngaged {
		t.Fatalf("phase after detection = %s, want AGENT_ENGAGED", got)
	}
	// Idempotent; never reverts.
	s.MarkScamDetected()
	if !s.ScamDetected || !s.AgentActive {
		t.Fatal("detection flags must stay set")
	}

	s.Close(now)
	if got := s.Phase(); got != PhaseClosed {
		t.Fatalf("phase after close = %s, want CLOSED", got)
	}
}

func TestAppendAfterCloseStillRecorded(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := NewSession("s2", now)
	s.Close(now)

	s.Append(contract.Message{Sender: contract.SenderScammer, Text: "late", Timestamp: now}, now)
	if len(s.History) != 1 {
		t.Fatalf("history length = %d, want 1 (audit append after close)", len(s.History))
	}
}

func TestValidateRejectsReportedButOpen(t *testing.T) {
	t.Parallel()

	s := NewSession("s3", time.Now())
	s.Reported = true
	if err := s.Validate(); err == nil {
		t.Fatal("expected validation failure: reported implies closed")
	}
}

func TestNextFallbackRotates(t *testing.T) {
	t.Parallel()

	s := NewSession("s4", time.Now())
	if s.NextFallback() != 0 || s.NextFallback() != 1 || s.NextFallback() != 2 {
		t.Fatal("fallback sequence must increment per call")
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := NewSession("s5", now)
	s.Append(contract.Message{Sender: contract.SenderScammer, Text: "x", Timestamp: now}, now)
	s.MergeIntelligence(contract.Intelligence{UPIIDs: []string{"a@upi"}})

	cp := s.Clone()
	cp.Append(contract.Message{Sender: contract.SenderUser, Text: "y", Timestamp: now}, now)
	cp.MergeIntelligence(contract.Intelligence{UPIIDs: []string{"b@upi"}})

	if len(s.History) != 1 || len(s.Intelligence.UPIIDs) != 1 {
		t.Fatal("clone mutation leaked into the original")
	}
}
