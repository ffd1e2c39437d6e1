package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/state"
)

type fakeSink struct {
	err   error
	calls int
	last  contract.FinalReport
}

func (f *fakeSink) Post(_ context.Context, rep contract.FinalReport) error {
	f.calls++
	f.last = rep
	return f.err
}

func TestBuildNotesFixedOrder(t *testing.T) {
	t.Parallel()

	notes := BuildNotes(contract.Intelligence{
		UPIIDs:             []string{"a@upi"},
		PhoneNumbers:       []string{"9876543210", "9876543211"},
		SuspiciousKeywords: []string{"urgent", "verify", "otp", "blocked", "kyc", "prize"},
	})

	want := "Collected 1 UPI id. Collected 2 phone numbers. Tactics: urgent, verify, otp, blocked, kyc"
	if notes != want {
		t.Fatalf("notes = %q, want %q", notes, want)
	}
}

func TestBuildNotesEmptyIntelligence(t *testing.T) {
	t.Parallel()

	if got := BuildNotes(contract.Intelligence{}); got != defaultNotes {
		t.Fatalf("notes = %q, want default sentence", got)
	}
}

func TestBuildNotesDeterministic(t *testing.T) {
	t.Parallel()

	intel := contract.Intelligence{
		BankAccounts:  []string{"123456789012"},
		PhishingLinks: []string{"http://x.example"},
	}
	first := BuildNotes(intel)
	for i := 0; i < 5; i++ {
		if BuildNotes(intel) != first {
			t.Fatal("notes must be deterministic")
		}
	}
}

func TestReportEncodesEmptyCategoriesAsArrays(t *testing.T) {
	t.Parallel()

	// A session that closes on the message threshold never touches any
	// category; the dispatched body must still carry arrays, not null.
	s := state.NewSession("sess-empty", time.Now())
	rep := New(&fakeSink{}).Build(s)

	raw, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	body := string(raw)
	if strings.Contains(body, "null") {
		t.Fatalf("encoded report contains null: %s", body)
	}
	for _, want := range []string{
		`"upiIds":[]`, `"bankAccounts":[]`, `"phoneNumbers":[]`,
		`"phishingLinks":[]`, `"suspiciousKeywords":[]`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("encoded report missing %s: %s", want, body)
		}
	}
}

func TestReportEncodesPartialIntelligenceAsArrays(t *testing.T) {
	t.Parallel()

	s := state.NewSession("sess-partial", time.Now())
	s.MergeIntelligence(contract.Intelligence{UPIIDs: []string{"x@upi"}})

	raw, err := json.Marshal(New(&fakeSink{}).Build(s))
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, `"upiIds":["x@upi"]`) {
		t.Fatalf("populated category lost: %s", body)
	}
	if strings.Contains(body, "null") {
		t.Fatalf("untouched categories must encode as []: %s", body)
	}
}

func TestDispatchBuildsReportFromSession(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := state.NewSession("sess-9", now)
	s.Append(contract.Message{Sender: contract.SenderScammer, Text: "pay x@upi", Timestamp: now}, now)
	s.MarkScamDetected()
	s.MergeIntelligence(contract.Intelligence{UPIIDs: []string{"x@upi"}})

	sink := &fakeSink{}
	if err := New(sink).Dispatch(context.Background(), s); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if sink.calls != 1 {
		t.Fatalf("sink calls = %d, want 1", sink.calls)
	}
	rep := sink.last
	if rep.SessionID != "sess-9" || !rep.ScamDetected || rep.TotalMessagesExchanged != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if len(rep.ExtractedIntelligence.UPIIDs) != 1 {
		t.Fatalf("report intelligence = %+v", rep.ExtractedIntelligence)
	}
}

func TestDispatchFailureSurfacesRetryableError(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{err: errors.New("callback unreachable")}
	s := state.NewSession("sess-10", time.Now())

	err := New(sink).Dispatch(context.Background(), s)
	if !errors.Is(err, contract.ErrReportDispatch) {
		t.Fatalf("error = %v, want ErrReportDispatch", err)
	}
	// Never retried here; one attempt only.
	if sink.calls != 1 {
		t.Fatalf("sink calls = %d, want 1", sink.calls)
	}
}
