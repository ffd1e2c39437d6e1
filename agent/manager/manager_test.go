package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/detect"
	"github.com/scambait/honeynet/agent/engage"
	"github.com/scambait/honeynet/agent/intel"
	"github.com/scambait/honeynet/agent/report"
	"github.com/scambait/honeynet/agent/state"
)

type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (f *fakeProvider) Complete(context.Context, string, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeSink struct {
	mu      sync.Mutex
	err     error
	reports []contract.FinalReport
}

func (f *fakeSink) Post(_ context.Context, rep contract.FinalReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, rep)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

type harness struct {
	mgr   *Manager
	store *state.MemoryStore
	sink  *fakeSink
}

func newHarness(t *testing.T, provider contract.Provider, sink *fakeSink) *harness {
	t.Helper()

	store := state.NewMemoryStore(time.Second)
	mgr, err := New(
		store,
		detect.New(detect.DefaultConfig()),
		intel.New(intel.DefaultConfig()),
		engage.New(provider, engage.DefaultConfig()),
		report.New(sink),
		Config{},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &harness{mgr: mgr, store: store, sink: sink}
}

func request(sessionID, text string) contract.EngageRequest {
	return contract.EngageRequest{
		SessionID: sessionID,
		Message: contract.Message{
			Sender:    contract.SenderScammer,
			Text:      text,
			Timestamp: time.Now(),
		},
	}
}

func TestHistoryGrowsByOnePerAcceptedMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{reply: "Oh no, what should I do?"}, &fakeSink{})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := h.mgr.HandleMessage(ctx, request("hist", fmt.Sprintf("ping %d", i))); err != nil {
			t.Fatalf("HandleMessage(%d) error = %v", i, err)
		}
		s, err := h.store.Snapshot(ctx, "hist")
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if len(s.History) != i {
			t.Fatalf("history length = %d after %d accepted messages", len(s.History), i)
		}
	}
}

func TestMalformedRequestsNeverMutate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{reply: "ok?"}, &fakeSink{})
	ctx := context.Background()

	cases := []contract.EngageRequest{
		{},
		{SessionID: "bad", Message: contract.Message{Sender: "robot", Text: "hi"}},
		{SessionID: "bad", Message: contract.Message{Sender: contract.SenderScammer, Text: "   "}},
	}
	for i, req := range cases {
		_, err := h.mgr.HandleMessage(ctx, req)
		if !errors.Is(err, contract.ErrValidation) {
			t.Fatalf("case %d: error = %v, want ErrValidation", i, err)
		}
	}

	if _, err := h.store.Snapshot(ctx, "bad"); !errors.Is(err, contract.ErrSessionNotFound) {
		t.Fatalf("rejected requests must not create sessions, got %v", err)
	}
}

func TestMessageThresholdClosesOnceAndReportsOnce(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	h := newHarness(t, &fakeProvider{reply: "What do you mean exactly?"}, sink)
	ctx := context.Background()

	for i := 1; i <= 20; i++ {
		res, err := h.mgr.HandleMessage(ctx, request("long", fmt.Sprintf("ping %d", i)))
		if err != nil {
			t.Fatalf("HandleMessage(%d) error = %v", i, err)
		}
		if i < 20 && res.SessionClosed {
			t.Fatalf("session closed early at message %d", i)
		}
		if i == 20 && !res.SessionClosed {
			t.Fatal("session must close at message 20")
		}
	}
	if sink.count() != 1 {
		t.Fatalf("report dispatches = %d, want exactly 1", sink.count())
	}

	// Message 21: appended for audit, no second dispatch, reply intact.
	res, err := h.mgr.HandleMessage(ctx, request("long", "ping 21"))
	if err != nil {
		t.Fatalf("HandleMessage(21) error = %v", err)
	}
	if res.Reply == "" {
		t.Fatal("post-close requests must still get a reply")
	}
	if sink.count() != 1 {
		t.Fatalf("report dispatches after message 21 = %d, want 1", sink.count())
	}

	s, err := h.store.Snapshot(ctx, "long")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(s.History) != 21 {
		t.Fatalf("history length = %d, want 21 (audit append after close)", len(s.History))
	}
	if !s.Closed || !s.Reported {
		t.Fatalf("session flags = closed:%v reported:%v", s.Closed, s.Reported)
	}
}

func TestTwoCategoriesInOneUpdateCloseImmediately(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	h := newHarness(t, &fakeProvider{reply: "Which number do I call?"}, sink)
	ctx := context.Background()

	res, err := h.mgr.HandleMessage(ctx,
		request("fast", "URGENT: pay scammer@paytm immediately or call 9876543210"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !res.SessionClosed {
		t.Fatal("two hard categories first populated in one update must close the session")
	}
	if !res.ScamDetected {
		t.Fatal("expected scam detection on this message")
	}
	if sink.count() != 1 {
		t.Fatalf("report dispatches = %d, want 1", sink.count())
	}

	rep := sink.reports[0]
	if len(rep.ExtractedIntelligence.UPIIDs) != 1 || len(rep.ExtractedIntelligence.PhoneNumbers) != 1 {
		t.Fatalf("report intelligence = %+v", rep.ExtractedIntelligence)
	}
	if rep.AgentNotes == "" {
		t.Fatal("agent notes must be populated")
	}
}

func TestIntelligenceNeverShrinks(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{reply: "Why is that?"}, &fakeSink{})
	ctx := context.Background()

	if _, err := h.mgr.HandleMessage(ctx, request("mono", "pay scammer@paytm")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if _, err := h.mgr.HandleMessage(ctx, request("mono", "just checking in")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	s, err := h.store.Snapshot(ctx, "mono")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(s.Intelligence.UPIIDs) != 1 || s.Intelligence.UPIIDs[0] != "scammer@paytm" {
		t.Fatalf("intelligence shrank or reordered: %#v", s.Intelligence.UPIIDs)
	}
}

func TestProviderFailureNeverFailsRequest(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{err: errors.New("model unavailable")}, &fakeSink{})
	ctx := context.Background()

	pool := engage.DefaultConfig().FallbackReplies
	first, err := h.mgr.HandleMessage(ctx, request("fb", "your account is blocked, verify immediately"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	second, err := h.mgr.HandleMessage(ctx, request("fb", "are you there"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if first.Reply != pool[0] || second.Reply != pool[1] {
		t.Fatalf("fallback replies = %q, %q; want deterministic pool rotation", first.Reply, second.Reply)
	}
}

func TestDispatchFailureSurfacedButReplyKept(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{err: errors.New("callback 503")}
	h := newHarness(t, &fakeProvider{reply: "Where do I send it?"}, sink)
	ctx := context.Background()

	res, err := h.mgr.HandleMessage(ctx,
		request("dfail", "pay scammer@paytm or call 9876543210 now"))
	if !errors.Is(err, contract.ErrReportDispatch) {
		t.Fatalf("error = %v, want ErrReportDispatch", err)
	}
	if res.Reply == "" {
		t.Fatal("reply must survive a dispatch failure")
	}

	// The reported flag was set before the attempt: the engine never
	// auto-retries, so the next message triggers no dispatch.
	if _, err := h.mgr.HandleMessage(ctx, request("dfail", "hello?")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	s, err := h.store.Snapshot(ctx, "dfail")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !s.Reported {
		t.Fatal("reported flag must be set before dispatch")
	}
}

func TestConcurrentSubmissionsNoLostAppends(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{reply: "Could you repeat that?"}, &fakeSink{})
	ctx := context.Background()

	const k = 12
	var wg sync.WaitGroup
	wg.Add(k)
	for i := 0; i < k; i++ {
		go func(i int) {
			defer wg.Done()
			if _, err := h.mgr.HandleMessage(ctx, request("conc", fmt.Sprintf("dup %d", i))); err != nil {
				t.Errorf("HandleMessage(%d) error = %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	s, err := h.store.Snapshot(ctx, "conc")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(s.History) != k {
		t.Fatalf("history length = %d, want %d (no dropped or duplicated entries)", len(s.History), k)
	}
	seen := make(map[string]bool, k)
	for _, m := range s.History {
		if seen[m.Text] {
			t.Fatalf("duplicated entry %q", m.Text)
		}
		seen[m.Text] = true
	}
}
