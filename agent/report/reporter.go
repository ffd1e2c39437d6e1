// Package report builds and dispatches the final session report. The
// contract is at-most-once successful dispatch per session: the session's
// reported flag is set (under the session lock) before any network
// attempt, and a failed attempt is surfaced as a retryable error rather
// than retried here.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/state"
)

// maxKeywordsInNotes caps the tactics listed in agent notes.
const maxKeywordsInNotes = 5

// defaultNotes is used when no intelligence category is populated.
const defaultNotes = "Scammer engaged; no actionable intelligence extracted"

type Reporter struct {
	sink contract.ReportSink
}

func New(sink contract.ReportSink) *Reporter {
	return &Reporter{sink: sink}
}

// Build assembles the immutable final report from session state.
func (r *Reporter) Build(s *state.Session) contract.FinalReport {
	return contract.FinalReport{
		SessionID:              s.ID,
		ScamDetected:           s.ScamDetected,
		TotalMessagesExchanged: len(s.History),
		ExtractedIntelligence:  s.Intelligence.Clone(),
		AgentNotes:             BuildNotes(s.Intelligence),
	}
}

// Dispatch sends the report to the callback endpoint. The caller must have
// set the session's reported flag before invoking; Dispatch never retries.
func (r *Reporter) Dispatch(ctx context.Context, s *state.Session) error {
	rep := r.Build(s)
	if err := r.sink.Post(ctx, rep); err != nil {
		log.Error().Err(err).Str("session_id", s.ID).Msg("final report dispatch failed")
		return fmt.Errorf("%w: session=%s: %v", contract.ErrReportDispatch, s.ID, err)
	}
	log.Info().
		Str("session_id", s.ID).
		Int("messages", rep.TotalMessagesExchanged).
		Bool("scam_detected", rep.ScamDetected).
		Msg("final report dispatched")
	return nil
}

// BuildNotes renders agent notes deterministically: one clause per
// non-empty category in fixed order, clauses joined with ". ". Keywords
// name the first five entries.
func BuildNotes(intel contract.Intelligence) string {
	var clauses []string

	if n := len(intel.UPIIDs); n > 0 {
		clauses = append(clauses, fmt.Sprintf("Collected %d UPI id%s", n, plural(n)))
	}
	if n := len(intel.BankAccounts); n > 0 {
		clauses = append(clauses, fmt.Sprintf("Collected %d bank account%s", n, plural(n)))
	}
	if n := len(intel.PhoneNumbers); n > 0 {
		clauses = append(clauses, fmt.Sprintf("Collected %d phone number%s", n, plural(n)))
	}
	if n := len(intel.PhishingLinks); n > 0 {
		clauses = append(clauses, fmt.Sprintf("Shared %d phishing link%s", n, plural(n)))
	}
	if len(intel.SuspiciousKeywords) > 0 {
		kws := intel.SuspiciousKeywords
		if len(kws) > maxKeywordsInNotes {
			kws = kws[:maxKeywordsInNotes]
		}
		clauses = append(clauses, "Tactics: "+strings.Join(kws, ", "))
	}

	if len(clauses) == 0 {
		return defaultNotes
	}
	return strings.Join(clauses, ". ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
