package contract

import "context"

// Provider generates raw reply text from a system directive block and a
// serialized conversation context. Implementations wrap the external
// language-model endpoint; failures are recovered by the engagement agent.
type Provider interface {
	Complete(ctx context.Context, system string, input string) (string, error)
}

// ReportSink receives the final report for a session. Implementations wrap
// the configured callback endpoint.
type ReportSink interface {
	Post(ctx context.Context, report FinalReport) error
}
