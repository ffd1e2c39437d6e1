// Package nodes holds the per-message pipeline steps wired together by the
// manager's graph. Each node is a small function over *GraphState; the
// whole chain runs under the session lock.
package nodes

import (
	"time"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/state"
)

type GraphInput struct {
	Req contract.EngageRequest
}

type GraphOutput struct {
	Reply         string
	ScamDetected  bool
	SessionClosed bool
	// DispatchErr reports a failed final-report dispatch. The reply is
	// still valid; the transport layer surfaces both.
	DispatchErr error
}

// GraphState is threaded through the pipeline nodes.
type GraphState struct {
	Req contract.EngageRequest
	Now time.Time

	Session *state.Session
	Reply   string

	// NewlyReported is set on the exact update that closed the session
	// with the report still unsent. Only that update dispatches.
	NewlyReported bool
	DispatchErr   error
}
