package nodes

import (
	"fmt"
	"strings"
	"time"

	"github.com/scambait/honeynet/agent/contract"
)

// ValidateRequest rejects malformed payloads before any session mutation.
func ValidateRequest(in GraphInput, now func() time.Time) (*GraphState, error) {
	req := in.Req

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId is required", contract.ErrValidation)
	}
	if !req.Message.Sender.Valid() {
		return nil, fmt.Errorf("%w: message sender must be %q or %q",
			contract.ErrValidation, contract.SenderScammer, contract.SenderUser)
	}
	if strings.TrimSpace(req.Message.Text) == "" {
		return nil, fmt.Errorf("%w: message text is required", contract.ErrValidation)
	}
	for i, m := range req.ConversationHistory {
		if !m.Sender.Valid() {
			return nil, fmt.Errorf("%w: conversationHistory[%d] has invalid sender", contract.ErrValidation, i)
		}
	}

	ts := now()
	if req.Message.Timestamp.IsZero() {
		req.Message.Timestamp = ts.UTC()
	}

	return &GraphState{Req: req, Now: ts}, nil
}
