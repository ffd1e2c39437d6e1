package nodes

import (
	"fmt"
	"strings"

	"github.com/scambait/honeynet/agent/contract"
)

// FinalizeReply shapes the pipeline output.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is incomplete", contract.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: empty reply escaped the fallback path", contract.ErrValidation)
	}
	return GraphOutput{
		Reply:         reply,
		ScamDetected:  in.Session.ScamDetected,
		SessionClosed: in.Session.Closed,
		DispatchErr:   in.DispatchErr,
	}, nil
}
