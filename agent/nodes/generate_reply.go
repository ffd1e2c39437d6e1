package nodes

import (
	"context"
	"fmt"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/engage"
)

// GenerateReply produces the persona reply. The engagement agent absorbs
// provider failures, so this node cannot fail the pipeline for provider
// reasons; only a cancelled request context aborts.
func GenerateReply(ctx context.Context, in *GraphState, agent *engage.Agent) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contract.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in.Reply = agent.GenerateReply(
		ctx,
		in.Req.Message,
		in.Req.ConversationHistory,
		in.Session.Intelligence,
		in.Session.NextFallback,
	)
	return in, nil
}
