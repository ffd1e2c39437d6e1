package nodes

import (
	"fmt"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/intel"
)

// ExtractIntel runs the pattern extractor over the payload's conversation
// history plus the current message (both senders, arrival order) and
// merges the result into the session. The merge is a monotonic union:
// categories only ever grow.
func ExtractIntel(in *GraphState, extractor *intel.Extractor) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contract.ErrValidation)
	}

	corpus := make([]contract.Message, 0, len(in.Req.ConversationHistory)+1)
	corpus = append(corpus, in.Req.ConversationHistory...)
	corpus = append(corpus, in.Req.Message)

	in.Session.MergeIntelligence(extractor.Extract(corpus))
	return in, nil
}
