package nodes

import (
	"context"
	"fmt"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/state"
)

// LoadOrCreateSession fetches (or atomically creates) the session and
// records the inbound message. Messages arriving after close are still
// appended; the reported flag keeps the report single-shot.
func LoadOrCreateSession(ctx context.Context, in *GraphState, store state.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contract.ErrValidation)
	}

	s, err := store.GetOrCreate(ctx, in.Req.SessionID, in.Now)
	if err != nil {
		return nil, err
	}
	if s.Metadata == nil && in.Req.Metadata != nil {
		md := *in.Req.Metadata
		s.Metadata = &md
	}
	s.Append(in.Req.Message, in.Now)

	in.Session = s
	return in, nil
}
