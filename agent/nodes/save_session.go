package nodes

import (
	"context"
	"fmt"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/state"
)

// SaveSession persists the updated session in one write. Everything before
// this node mutates a private copy, so a request that dies earlier leaves
// the stored state untouched and fully re-enterable.
func SaveSession(ctx context.Context, in *GraphState, store state.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contract.ErrValidation)
	}
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	return in, nil
}
