package nodes

import (
	"context"
	"fmt"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/report"
)

// DispatchReport sends the final report on the update that closed the
// session. It runs after SaveSession so the reported flag is durable
// before the network attempt: a crash in between loses the report (and
// surfaces as a failed request) rather than risking a duplicate. Dispatch
// failures are recorded, not propagated — the reply must survive.
func DispatchReport(ctx context.Context, in *GraphState, reporter *report.Reporter) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contract.ErrValidation)
	}
	if !in.NewlyReported {
		return in, nil
	}

	if err := reporter.Dispatch(ctx, in.Session); err != nil {
		in.DispatchErr = err
	}
	return in, nil
}
