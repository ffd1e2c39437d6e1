package nodes

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/scambait/honeynet/agent/contract"
)

// EvaluateClose applies the end-condition. On the update that first
// satisfies it, the session is closed and the reported flag is set — still
// under the session lock, before any dispatch attempt — which is what
// makes the report at-most-once.
func EvaluateClose(in *GraphState, thresholds Thresholds) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contract.ErrValidation)
	}
	s := in.Session

	if !s.Closed && ShouldClose(s, thresholds) {
		s.Close(in.Now)
		log.Info().
			Str("session_id", s.ID).
			Int("messages", len(s.History)).
			Int("intel_categories", s.Intelligence.NonEmptyHardCategories()).
			Msg("end-condition met, closing session")
	}

	if s.Closed && !s.Reported {
		s.MarkReported()
		in.NewlyReported = true
	}
	return in, nil
}
