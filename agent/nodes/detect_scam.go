package nodes

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/detect"
)

// DetectScam runs the classifier on the current message. The first
// positive flips the session to AGENT_ENGAGED; the transition is
// irreversible, so later negatives are ignored.
func DetectScam(in *GraphState, detector *detect.Detector) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contract.ErrValidation)
	}

	if !in.Session.ScamDetected && detector.IsScam(in.Req.Message.Text) {
		in.Session.MarkScamDetected()
		log.Info().Str("session_id", in.Session.ID).Msg("scam detected, agent engaged")
	}
	return in, nil
}
