// Package manager orchestrates one inbound message: load/create session,
// classify, extract, reply, evaluate the end-condition and dispatch the
// final report — all while holding the per-session lock.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/detect"
	"github.com/scambait/honeynet/agent/engage"
	"github.com/scambait/honeynet/agent/intel"
	nodex "github.com/scambait/honeynet/agent/nodes"
	"github.com/scambait/honeynet/agent/report"
	"github.com/scambait/honeynet/agent/state"
)

// Config carries the end-condition thresholds.
type Config struct {
	MaxMessages  int `envconfig:"MAX_MESSAGES" split_words:"true" default:"20"`
	IntelTargets int `envconfig:"INTEL_TARGETS" split_words:"true" default:"2"`
}

type Manager struct {
	store      state.Store
	detector   *detect.Detector
	extractor  *intel.Extractor
	agent      *engage.Agent
	reporter   *report.Reporter
	thresholds nodex.Thresholds

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	store state.Store,
	detector *detect.Detector,
	extractor *intel.Extractor,
	agent *engage.Agent,
	reporter *report.Reporter,
	cfg Config,
) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if detector == nil {
		return nil, errors.New("detector is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if agent == nil {
		return nil, errors.New("engagement agent is required")
	}
	if reporter == nil {
		return nil, errors.New("reporter is required")
	}

	m := &Manager{
		store:     store,
		detector:  detector,
		extractor: extractor,
		agent:     agent,
		reporter:  reporter,
		thresholds: nodex.Thresholds{
			MaxMessages:  cfg.MaxMessages,
			IntelTargets: cfg.IntelTargets,
		},
		now: time.Now,
	}

	graphRunner, err := m.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	m.graphRunner = graphRunner

	return m, nil
}

// HandleMessage runs the full pipeline for one inbound message under the
// session lock. A non-nil EngageResult.Reply may accompany a non-nil error
// when only the final-report dispatch failed.
func (m *Manager) HandleMessage(ctx context.Context, req contract.EngageRequest) (contract.EngageResult, error) {
	// Reject an unusable lock key before acquiring anything; full payload
	// validation runs as the first pipeline node.
	if strings.TrimSpace(req.SessionID) == "" {
		return contract.EngageResult{}, fmt.Errorf("%w: sessionId is required", contract.ErrValidation)
	}

	var out nodex.GraphOutput
	err := m.store.WithLock(ctx, req.SessionID, func(ctx context.Context) error {
		var invokeErr error
		out, invokeErr = m.graphRunner.Invoke(ctx, nodex.GraphInput{Req: req})
		return invokeErr
	})
	if err != nil {
		return contract.EngageResult{}, err
	}

	result := contract.EngageResult{
		Reply:         out.Reply,
		ScamDetected:  out.ScamDetected,
		SessionClosed: out.SessionClosed,
	}
	return result, out.DispatchErr
}
