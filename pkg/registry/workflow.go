package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linedesk/callcore/pkg/audit"
	"github.com/linedesk/callcore/pkg/contracts"
	"github.com/linedesk/callcore/pkg/history"
	"github.com/linedesk/callcore/pkg/metrics"
	"github.com/linedesk/callcore/pkg/workflow"
)

// AdvanceWorkflow moves the call to the next workflow stage. Only the exact
// next stage in the fixed order is accepted; the transition is timed with
// the elapsed time in the departed stage.
func (r *Registry) AdvanceWorkflow(ctx context.Context, callID string, nextStage contracts.Stage) (contracts.StageGuidance, error) {
	s, err := r.get(callID)
	if err != nil {
		return contracts.StageGuidance{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Status == contracts.StatusCompleted {
		return contracts.StageGuidance{}, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}

	current := s.data.Stage
	if err := workflow.ValidateTransition(current, nextStage); err != nil {
		return contracts.StageGuidance{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	now := r.clock()
	s.data.StageTransitions = append(s.data.StageTransitions, contracts.StageTransition{
		From:      current,
		To:        nextStage,
		Timestamp: now,
		Duration:  now.Sub(s.data.StageStartTime),
	})
	s.data.Stage = nextStage
	s.data.StageStartTime = now

	_ = r.auditLog.Record(ctx, audit.EventWorkflowAdvanced, callID, s.data.AgentID, map[string]interface{}{
		"from": string(current),
		"to":   string(nextStage),
	})

	return workflow.GuidanceFor(nextStage), nil
}

// RecordHold adds time the caller spent on hold to the session's
// agent-action counters.
func (r *Registry) RecordHold(callID string, d time.Duration) error {
	s, err := r.get(callID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Status == contracts.StatusCompleted {
		return fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}
	s.data.HoldTime += d
	return nil
}

// RecordTransfer counts a call transfer against the session.
func (r *Registry) RecordTransfer(callID string) error {
	s, err := r.get(callID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Status == contracts.StatusCompleted {
		return fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}
	s.data.Transfers++
	return nil
}

// GetAgentMetrics aggregates the agent's recorded quality metrics over the
// given window.
func (r *Registry) GetAgentMetrics(agentID string, windowDays int) metrics.AggregateMetrics {
	return r.quality.AgentMetrics(agentID, windowDays)
}

// GetForManagerReview returns the review package for a completed call, or
// an in-progress view of a still-active call. The in-progress view reports
// the elapsed duration so far and a provisional quality metric; it is not
// recorded anywhere.
func (r *Registry) GetForManagerReview(callID string) (*contracts.ReviewPackage, error) {
	pkg, err := r.archive.GetForReview(callID)
	if err == nil {
		return pkg, nil
	}
	if !errors.Is(err, history.ErrCallNotFound) {
		return nil, err
	}

	s, err := r.get(callID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.data.Status == contracts.StatusCompleted {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}
	snap := snapshot(s.data)
	s.mu.Unlock()

	snap.Duration = r.clock().Sub(snap.StartTime)
	metric := r.quality.Assess(&snap, contracts.CallSummary{})
	return history.Review(&snap, metric, contracts.CallSummary{}), nil
}
