package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linedesk/callcore/pkg/audit"
	"github.com/linedesk/callcore/pkg/contracts"
)

// OutboundContext carries the agent-supplied context for an outbound call.
type OutboundContext struct {
	TargetName   string
	Purpose      string
	ContextNotes string
}

// HandleInboundCall creates a session for an incoming call and tries to
// assign an available agent. It never fails on valid input: when no agent
// is free the call is queued with DLP monitoring already armed.
func (r *Registry) HandleInboundCall(ctx context.Context, callerID, callerName, calledNumber string) (contracts.CallSession, error) {
	now := r.clock()
	data := &contracts.CallSession{
		ID:               newCallID(),
		Direction:        contracts.DirectionInbound,
		CounterpartyID:   callerID,
		CounterpartyName: callerName,
		CalledNumber:     calledNumber,
		StartTime:        now,
		Status:           contracts.StatusRinging,
		Stage:            contracts.StageInitial,
		StageStartTime:   now,
	}

	if agentID, ok := r.directory.NextAvailable(ctx); ok {
		data.AgentID = agentID
		data.Status = contracts.StatusConnected
		_ = r.auditLog.Record(ctx, audit.EventCallRouted, data.ID, agentID, nil)
	} else {
		data.Status = contracts.StatusQueued
		_ = r.auditLog.Record(ctx, audit.EventCallQueued, data.ID, "", nil)
	}

	r.mu.Lock()
	r.active[data.ID] = &session{data: data}
	r.mu.Unlock()

	return snapshot(data), nil
}

// InitiateOutboundCall validates the agent's outbound permission and the
// target number, then creates the session.
func (r *Registry) InitiateOutboundCall(ctx context.Context, agentID, targetNumber string, callCtx OutboundContext) (contracts.CallSession, error) {
	if !validPhoneNumber(targetNumber) {
		return contracts.CallSession{}, fmt.Errorf("%w: invalid phone number format %q", ErrValidation, targetNumber)
	}
	if !r.authorizer.AllowOutbound(ctx, agentID) {
		return contracts.CallSession{}, fmt.Errorf("%w: %s", ErrPermission, agentID)
	}
	if !r.allowDial(agentID) {
		return contracts.CallSession{}, fmt.Errorf("%w: %s", ErrDialRateLimited, agentID)
	}

	now := r.clock()
	data := &contracts.CallSession{
		ID:               newCallID(),
		Direction:        contracts.DirectionOutbound,
		AgentID:          agentID,
		CounterpartyID:   normalizePhoneNumber(targetNumber),
		CounterpartyName: callCtx.TargetName,
		Purpose:          callCtx.Purpose,
		ContextNotes:     callCtx.ContextNotes,
		StartTime:        now,
		Status:           contracts.StatusRinging,
		Stage:            contracts.StageInitial,
		StageStartTime:   now,
	}

	r.mu.Lock()
	r.active[data.ID] = &session{data: data}
	r.mu.Unlock()

	_ = r.auditLog.Record(ctx, audit.EventOutboundInitiated, data.ID, agentID, map[string]interface{}{
		"target": data.CounterpartyID,
	})

	return snapshot(data), nil
}

// CompleteCall finalizes a session exactly once: it freezes timestamps,
// derives the quality metric, archives the session, and removes it from
// the active set. Any later operation on the call id, including a second
// CompleteCall, fails with ErrCallNotFound.
func (r *Registry) CompleteCall(ctx context.Context, callID string, summary contracts.CallSummary) (contracts.CompletionReport, error) {
	ctx, span := r.obs.StartSpan(ctx, "registry.CompleteCall", callID)
	defer span.End()

	s, err := r.get(callID)
	if err != nil {
		return contracts.CompletionReport{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Status == contracts.StatusCompleted {
		return contracts.CompletionReport{}, fmt.Errorf("%w: %s already completed", ErrCallNotFound, callID)
	}

	now := r.clock()
	prevStatus := s.data.Status
	s.data.EndTime = now
	s.data.Duration = now.Sub(s.data.StartTime)
	s.data.Status = contracts.StatusCompleted

	metric := r.quality.Assess(s.data, summary)

	// Ownership moves to the archive; the registry drops its reference and
	// the completed session is never mutated again. On archive failure the
	// session rolls back and stays active so completion can be retried.
	if err := r.archive.Archive(s.data, metric, summary); err != nil {
		s.data.EndTime = time.Time{}
		s.data.Duration = 0
		s.data.Status = prevStatus
		return contracts.CompletionReport{}, fmt.Errorf("archive call %s: %w", callID, err)
	}

	r.quality.Record(metric)

	r.mu.Lock()
	delete(r.active, callID)
	r.mu.Unlock()

	if s.data.AgentID != "" {
		r.directory.Release(ctx, s.data.AgentID)
	}

	report := contracts.CompletionReport{
		CallID:   callID,
		AgentID:  s.data.AgentID,
		Duration: s.data.Duration,
		Metric:   metric,
		DLP: contracts.DLPSummary{
			ViolationsDetected:  s.data.ChecksFailed,
			ChecksPassed:        s.data.ChecksPassed,
			Compliant:           s.data.ChecksFailed == 0,
			AdminAccessRequired: len(s.data.VerificationAttempts) > 0,
		},
	}

	_ = r.auditLog.Record(ctx, audit.EventCallCompleted, callID, s.data.AgentID, map[string]interface{}{
		"duration_ms":   s.data.Duration.Milliseconds(),
		"quality_score": metric.Score,
	})
	r.obs.RecordCompletion(ctx, s.data.Duration, metric.Score)

	return report, nil
}

func newCallID() string {
	return "call_" + uuid.New().String()
}
