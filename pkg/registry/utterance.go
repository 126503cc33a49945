package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/linedesk/callcore/pkg/audit"
	"github.com/linedesk/callcore/pkg/contracts"
	"github.com/linedesk/callcore/pkg/dlp"
	"github.com/linedesk/callcore/pkg/routing"
	"github.com/linedesk/callcore/pkg/verification"
)

// ProcessUtterance runs one transcribed utterance through the DLP hot path.
// Scan, counter updates, and transcript/violation appends happen atomically
// under the session lock, so a second utterance can never slip in between a
// critical finding and its verification requirement.
func (r *Registry) ProcessUtterance(ctx context.Context, callID, text string, speaker contracts.Speaker) (contracts.UtteranceResult, error) {
	ctx, span := r.obs.StartSpan(ctx, "registry.ProcessUtterance", callID)
	defer span.End()

	s, err := r.get(callID)
	if err != nil {
		return contracts.UtteranceResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Status == contracts.StatusCompleted {
		return contracts.UtteranceResult{}, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}

	now := r.clock()
	scan := r.scanner.Scan(text)

	if !scan.ViolationsFound {
		s.data.ChecksPassed++
		s.data.Transcript = append(s.data.Transcript, contracts.TranscriptEntry{
			Speaker:   speaker,
			Timestamp: now,
			Text:      text,
			DLPPassed: true,
		})
		_ = r.auditLog.Record(ctx, audit.EventSpeechProcessed, callID, s.data.AgentID, map[string]interface{}{
			"speaker":    string(speaker),
			"dlp_result": "PASSED",
		})
		r.obs.RecordUtterance(ctx, true)
		return contracts.UtteranceResult{
			Success:        true,
			DLPCheckPassed: true,
			Message:        "Speech processed successfully",
		}, nil
	}

	s.data.ChecksFailed++
	s.data.Violations = append(s.data.Violations, contracts.ViolationRecord{
		Category:  scan.Category,
		Severity:  scan.Severity,
		Speaker:   speaker,
		Reason:    scan.Reason,
		Timestamp: now,
	})
	s.data.Transcript = append(s.data.Transcript, contracts.TranscriptEntry{
		Speaker:   speaker,
		Timestamp: now,
		Text:      dlp.RedactedText,
		DLPPassed: false,
	})
	_ = r.auditLog.Record(ctx, audit.EventSpeechProcessed, callID, s.data.AgentID, map[string]interface{}{
		"speaker":    string(speaker),
		"dlp_result": "FAILED",
		"category":   string(scan.Category),
		"severity":   string(scan.Severity),
	})
	r.obs.RecordUtterance(ctx, false)
	r.obs.RecordViolation(ctx, string(scan.Category), string(scan.Severity))

	if speaker == contracts.SpeakerAgent {
		escalate := scan.Severity == contracts.SeverityCritical
		msg := "DLP violation detected. Agent warned."
		if escalate {
			msg = "Critical DLP violation detected. Agent muted. Escalating to manager."
			r.notifier.Escalate(ctx, routing.Escalation{
				CallID:   callID,
				AgentID:  s.data.AgentID,
				Severity: scan.Severity,
				Reason:   scan.Reason,
			})
			r.obs.RecordEscalation(ctx, "agent_dlp_violation")
		}
		return contracts.UtteranceResult{
			Action:            contracts.ActionMuteAgent,
			Category:          scan.Category,
			EscalateToManager: escalate,
			Message:           msg,
		}, nil
	}

	if scan.Severity == contracts.SeverityCritical {
		return contracts.UtteranceResult{
			Action:                 contracts.ActionRequireAdminCheck,
			Category:               scan.Category,
			NeedsAdminVerification: true,
			Message:                "Caller mentioned sensitive information. Agent must verify admin passphrase before proceeding.",
		}, nil
	}

	// Non-critical caller-side hit: logged and redacted but unblocked.
	return contracts.UtteranceResult{
		Success:  true,
		Category: scan.Category,
		Message:  "Speech processed and DLP violation logged",
	}, nil
}

// VerifyAdminPassphrase runs one verbal verification attempt for the call.
// The stored credential digest is resolved through the credential store.
// After three failed attempts the session is locked and every further call
// fails with ErrVerificationLocked without recording an attempt.
func (r *Registry) VerifyAdminPassphrase(ctx context.Context, callID, agentID, spokenPassphrase string) (contracts.VerificationResult, error) {
	ctx, span := r.obs.StartSpan(ctx, "registry.VerifyAdminPassphrase", callID)
	defer span.End()

	s, err := r.get(callID)
	if err != nil {
		return contracts.VerificationResult{}, err
	}

	storedDigest, err := r.credentials.DigestFor(ctx, agentID)
	if err != nil {
		return contracts.VerificationResult{}, fmt.Errorf("resolve credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Status == contracts.StatusCompleted {
		return contracts.VerificationResult{}, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}

	result, err := verification.Verify(s.data, agentID, spokenPassphrase, storedDigest, r.digester, r.clock())
	if err != nil {
		if errors.Is(err, verification.ErrLocked) {
			_ = r.auditLog.Record(ctx, audit.EventVerificationLocked, callID, agentID, nil)
		}
		return result, err
	}

	switch {
	case result.Verified:
		_ = r.auditLog.Record(ctx, audit.EventVerificationPassed, callID, agentID, nil)
	case result.EscalateToManager:
		_ = r.auditLog.Record(ctx, audit.EventVerificationFailed, callID, agentID, map[string]interface{}{
			"attempt": len(s.data.VerificationAttempts),
			"locked":  true,
		})
		r.notifier.Escalate(ctx, routing.Escalation{
			CallID:   callID,
			AgentID:  agentID,
			Severity: contracts.SeverityCritical,
			Reason:   "admin verification failed after 3 attempts",
		})
		r.obs.RecordEscalation(ctx, "verification_lockout")
	default:
		_ = r.auditLog.Record(ctx, audit.EventVerificationFailed, callID, agentID, map[string]interface{}{
			"attempt": len(s.data.VerificationAttempts),
		})
	}

	return result, nil
}
