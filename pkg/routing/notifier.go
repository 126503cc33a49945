package routing

import (
	"context"

	"github.com/linedesk/callcore/pkg/audit"
	"github.com/linedesk/callcore/pkg/contracts"
)

// Escalation is a manager-escalation event. Escalations are explicit values
// handed to a Notifier; the engine itself performs no notification I/O.
type Escalation struct {
	CallID   string
	AgentID  string
	Severity contracts.Severity
	Reason   string
}

// Notifier delivers manager escalations to an external sink.
type Notifier interface {
	Escalate(ctx context.Context, e Escalation)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, e Escalation)

func (f NotifierFunc) Escalate(ctx context.Context, e Escalation) { f(ctx, e) }

// NopNotifier discards escalations.
func NopNotifier() Notifier {
	return NotifierFunc(func(context.Context, Escalation) {})
}

// AuditNotifier records escalations as MANAGER_ESCALATION audit events.
func AuditNotifier(log audit.Logger) Notifier {
	return NotifierFunc(func(ctx context.Context, e Escalation) {
		_ = log.Record(ctx, audit.EventManagerEscalation, e.CallID, e.AgentID, map[string]interface{}{
			"severity": string(e.Severity),
			"reason":   e.Reason,
		})
	})
}
