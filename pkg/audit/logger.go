// Package audit records the call engine's lifecycle events as structured
// records behind a pluggable sink, replacing ad hoc console logging. Every
// DLP violation and verification attempt is recorded regardless of outcome.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes a call lifecycle event.
type EventType string

const (
	EventCallRouted         EventType = "CALL_ROUTED"
	EventCallQueued         EventType = "CALL_QUEUED"
	EventOutboundInitiated  EventType = "OUTBOUND_INITIATED"
	EventSpeechProcessed    EventType = "SPEECH_PROCESSED"
	EventVerificationPassed EventType = "ADMIN_VERIFICATION_PASSED"
	EventVerificationFailed EventType = "ADMIN_VERIFICATION_FAILED"
	EventVerificationLocked EventType = "ADMIN_VERIFICATION_LOCKED"
	EventWorkflowAdvanced   EventType = "WORKFLOW_ADVANCED"
	EventCallCompleted      EventType = "CALL_COMPLETED"
	EventManagerEscalation  EventType = "MANAGER_ESCALATION"
)

// Event is a structured audit record for one call event.
type Event struct {
	ID        string                 `json:"id"`
	CallID    string                 `json:"call_id"`
	AgentID   string                 `json:"agent_id,omitempty"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Logger records call audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, callID, agentID string, metadata map[string]interface{}) error
}

// logger writes structured JSON events to a configurable Writer.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to the given writer.
// This allows injection for testing and custom sinks.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w}
}

func (l *logger) Record(_ context.Context, eventType EventType, callID, agentID string, metadata map[string]interface{}) error {
	event := Event{
		ID:        uuid.New().String(),
		CallID:    callID,
		AgentID:   agentID,
		Type:      eventType,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// Prefix with AUDIT: for easy filtering
	_, err = l.writer.Write(append([]byte("AUDIT: "), append(bytes, '\n')...))
	return err
}

// Nop returns a Logger that discards every event.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Record(context.Context, EventType, string, string, map[string]interface{}) error {
	return nil
}
