// Package contracts defines the shared types exchanged between the
// call-handling engine's components: sessions, transcripts, DLP findings,
// verification attempts, workflow stages, and quality metrics.
package contracts

import "time"

// Direction indicates who originated the call.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// CallStatus is the lifecycle status of a call session.
type CallStatus string

const (
	StatusRinging   CallStatus = "ringing"
	StatusQueued    CallStatus = "queued"
	StatusConnected CallStatus = "connected"
	StatusCompleted CallStatus = "completed"
)

// Speaker identifies which side of the call produced an utterance.
type Speaker string

const (
	SpeakerAgent  Speaker = "agent"
	SpeakerCaller Speaker = "caller"
)

// StageTransition records one advance through the call workflow.
type StageTransition struct {
	From      Stage         `json:"from"`
	To        Stage         `json:"to"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"` // time spent in From
}

// TranscriptEntry is a single utterance in the call transcript.
// Entries are immutable once appended; flagged text is stored redacted.
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	DLPPassed bool      `json:"dlp_passed"`
}

// CallSession is the full state of one call. The registry owns a session
// exclusively while it is active; on completion ownership moves to the
// history store and the session becomes immutable.
type CallSession struct {
	ID               string    `json:"id"`
	Direction        Direction `json:"direction"`
	AgentID          string    `json:"agent_id"`
	CounterpartyID   string    `json:"counterparty_id"` // caller id or dialed number
	CounterpartyName string    `json:"counterparty_name,omitempty"`
	CalledNumber     string    `json:"called_number,omitempty"`
	Purpose          string    `json:"purpose,omitempty"`
	ContextNotes     string    `json:"context_notes,omitempty"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time,omitzero"`
	Duration  time.Duration `json:"duration"`
	Status    CallStatus    `json:"status"`

	Stage            Stage             `json:"stage"`
	StageStartTime   time.Time         `json:"stage_start_time"`
	StageTransitions []StageTransition `json:"stage_transitions"`

	Transcript []TranscriptEntry `json:"transcript"`

	ChecksPassed int               `json:"checks_passed"`
	ChecksFailed int               `json:"checks_failed"`
	Violations   []ViolationRecord `json:"violations"`

	VerificationAttempts []VerificationAttempt `json:"verification_attempts"`
	VerificationPassed   bool                  `json:"verification_passed"`
	VerificationLocked   bool                  `json:"verification_locked"`

	HoldTime  time.Duration `json:"hold_time"`
	Transfers int           `json:"transfers"`
}

// CallSummary is the agent-supplied completion report for a call.
type CallSummary struct {
	IssueResolved        bool   `json:"issue_resolved"`
	EscalationRequired   bool   `json:"escalation_required"`
	CustomerSatisfaction int    `json:"customer_satisfaction,omitempty"`
	AgentNotes           string `json:"agent_notes,omitempty"`
}

// DLPSummary condenses a session's DLP outcome for the completion report.
type DLPSummary struct {
	ViolationsDetected  int  `json:"violations_detected"`
	ChecksPassed        int  `json:"checks_passed"`
	Compliant           bool `json:"compliant"`
	AdminAccessRequired bool `json:"admin_access_required"`
}

// CompletionReport is returned by CompleteCall once a session is finalized.
type CompletionReport struct {
	CallID   string        `json:"call_id"`
	AgentID  string        `json:"agent_id"`
	Duration time.Duration `json:"duration"`
	Metric   QualityMetric `json:"metric"`
	DLP      DLPSummary    `json:"dlp"`
}
