package contracts

import "time"

// Category classifies the kind of sensitive data a DLP rule matches.
type Category string

const (
	CategoryBanking      Category = "banking"
	CategoryPersonal     Category = "personal"
	CategoryMedical      Category = "medical"
	CategoryConfidential Category = "confidential"
)

// Severity is the blocking tier of a DLP finding. Critical findings block
// and escalate; high findings warn or mute without forced escalation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityNone     Severity = "none"
)

// ScanResult is the outcome of scanning one utterance.
type ScanResult struct {
	ViolationsFound bool     `json:"violations_found"`
	Category        Category `json:"category,omitempty"`
	Severity        Severity `json:"severity"`
	Reason          string   `json:"reason,omitempty"`
}

// ViolationRecord is an append-only audit record of one DLP hit.
type ViolationRecord struct {
	Category  Category  `json:"category"`
	Severity  Severity  `json:"severity"`
	Speaker   Speaker   `json:"speaker"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// UtteranceAction is the directive the engine issues after a DLP hit.
type UtteranceAction string

const (
	ActionNone              UtteranceAction = ""
	ActionMuteAgent         UtteranceAction = "mute-agent"
	ActionRequireAdminCheck UtteranceAction = "require-admin-verification"
)

// UtteranceResult is returned for every processed utterance. A critical
// finding surfaces here as an action directive, never as an error.
type UtteranceResult struct {
	Success                bool            `json:"success"`
	DLPCheckPassed         bool            `json:"dlp_check_passed"`
	Action                 UtteranceAction `json:"action,omitempty"`
	Category               Category        `json:"category,omitempty"`
	EscalateToManager      bool            `json:"escalate_to_manager"`
	NeedsAdminVerification bool            `json:"needs_admin_verification"`
	Message                string          `json:"message,omitempty"`
}
