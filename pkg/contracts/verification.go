package contracts

import "time"

// VerificationAttempt is the append-only record of one passphrase check.
// Attempt numbers are 1-based within a session and capped at three before
// the session is locked.
type VerificationAttempt struct {
	Attempt   int       `json:"attempt"`
	AgentID   string    `json:"agent_id"`
	Matched   bool      `json:"matched"`
	Timestamp time.Time `json:"timestamp"`
}

// VerificationResult is the outcome of a verbal passphrase verification.
type VerificationResult struct {
	Verified          bool   `json:"verified"`
	RemainingAttempts int    `json:"remaining_attempts"`
	EscalateToManager bool   `json:"escalate_to_manager"`
	Message           string `json:"message,omitempty"`
}
