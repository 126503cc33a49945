package contracts

import "time"

// QualityMetric is the per-call quality record derived at completion.
// It is never stored independently of the completed session.
type QualityMetric struct {
	CallID    string        `json:"call_id"`
	AgentID   string        `json:"agent_id"`
	Direction Direction     `json:"direction"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`

	StagesCompleted   int  `json:"stages_completed"`
	WorkflowCompleted bool `json:"workflow_completed"`

	DLPViolations int  `json:"dlp_violations"`
	DLPCompliant  bool `json:"dlp_compliant"`

	IssueResolved        bool `json:"issue_resolved"`
	EscalationRequired   bool `json:"escalation_required"`
	CustomerSatisfaction int  `json:"customer_satisfaction"`

	// Score is clamped to [0,100].
	Score int `json:"score"`
}
