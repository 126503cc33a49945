package contracts

import (
	"time"
)

// StageTiming reports how long a completed call spent in one stage.
type StageTiming struct {
	Stage    Stage         `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// WorkflowAnalysis summarizes workflow execution for manager review.
type WorkflowAnalysis struct {
	StagesCompleted   []Stage       `json:"stages_completed"`
	StageTimings      []StageTiming `json:"stage_timings"`
	WorkflowCompleted bool          `json:"workflow_completed"`
}

// DLPAnalysis summarizes DLP compliance for manager review.
type DLPAnalysis struct {
	PassedChecks          int               `json:"passed_checks"`
	FailedChecks          int               `json:"failed_checks"`
	Violations            []ViolationRecord `json:"violations"`
	AdminVerificationUsed bool              `json:"admin_verification_used"`
	Compliant             bool              `json:"compliant"`
}

// ReviewPackage is everything a manager needs to review a completed call.
type ReviewPackage struct {
	CallID     string            `json:"call_id"`
	CallDate   time.Time         `json:"call_date"`
	AgentID    string            `json:"agent_id"`
	Direction  Direction         `json:"direction"`
	Duration   time.Duration     `json:"duration"`
	Transcript []TranscriptEntry `json:"transcript"`
	Workflow   WorkflowAnalysis  `json:"workflow"`
	DLP        DLPAnalysis       `json:"dlp"`
	Metric     QualityMetric     `json:"metric"`
	Summary    CallSummary       `json:"summary"`
}
