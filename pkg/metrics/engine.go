// Package metrics derives per-call quality scores and per-agent aggregates
// from completed call sessions.
package metrics

import (
	"sync"
	"time"

	"github.com/linedesk/callcore/pkg/contracts"
)

// Trend labels the direction of an agent metric over the window.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendNone      Trend = "none"
)

// AggregateMetrics summarizes an agent's completed calls over a window.
type AggregateMetrics struct {
	AgentID     string    `json:"agent_id"`
	PeriodDays  int       `json:"period_days"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalCalls    int `json:"total_calls"`
	InboundCalls  int `json:"inbound_calls"`
	OutboundCalls int `json:"outbound_calls"`

	AverageScore    float64       `json:"average_score"`
	AverageDuration time.Duration `json:"average_duration"`

	ViolationFreeRatio      float64 `json:"violation_free_ratio"`
	TotalViolations         int     `json:"total_violations"`
	WorkflowCompletionRatio float64 `json:"workflow_completion_ratio"`
	IssueResolutionRatio    float64 `json:"issue_resolution_ratio"`

	ScoreTrend Trend `json:"score_trend"`
}

// Score computes the quality score for a finished session: start at 100,
// minus 10 per failed DLP check, minus 15 if the workflow never reached
// completion, plus 10 for a resolved issue, minus 5 for a required
// escalation, clamped to [0,100].
func Score(sess *contracts.CallSession, summary contracts.CallSummary) int {
	score := 100

	score -= sess.ChecksFailed * 10

	if sess.Stage != contracts.StageCompletion {
		score -= 15
	}
	if summary.IssueResolved {
		score += 10
	}
	if summary.EscalationRequired {
		score -= 5
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Engine records per-call metrics and answers per-agent aggregate queries.
type Engine struct {
	mu      sync.RWMutex
	byAgent map[string][]contracts.QualityMetric
	clock   func() time.Time
}

// NewEngine creates an empty metrics engine.
func NewEngine() *Engine {
	return &Engine{
		byAgent: make(map[string][]contracts.QualityMetric),
		clock:   time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Assess derives the quality metric for a session without recording it.
func (e *Engine) Assess(sess *contracts.CallSession, summary contracts.CallSummary) contracts.QualityMetric {
	return contracts.QualityMetric{
		CallID:    sess.ID,
		AgentID:   sess.AgentID,
		Direction: sess.Direction,
		Timestamp: e.clock(),
		Duration:  sess.Duration,

		StagesCompleted:   len(sess.StageTransitions),
		WorkflowCompleted: sess.Stage == contracts.StageCompletion,

		DLPViolations: sess.ChecksFailed,
		DLPCompliant:  sess.ChecksFailed == 0,

		IssueResolved:        summary.IssueResolved,
		EscalationRequired:   summary.EscalationRequired,
		CustomerSatisfaction: summary.CustomerSatisfaction,

		Score: Score(sess, summary),
	}
}

// Record adds a metric to the agent's recorded history.
func (e *Engine) Record(metric contracts.QualityMetric) {
	e.mu.Lock()
	e.byAgent[metric.AgentID] = append(e.byAgent[metric.AgentID], metric)
	e.mu.Unlock()
}

// Evaluate derives the quality metric for a finished session and records it
// against the session's agent.
func (e *Engine) Evaluate(sess *contracts.CallSession, summary contracts.CallSummary) contracts.QualityMetric {
	metric := e.Assess(sess, summary)
	e.Record(metric)
	return metric
}

// AgentMetrics aggregates the agent's metrics recorded within the last
// windowDays days.
func (e *Engine) AgentMetrics(agentID string, windowDays int) AggregateMetrics {
	now := e.clock()
	cutoff := now.AddDate(0, 0, -windowDays)

	e.mu.RLock()
	var recent []contracts.QualityMetric
	for _, m := range e.byAgent[agentID] {
		if !m.Timestamp.Before(cutoff) {
			recent = append(recent, m)
		}
	}
	e.mu.RUnlock()

	agg := AggregateMetrics{
		AgentID:     agentID,
		PeriodDays:  windowDays,
		GeneratedAt: now,
		TotalCalls:  len(recent),
		ScoreTrend:  TrendNone,
	}
	if len(recent) == 0 {
		return agg
	}

	var scoreSum, violationFree, completed, resolved int
	var durationSum time.Duration
	for _, m := range recent {
		scoreSum += m.Score
		durationSum += m.Duration
		agg.TotalViolations += m.DLPViolations
		if m.Direction == contracts.DirectionInbound {
			agg.InboundCalls++
		} else {
			agg.OutboundCalls++
		}
		if m.DLPCompliant {
			violationFree++
		}
		if m.WorkflowCompleted {
			completed++
		}
		if m.IssueResolved {
			resolved++
		}
	}

	n := float64(len(recent))
	agg.AverageScore = float64(scoreSum) / n
	agg.AverageDuration = durationSum / time.Duration(len(recent))
	agg.ViolationFreeRatio = float64(violationFree) / n
	agg.WorkflowCompletionRatio = float64(completed) / n
	agg.IssueResolutionRatio = float64(resolved) / n
	agg.ScoreTrend = scoreTrend(recent)

	return agg
}

// scoreTrend compares the mean score of the first half of the window to the
// second half. Fewer than two data points carry no trend.
func scoreTrend(ms []contracts.QualityMetric) Trend {
	if len(ms) < 2 {
		return TrendNone
	}
	mid := len(ms) / 2
	first := meanScore(ms[:mid])
	second := meanScore(ms[mid:])
	switch {
	case second > first:
		return TrendImproving
	case second < first:
		return TrendDeclining
	default:
		return TrendNone
	}
}

func meanScore(ms []contracts.QualityMetric) float64 {
	var sum int
	for _, m := range ms {
		sum += m.Score
	}
	return float64(sum) / float64(len(ms))
}
