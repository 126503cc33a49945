// Package history archives completed call sessions for manager review.
// Archived calls are keyed by call id and immutable once stored.
package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/linedesk/callcore/pkg/contracts"
)

var (
	// ErrCallNotFound indicates no archived call under the given id.
	ErrCallNotFound = errors.New("call not found in history")
	// ErrAlreadyArchived indicates an attempt to overwrite an archived call.
	ErrAlreadyArchived = errors.New("call already archived")
)

type archivedCall struct {
	session *contracts.CallSession
	metric  contracts.QualityMetric
	summary contracts.CallSummary
}

// Store is the in-memory call archive.
type Store struct {
	mu    sync.RWMutex
	calls map[string]archivedCall
}

// NewStore creates an empty archive.
func NewStore() *Store {
	return &Store{calls: make(map[string]archivedCall)}
}

// Archive stores a completed session. The session must not be modified by
// the caller afterward; ownership moves to the store.
func (s *Store) Archive(sess *contracts.CallSession, metric contracts.QualityMetric, summary contracts.CallSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.calls[sess.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyArchived, sess.ID)
	}
	s.calls[sess.ID] = archivedCall{session: sess, metric: metric, summary: summary}
	return nil
}

// GetForReview assembles the manager-review package for an archived call.
func (s *Store) GetForReview(callID string) (*contracts.ReviewPackage, error) {
	s.mu.RLock()
	ac, ok := s.calls[callID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}
	return Review(ac.session, ac.metric, ac.summary), nil
}

// Len reports the number of archived calls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calls)
}

// Review derives the review package from a session. Stage timings report
// the time spent in each departed stage. The session is usually archived,
// but the same assembly serves in-progress reviews of active calls.
func Review(sess *contracts.CallSession, metric contracts.QualityMetric, summary contracts.CallSummary) *contracts.ReviewPackage {
	wa := contracts.WorkflowAnalysis{
		WorkflowCompleted: sess.Stage == contracts.StageCompletion,
	}
	for _, t := range sess.StageTransitions {
		wa.StagesCompleted = append(wa.StagesCompleted, t.To)
		wa.StageTimings = append(wa.StageTimings, contracts.StageTiming{
			Stage:    t.From,
			Duration: t.Duration,
		})
	}

	verificationUsed := len(sess.VerificationAttempts) > 0

	return &contracts.ReviewPackage{
		CallID:     sess.ID,
		CallDate:   sess.StartTime,
		AgentID:    sess.AgentID,
		Direction:  sess.Direction,
		Duration:   sess.Duration,
		Transcript: sess.Transcript,
		Workflow:   wa,
		DLP: contracts.DLPAnalysis{
			PassedChecks:          sess.ChecksPassed,
			FailedChecks:          sess.ChecksFailed,
			Violations:            sess.Violations,
			AdminVerificationUsed: verificationUsed,
			Compliant:             sess.ChecksFailed == 0,
		},
		Metric:  metric,
		Summary: summary,
	}
}
