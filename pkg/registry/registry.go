// Package registry owns the lifecycle of active call sessions. It is the
// only component that mutates a session: every operation funnels through
// the session's lock, so utterance processing, verification attempts, and
// completion are strictly serialized per call while distinct calls proceed
// in parallel.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/linedesk/callcore/pkg/audit"
	"github.com/linedesk/callcore/pkg/contracts"
	"github.com/linedesk/callcore/pkg/dlp"
	"github.com/linedesk/callcore/pkg/history"
	"github.com/linedesk/callcore/pkg/metrics"
	"github.com/linedesk/callcore/pkg/observability"
	"github.com/linedesk/callcore/pkg/routing"
	"github.com/linedesk/callcore/pkg/verification"
)

var (
	// ErrCallNotFound indicates an unknown or already-completed call id.
	ErrCallNotFound = errors.New("call not found")
	// ErrValidation indicates malformed input or an illegal stage transition.
	ErrValidation = errors.New("validation failed")
	// ErrPermission indicates the agent is not authorized for outbound calls.
	ErrPermission = errors.New("agent not authorized for outbound calls")
	// ErrDialRateLimited indicates the agent exceeded the outbound dial rate.
	ErrDialRateLimited = errors.New("outbound dial rate exceeded")
	// ErrVerificationLocked mirrors the verification package's lockout error.
	ErrVerificationLocked = verification.ErrLocked
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// Archiver persists completed sessions and serves them back for review.
// Both the in-memory and the SQLite history stores satisfy it.
type Archiver interface {
	Archive(sess *contracts.CallSession, metric contracts.QualityMetric, summary contracts.CallSummary) error
	GetForReview(callID string) (*contracts.ReviewPackage, error)
}

// session pairs the call state with its exclusive-access lock.
type session struct {
	mu   sync.Mutex
	data *contracts.CallSession
}

// Registry orchestrates DLP scanning, workflow validation, and admin
// verification for every active call.
type Registry struct {
	mu     sync.RWMutex
	active map[string]*session

	scanner     *dlp.Scanner
	digester    *verification.Digester
	credentials verification.CredentialStore
	directory   routing.AgentDirectory
	authorizer  routing.Authorizer
	notifier    routing.Notifier
	quality     *metrics.Engine
	archive     Archiver
	auditLog    audit.Logger
	obs         *observability.Provider
	clock       func() time.Time

	dialMu       sync.Mutex
	dialLimiters map[string]*rate.Limiter
	dialRate     rate.Limit
	dialBurst    int
}

// Option configures optional registry dependencies.
type Option func(*Registry)

// WithScanner replaces the default DLP scanner.
func WithScanner(s *dlp.Scanner) Option {
	return func(r *Registry) { r.scanner = s }
}

// WithArchiver replaces the default in-memory history store.
func WithArchiver(a Archiver) Option {
	return func(r *Registry) { r.archive = a }
}

// WithQualityEngine replaces the default metrics engine.
func WithQualityEngine(e *metrics.Engine) Option {
	return func(r *Registry) { r.quality = e }
}

// WithAuditLogger sets the audit sink. Defaults to a no-op logger.
func WithAuditLogger(l audit.Logger) Option {
	return func(r *Registry) { r.auditLog = l }
}

// WithNotifier sets the manager-escalation sink.
func WithNotifier(n routing.Notifier) Option {
	return func(r *Registry) { r.notifier = n }
}

// WithObservability attaches tracing and metrics instrumentation.
func WithObservability(p *observability.Provider) Option {
	return func(r *Registry) { r.obs = p }
}

// WithClock overrides the clock for deterministic testing.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithDialLimit throttles outbound dialing per agent. Zero perMinute
// disables the limit.
func WithDialLimit(perMinute, burst int) Option {
	return func(r *Registry) {
		if perMinute <= 0 {
			r.dialRate = rate.Inf
			return
		}
		r.dialRate = rate.Every(time.Minute / time.Duration(perMinute))
		if burst < 1 {
			burst = 1
		}
		r.dialBurst = burst
	}
}

// New creates a Registry wired to its external collaborators. The digester
// and credential store back admin verification; the directory and
// authorizer back call routing. Optional collaborators default to inert
// implementations.
func New(digester *verification.Digester, credentials verification.CredentialStore, directory routing.AgentDirectory, authorizer routing.Authorizer, opts ...Option) *Registry {
	r := &Registry{
		active:       make(map[string]*session),
		scanner:      dlp.NewScanner(nil),
		digester:     digester,
		credentials:  credentials,
		directory:    directory,
		authorizer:   authorizer,
		notifier:     routing.NopNotifier(),
		quality:      metrics.NewEngine(),
		archive:      history.NewStore(),
		auditLog:     audit.Nop(),
		clock:        time.Now,
		dialLimiters: make(map[string]*rate.Limiter),
		dialRate:     rate.Inf,
		dialBurst:    1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ActiveCalls reports the number of sessions currently owned by the registry.
func (r *Registry) ActiveCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// Session returns a snapshot of an active session.
func (r *Registry) Session(callID string) (contracts.CallSession, error) {
	s, err := r.get(callID)
	if err != nil {
		return contracts.CallSession{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Status == contracts.StatusCompleted {
		return contracts.CallSession{}, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}
	return snapshot(s.data), nil
}

// get looks up an active session. Callers must take the session lock and
// re-check the completion status before mutating.
func (r *Registry) get(callID string) (*session, error) {
	r.mu.RLock()
	s, ok := r.active[callID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}
	return s, nil
}

// snapshot deep-copies the session so callers cannot mutate registry state.
func snapshot(c *contracts.CallSession) contracts.CallSession {
	out := *c
	out.StageTransitions = append([]contracts.StageTransition(nil), c.StageTransitions...)
	out.Transcript = append([]contracts.TranscriptEntry(nil), c.Transcript...)
	out.Violations = append([]contracts.ViolationRecord(nil), c.Violations...)
	out.VerificationAttempts = append([]contracts.VerificationAttempt(nil), c.VerificationAttempts...)
	return out
}

// allowDial applies the per-agent outbound rate limit.
func (r *Registry) allowDial(agentID string) bool {
	if r.dialRate == rate.Inf {
		return true
	}
	r.dialMu.Lock()
	lim, ok := r.dialLimiters[agentID]
	if !ok {
		lim = rate.NewLimiter(r.dialRate, r.dialBurst)
		r.dialLimiters[agentID] = lim
	}
	r.dialMu.Unlock()
	return lim.Allow()
}

// normalizePhoneNumber strips separators while keeping a leading plus.
func normalizePhoneNumber(number string) string {
	var b strings.Builder
	for i, r := range number {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validPhoneNumber reports whether the number matches the normalized
// US-centric dial pattern.
func validPhoneNumber(number string) bool {
	return phonePattern.MatchString(normalizePhoneNumber(number))
}
