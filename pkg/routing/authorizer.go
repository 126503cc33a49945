package routing

import (
	"context"
	"sync"
)

// Authorizer decides whether an agent may place outbound calls.
type Authorizer interface {
	AllowOutbound(ctx context.Context, agentID string) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, agentID string) bool

func (f AuthorizerFunc) AllowOutbound(ctx context.Context, agentID string) bool {
	return f(ctx, agentID)
}

// AllowAll authorizes every agent for outbound calls.
func AllowAll() Authorizer {
	return AuthorizerFunc(func(context.Context, string) bool { return true })
}

// StaticAuthorizer authorizes an explicit set of agents.
type StaticAuthorizer struct {
	mu      sync.RWMutex
	allowed map[string]bool
}

// NewStaticAuthorizer creates an authorizer permitting the given agents.
func NewStaticAuthorizer(agentIDs ...string) *StaticAuthorizer {
	a := &StaticAuthorizer{allowed: make(map[string]bool, len(agentIDs))}
	for _, id := range agentIDs {
		a.allowed[id] = true
	}
	return a
}

// Grant permits or revokes outbound calling for an agent.
func (a *StaticAuthorizer) Grant(agentID string, allowed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if allowed {
		a.allowed[agentID] = true
	} else {
		delete(a.allowed, agentID)
	}
}

func (a *StaticAuthorizer) AllowOutbound(_ context.Context, agentID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.allowed[agentID]
}
