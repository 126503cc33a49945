// Package routing defines the external collaborators the call engine
// depends on: agent availability, outbound authorization, and the
// manager-escalation sink.
package routing

import (
	"context"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// AgentDirectory assigns an available agent to an inbound call. When no
// agent is free the call is queued, never failed, so implementations report
// unavailability rather than errors; transient backend failures count as
// unavailability.
type AgentDirectory interface {
	// NextAvailable claims a free agent, marking it busy. ok is false when
	// no agent can be claimed.
	NextAvailable(ctx context.Context) (agentID string, ok bool)
	// Release marks the agent available again.
	Release(ctx context.Context, agentID string)
}

// StaticDirectory is an in-memory AgentDirectory. Agents are claimed in
// stable id order so assignment is deterministic.
type StaticDirectory struct {
	mu        sync.Mutex
	available map[string]bool
}

// NewStaticDirectory creates a directory with the given agents available.
func NewStaticDirectory(agentIDs ...string) *StaticDirectory {
	d := &StaticDirectory{available: make(map[string]bool, len(agentIDs))}
	for _, id := range agentIDs {
		d.available[id] = true
	}
	return d
}

// SetAvailable adds or removes an agent from the pool.
func (d *StaticDirectory) SetAvailable(agentID string, available bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if available {
		d.available[agentID] = true
	} else {
		delete(d.available, agentID)
	}
}

func (d *StaticDirectory) NextAvailable(_ context.Context) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.available))
	for id := range d.available {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return "", false
	}
	sort.Strings(ids)
	delete(d.available, ids[0])
	return ids[0], true
}

func (d *StaticDirectory) Release(_ context.Context, agentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.available[agentID] = true
}

// RedisDirectory shares agent presence across processes through a Redis
// set. Claiming pops a member; releasing re-adds it.
type RedisDirectory struct {
	client *redis.Client
	key    string
}

// NewRedisDirectory creates a directory backed by Redis at addr.
func NewRedisDirectory(addr, password string, db int) *RedisDirectory {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisDirectory{client: rdb, key: "callcore:agents:available"}
}

// SetAvailable adds or removes an agent from the shared pool.
func (d *RedisDirectory) SetAvailable(ctx context.Context, agentID string, available bool) error {
	if available {
		return d.client.SAdd(ctx, d.key, agentID).Err()
	}
	return d.client.SRem(ctx, d.key, agentID).Err()
}

func (d *RedisDirectory) NextAvailable(ctx context.Context) (string, bool) {
	agentID, err := d.client.SPop(ctx, d.key).Result()
	if err != nil {
		// redis.Nil (empty pool) and transient failures both queue the call.
		return "", false
	}
	return agentID, true
}

func (d *RedisDirectory) Release(ctx context.Context, agentID string) {
	_ = d.client.SAdd(ctx, d.key, agentID).Err()
}
