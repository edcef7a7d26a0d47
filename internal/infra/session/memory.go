// Package session implements chat/port.SessionStore: an in-process store
// on the TTL cache and a Redis store for multi-instance deployments.
package session

import (
	"context"
	"time"

	chatdomain "github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/cache"
)

// Memory keeps sessions in the generic TTL cache. Each Put refreshes the
// inactivity TTL. Values are cloned in and out so callers never share state.
type Memory struct {
	cache *cache.InMemory[*chatdomain.SessionContext]
}

// NewMemory creates a memory store evicting sessions idle for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{cache: cache.New[*chatdomain.SessionContext](ttl)}
}

func (m *Memory) Get(_ context.Context, id string) (*chatdomain.SessionContext, error) {
	sc, ok := m.cache.Get(id)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	return sc.Clone(), nil
}

func (m *Memory) Put(_ context.Context, sc *chatdomain.SessionContext) error {
	m.cache.Set(sc.SessionID, sc.Clone())
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// Len returns the number of live sessions.
func (m *Memory) Len() int { return m.cache.Len() }

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close stops the cache janitor.
func (m *Memory) Close() error {
	m.cache.Close()
	return nil
}
