package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var (
	_ port.CacheRepository = (*MemoryCache)(nil)
	_ port.ChatBroker      = (*MemoryCache)(nil)
)

// MemoryCache stands in for Redis when the server runs without one. Chat
// fan-out only reaches subscribers in the same process.
type MemoryCache struct {
	mu       sync.Mutex
	keys     map[string]time.Time // key -> expiry, zero means none
	locks    map[string]string    // lock key -> token
	sessions map[string]string
	subs     map[string]map[chan domain.ChatEvent]struct{}
	now      func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		keys:     map[string]time.Time{},
		locks:    map[string]string{},
		sessions: map[string]string{},
		subs:     map[string]map[chan domain.ChatEvent]struct{}{},
		now:      time.Now,
	}
}

func (c *MemoryCache) live(key string) bool {
	exp, ok := c.keys[key]
	if !ok {
		return false
	}
	if !exp.IsZero() && !c.now().Before(exp) {
		delete(c.keys, key)
		return false
	}
	return true
}

func (c *MemoryCache) AcquireLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key = lockKeyPrefix + key
	if c.live(key) {
		return "", false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	token := uuid.NewString()
	c.keys[key] = exp
	c.locks[key] = token
	return token, true, nil
}

func (c *MemoryCache) ReleaseLock(_ context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key = lockKeyPrefix + key
	if c.live(key) && c.locks[key] == token {
		delete(c.keys, key)
		delete(c.locks, key)
	}
	return nil
}

func (c *MemoryCache) SessionBasket(_ context.Context, sessionID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[sessionID], nil
}

func (c *MemoryCache) SetSessionBasket(_ context.Context, sessionID, basketID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[sessionID] = basketID
	return nil
}

func (c *MemoryCache) ClearSessionBasket(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	return nil
}

func (c *MemoryCache) Publish(_ context.Context, room string, event domain.ChatEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range c.subs[room] {
		select {
		case ch <- event:
		default:
			// slow subscriber, drop
		}
	}
	return nil
}

func (c *MemoryCache) Subscribe(ctx context.Context, room string) (<-chan domain.ChatEvent, func() error, error) {
	ch := make(chan domain.ChatEvent, 64)

	c.mu.Lock()
	if c.subs[room] == nil {
		c.subs[room] = map[chan domain.ChatEvent]struct{}{}
	}
	c.subs[room][ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	closeFn := func() error {
		once.Do(func() {
			close(done)
			c.mu.Lock()
			delete(c.subs[room], ch)
			if len(c.subs[room]) == 0 {
				delete(c.subs, room)
			}
			close(ch)
			c.mu.Unlock()
		})
		return nil
	}

	go func() {
		select {
		case <-ctx.Done():
			closeFn()
		case <-done:
		}
	}()

	return ch, closeFn, nil
}

func (c *MemoryCache) Heartbeat(_ context.Context, room, participant string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[heartbeatKey(room, participant)] = c.now().Add(ttl)
	return nil
}

// Present reports whether a participant sent a heartbeat recently.
func (c *MemoryCache) Present(room, participant string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live(heartbeatKey(room, participant))
}
