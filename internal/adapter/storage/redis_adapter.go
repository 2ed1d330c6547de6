package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	sessionKeyPrefix  = "session:basket:"
	lockKeyPrefix     = "lock:"
	chatChannelPrefix = "chat:"
)

var (
	_ port.CacheRepository = (*RedisAdapter)(nil)
	_ port.ChatBroker      = (*RedisAdapter)(nil)
)

// releaseLockScript deletes the lock only if it still holds the caller's
// token, so a lock that expired and was taken by another request is left
// alone.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisAdapter struct {
	client     *redis.Client
	sessionTTL time.Duration
	newToken   func() string
}

func NewRedisAdapter(client *redis.Client, sessionTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{
		client:     client,
		sessionTTL: sessionTTL,
		newToken:   uuid.NewString,
	}
}

func (r *RedisAdapter) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := r.newToken()
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisAdapter) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseLockScript.Run(ctx, r.client, []string{lockKeyPrefix + key}, token).Err()
}

func (r *RedisAdapter) SessionBasket(ctx context.Context, sessionID string) (string, error) {
	id, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *RedisAdapter) SetSessionBasket(ctx context.Context, sessionID, basketID string) error {
	return r.client.Set(ctx, sessionKeyPrefix+sessionID, basketID, r.sessionTTL).Err()
}

func (r *RedisAdapter) ClearSessionBasket(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

func (r *RedisAdapter) Publish(ctx context.Context, room string, event domain.ChatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, chatChannelPrefix+room, payload).Err()
}

func (r *RedisAdapter) Subscribe(ctx context.Context, room string) (<-chan domain.ChatEvent, func() error, error) {
	pubsub := r.client.Subscribe(ctx, chatChannelPrefix+room)
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan domain.ChatEvent, 64)
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.ChatEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("chat: dropping malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, pubsub.Close, nil
}

func (r *RedisAdapter) Heartbeat(ctx context.Context, room, participant string, ttl time.Duration) error {
	return r.client.SetEx(ctx, heartbeatKey(room, participant), "1", ttl).Err()
}

func heartbeatKey(room, participant string) string {
	return room + "_" + participant
}
