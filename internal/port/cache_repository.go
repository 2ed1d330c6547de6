package port

import (
	"context"
	"io"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

type CacheRepository interface {
	// AcquireLock sets key if absent, returns false if someone else holds
	// it. The token identifies this acquisition for ReleaseLock.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// ReleaseLock drops the lock if it is still held under token
	ReleaseLock(ctx context.Context, key, token string) error

	// SessionBasket returns the basket bound to an anonymous session, or ""
	SessionBasket(ctx context.Context, sessionID string) (string, error)

	SetSessionBasket(ctx context.Context, sessionID, basketID string) error

	ClearSessionBasket(ctx context.Context, sessionID string) error
}

type ChatBroker interface {
	Publish(ctx context.Context, room string, event domain.ChatEvent) error

	// Subscribe delivers room events until ctx is done or the returned
	// close function is called.
	Subscribe(ctx context.Context, room string) (<-chan domain.ChatEvent, func() error, error)

	// Heartbeat marks a participant present in a room for ttl
	Heartbeat(ctx context.Context, room, participant string, ttl time.Duration) error
}

// ImageStore keeps uploaded product images and their thumbnails.
type ImageStore interface {
	// Save stores the image read from r and a thumbnail of it, returning
	// both paths relative to the media root.
	Save(ctx context.Context, name string, r io.Reader) (imagePath, thumbnailPath string, err error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
