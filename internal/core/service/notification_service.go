package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const sendTimeout = 10 * time.Second

var ErrQueueFull = errors.New("notification queue full")

// NotificationService buffers outgoing mail so request handlers never wait
// on SMTP. Workers started with Run drain the queue.
type NotificationService struct {
	queue  chan domain.Mail
	mu     sync.RWMutex
	closed bool
}

func NewNotificationService(queueSize int) *NotificationService {
	return &NotificationService{queue: make(chan domain.Mail, queueSize)}
}

// Enqueue hands a mail to the workers without blocking.
func (s *NotificationService) Enqueue(m domain.Mail) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrQueueFull
	}
	select {
	case s.queue <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *NotificationService) Queue() <-chan domain.Mail {
	return s.queue
}

// Close stops accepting mail. Workers exit once the queue is drained.
func (s *NotificationService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}

// Run starts workerCount workers sending queued mail and returns a function
// that waits for them to finish.
func (s *NotificationService) Run(workerCount int, mailer port.Mailer) (wait func()) {
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for m := range s.queue {
				ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
				if err := mailer.Send(ctx, m.To, m.Subject, m.Body); err != nil {
					log.Printf("mail worker %d: failed to send %q to %s: %v", id, m.Subject, m.To, err)
				} else {
					log.Printf("mail worker %d: sent %q to %s", id, m.Subject, m.To)
				}
				cancel()
			}
		}(i)
	}
	return wg.Wait
}
