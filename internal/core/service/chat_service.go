package service

import (
	"context"
	"strings"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	heartbeatTTL   = 10 * time.Second
	maxChatMessage = 2000
)

type ChatService struct {
	db     port.DatabaseRepository
	broker port.ChatBroker
}

func NewChatService(db port.DatabaseRepository, broker port.ChatBroker) *ChatService {
	return &ChatService{db: db, broker: broker}
}

// ChatSession is one participant connected to an order's chat room.
// Username is what others see; presence is tracked per UserID.
type ChatSession struct {
	Room     string
	UserID   string
	Username string
	Employee bool

	broker port.ChatBroker
}

// Join admits the actor to the chat of an order. Only employees and the
// customer who placed the order get in; an employee joining becomes the
// order's last contact. The room hears of the join once the session calls
// Enter.
func (s *ChatService) Join(ctx context.Context, actor Actor, orderID string) (*ChatSession, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	user, err := s.db.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUnauthenticated
	}
	order, err := s.db.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	employee := user.IsEmployee() || user.IsSuperuser
	if !employee && order.UserID != user.ID {
		return nil, ErrForbidden
	}
	if employee {
		if err := s.db.SetLastSpokenTo(ctx, order.ID, user.ID); err != nil {
			return nil, err
		}
	}

	return &ChatSession{
		Room:     domain.ChatRoom(order.ID),
		UserID:   user.ID,
		Username: user.FullName(),
		Employee: employee,
		broker:   s.broker,
	}, nil
}

func (c *ChatSession) publish(ctx context.Context, t domain.ChatEventType, msg string) error {
	return c.broker.Publish(ctx, c.Room, domain.ChatEvent{Type: t, Username: c.Username, Message: msg})
}

// Enter subscribes to the room and then announces the join, so the joining
// participant sees its own chat_join first. Events stream until ctx ends or
// the returned close function runs.
func (c *ChatSession) Enter(ctx context.Context) (<-chan domain.ChatEvent, func() error, error) {
	events, closeSub, err := c.broker.Subscribe(ctx, c.Room)
	if err != nil {
		return nil, nil, err
	}
	if err := c.publish(ctx, domain.ChatEventJoin, ""); err != nil {
		closeSub()
		return nil, nil, err
	}
	return events, closeSub, nil
}

func (c *ChatSession) Say(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	if len(message) > maxChatMessage {
		return ErrInvalidInput
	}
	return c.publish(ctx, domain.ChatEventMessage, message)
}

func (c *ChatSession) Heartbeat(ctx context.Context) error {
	return c.broker.Heartbeat(ctx, c.Room, c.UserID, heartbeatTTL)
}

func (c *ChatSession) Leave(ctx context.Context) error {
	return c.publish(ctx, domain.ChatEventLeave, "")
}
