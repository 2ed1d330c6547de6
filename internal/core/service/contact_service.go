package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
)

const maxContactMessage = 5000

type ContactService struct {
	notifier *NotificationService
	to       string
}

func NewContactService(notifier *NotificationService, customerServiceEmail string) *ContactService {
	return &ContactService{notifier: notifier, to: customerServiceEmail}
}

// Send forwards a contact form to customer service.
func (s *ContactService) Send(_ context.Context, name, message string) error {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)
	if name == "" || message == "" || len(message) > maxContactMessage {
		return fmt.Errorf("%w: name and message are required", ErrInvalidInput)
	}
	return s.notifier.Enqueue(domain.Mail{
		To:      s.to,
		Subject: "Message from " + name,
		Body:    message,
	})
}
