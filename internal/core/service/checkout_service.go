package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type CheckoutService struct {
	db       port.DatabaseRepository
	cache    port.CacheRepository
	notifier *NotificationService
	lockTTL  time.Duration
	now      func() time.Time
	newID    func() string
}

func NewCheckoutService(db port.DatabaseRepository, cache port.CacheRepository, notifier *NotificationService, lockTTL time.Duration) *CheckoutService {
	return &CheckoutService{
		db:       db,
		cache:    cache,
		notifier: notifier,
		lockTTL:  lockTTL,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type ConvertInput struct {
	BasketID          string
	BillingAddressID  string
	ShippingAddressID string
	// UserID, when set, must own the basket.
	UserID string
}

func checkoutLockKey(basketID string) string {
	return "checkout:" + basketID
}

// Convert turns an open basket into an order. The order, its lines and the
// basket status flip are written in one transaction; a basket that is
// already being converted or was already submitted is rejected.
func (s *CheckoutService) Convert(ctx context.Context, in ConvertInput) (*domain.Order, error) {
	if in.BasketID == "" {
		return nil, ErrBasketNotFound
	}
	key := checkoutLockKey(in.BasketID)
	token, ok, err := s.cache.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}
	defer func() {
		if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			log.Printf("checkout: failed to release lock for basket %s: %v", in.BasketID, err)
		}
	}()

	var order domain.Order
	err = s.db.WithinTx(ctx, func(tx port.Repository) error {
		b, err := tx.GetBasket(ctx, in.BasketID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBasketNotFound
		}
		if b.IsAnonymous() {
			return ErrBasketHasNoOwner
		}
		if in.UserID != "" && b.UserID != in.UserID {
			return ErrBasketNotFound
		}
		if !b.IsOpen() {
			return ErrBasketNotOpen
		}

		billing, err := ownedAddress(ctx, tx, in.BillingAddressID, b.UserID)
		if err != nil {
			return err
		}
		shipping, err := ownedAddress(ctx, tx, in.ShippingAddressID, b.UserID)
		if err != nil {
			return err
		}

		order, err = domain.NewOrderFromBasket(*b, *billing, *shipping, s.newID, s.now())
		switch {
		case errors.Is(err, domain.ErrNoOwner):
			return ErrBasketHasNoOwner
		case errors.Is(err, domain.ErrNotOpen):
			return ErrBasketNotOpen
		case errors.Is(err, domain.ErrEmptyBasket):
			return ErrBasketEmpty
		case err != nil:
			return err
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.SetBasketStatus(ctx, b.ID, domain.BasketStatusOpen, domain.BasketStatusSubmitted); err != nil {
			if errors.Is(err, port.ErrConflict) {
				return ErrBasketNotOpen
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("checkout: basket %s converted to order %s with %d lines", in.BasketID, order.ID, len(order.Lines))
	s.confirm(ctx, order)
	return &order, nil
}

func ownedAddress(ctx context.Context, tx port.Repository, id, userID string) (*domain.Address, error) {
	addr, err := tx.GetAddress(ctx, id)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, ErrAddressNotFound
	}
	if addr.UserID != userID {
		return nil, ErrAddressNotOwned
	}
	return addr, nil
}

// confirm queues the confirmation mail. The order stands even when this
// fails.
func (s *CheckoutService) confirm(ctx context.Context, order domain.Order) {
	if s.notifier == nil {
		return
	}
	user, err := s.db.GetUser(ctx, order.UserID)
	if err != nil || user == nil {
		log.Printf("checkout: no confirmation for order %s: user lookup failed: %v", order.ID, err)
		return
	}
	if err := s.notifier.Enqueue(domain.OrderConfirmation(order, user.Email, user.FullName())); err != nil {
		log.Printf("checkout: no confirmation for order %s: %v", order.ID, err)
	}
}
