package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// MaxLineQuantity caps the units of one product a customer may put in a
// line through AddProduct and SetQuantity. A login merge keeps the summed
// quantity even above the cap; such a line only accepts SetQuantity down to
// the cap or removal afterwards.
const MaxLineQuantity = 100

type BasketService struct {
	db    port.DatabaseRepository
	cache port.CacheRepository
	now   func() time.Time
}

func NewBasketService(db port.DatabaseRepository, cache port.CacheRepository) *BasketService {
	return &BasketService{db: db, cache: cache, now: time.Now}
}

// Current returns the open basket of the actor, or nil when there is none.
func (s *BasketService) Current(ctx context.Context, actor Actor) (*domain.Basket, error) {
	if actor.Authenticated() {
		return s.db.FindOpenBasket(ctx, actor.UserID)
	}
	if actor.SessionID == "" {
		return nil, nil
	}

	basketID, err := s.cache.SessionBasket(ctx, actor.SessionID)
	if err != nil {
		return nil, err
	}
	if basketID == "" {
		return nil, nil
	}
	b, err := s.db.GetBasket(ctx, basketID)
	if err != nil {
		return nil, err
	}
	if b == nil || !b.IsOpen() || !b.IsAnonymous() {
		return nil, nil
	}
	return b, nil
}

func (s *BasketService) currentOrCreate(ctx context.Context, actor Actor) (*domain.Basket, error) {
	b, err := s.Current(ctx, actor)
	if err != nil || b != nil {
		return b, err
	}
	if !actor.Authenticated() && actor.SessionID == "" {
		return nil, ErrNoSession
	}

	now := s.now()
	b = &domain.Basket{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		Status:    domain.BasketStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateBasket(ctx, *b); err != nil {
		return nil, err
	}
	if !actor.Authenticated() {
		if err := s.cache.SetSessionBasket(ctx, actor.SessionID, b.ID); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// AddProduct puts quantity units of a product in the basket, creating the
// basket on first use.
func (s *BasketService) AddProduct(ctx context.Context, actor Actor, productID string, quantity int) (*domain.Basket, error) {
	if quantity < 1 || quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}
	p, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive() {
		return nil, ErrProductNotFound
	}
	if !p.InStock {
		return nil, ErrOutOfStock
	}

	b, err := s.currentOrCreate(ctx, actor)
	if err != nil {
		return nil, err
	}

	if line, ok := b.LineFor(productID); ok {
		line.Quantity += quantity
		if line.Quantity > MaxLineQuantity {
			return nil, ErrInvalidQuantity
		}
		err = s.db.UpdateBasketLine(ctx, line)
	} else {
		err = s.db.AddBasketLine(ctx, domain.BasketLine{
			ID:        uuid.NewString(),
			BasketID:  b.ID,
			ProductID: productID,
			Quantity:  quantity,
		})
	}
	if err != nil {
		return nil, err
	}
	return s.db.GetBasket(ctx, b.ID)
}

// SetQuantity changes the quantity of a line. Zero removes the line.
func (s *BasketService) SetQuantity(ctx context.Context, actor Actor, lineID string, quantity int) (*domain.Basket, error) {
	if quantity < 0 || quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}
	b, line, err := s.ownLine(ctx, actor, lineID)
	if err != nil {
		return nil, err
	}
	if quantity == 0 {
		err = s.db.DeleteBasketLine(ctx, line.ID)
	} else {
		line.Quantity = quantity
		err = s.db.UpdateBasketLine(ctx, line)
	}
	if err != nil {
		return nil, err
	}
	return s.db.GetBasket(ctx, b.ID)
}

func (s *BasketService) RemoveLine(ctx context.Context, actor Actor, lineID string) (*domain.Basket, error) {
	return s.SetQuantity(ctx, actor, lineID, 0)
}

func (s *BasketService) ownLine(ctx context.Context, actor Actor, lineID string) (*domain.Basket, domain.BasketLine, error) {
	b, err := s.Current(ctx, actor)
	if err != nil {
		return nil, domain.BasketLine{}, err
	}
	if b == nil {
		return nil, domain.BasketLine{}, ErrBasketNotFound
	}
	for _, l := range b.Lines {
		if l.ID == lineID {
			return b, l, nil
		}
	}
	return nil, domain.BasketLine{}, ErrBasketLineNotFound
}

type SummaryLine struct {
	Line     domain.BasketLine
	Product  domain.Product
	Subtotal decimal.Decimal
}

type BasketSummary struct {
	Basket *domain.Basket
	Lines  []SummaryLine
	Count  int
	Total  decimal.Decimal
}

// Summary prices the current basket. An actor without a basket gets an
// empty summary.
func (s *BasketService) Summary(ctx context.Context, actor Actor) (*BasketSummary, error) {
	b, err := s.Current(ctx, actor)
	if err != nil {
		return nil, err
	}
	sum := &BasketSummary{Total: decimal.Zero}
	if b == nil {
		return sum, nil
	}

	sum.Basket = b
	sum.Count = b.Count()
	for _, l := range b.Lines {
		p, err := s.db.GetProduct(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("basket %s: product %s: %w", b.ID, l.ProductID, ErrProductNotFound)
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		sum.Lines = append(sum.Lines, SummaryLine{Line: l, Product: *p, Subtotal: subtotal})
		sum.Total = sum.Total.Add(subtotal)
	}
	return sum, nil
}

// Merge folds an anonymous basket into the account of a user who just
// logged in. If the user already has an open basket the anonymous lines
// move into it and the anonymous basket is deleted; otherwise the anonymous
// basket itself is handed to the user. A missing, already merged, or
// already owned basket makes this a no-op.
func (s *BasketService) Merge(ctx context.Context, anonBasketID, userID string) error {
	if anonBasketID == "" || userID == "" {
		return nil
	}

	err := s.db.WithinTx(ctx, func(tx port.Repository) error {
		anon, err := tx.GetBasket(ctx, anonBasketID)
		if err != nil {
			return err
		}
		if anon == nil || !anon.IsOpen() || !anon.IsAnonymous() {
			return nil
		}

		existing, err := tx.FindOpenBasket(ctx, userID)
		if err != nil {
			return err
		}
		if existing == nil {
			return tx.AssignBasketOwner(ctx, anon.ID, userID)
		}

		for _, move := range domain.PlanMerge(*anon, *existing) {
			if move.Into != nil {
				if move.Into.Quantity > MaxLineQuantity {
					log.Printf("basket: merged line %s holds %d units, above the limit of %d", move.Into.ID, move.Into.Quantity, MaxLineQuantity)
				}
				if err := tx.UpdateBasketLine(ctx, *move.Into); err != nil {
					return err
				}
				if err := tx.DeleteBasketLine(ctx, move.Line.ID); err != nil {
					return err
				}
				continue
			}
			if err := tx.MoveBasketLine(ctx, move.Line.ID, existing.ID); err != nil {
				return err
			}
		}
		return tx.DeleteBasket(ctx, anon.ID)
	})
	if errors.Is(err, port.ErrConflict) {
		// someone else merged or converted the basket first
		return nil
	}
	return err
}

// MergeSession merges the basket bound to a session and forgets the
// binding.
func (s *BasketService) MergeSession(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" {
		return nil
	}
	basketID, err := s.cache.SessionBasket(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.Merge(ctx, basketID, userID); err != nil {
		return err
	}
	if err := s.cache.ClearSessionBasket(ctx, sessionID); err != nil {
		log.Printf("basket: failed to clear session %s: %v", sessionID, err)
	}
	return nil
}
