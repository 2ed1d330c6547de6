package service

import (
	"context"
	"errors"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type OrderService struct {
	db port.DatabaseRepository
}

func NewOrderService(db port.DatabaseRepository) *OrderService {
	return &OrderService{db: db}
}

// MyOrders lists the orders the actor placed, newest first.
func (s *OrderService) MyOrders(ctx context.Context, actor Actor) ([]domain.OrderView, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	orders, err := s.db.ListOrders(ctx, domain.OrderFilter{UserID: actor.UserID})
	if err != nil {
		return nil, err
	}
	views := make([]domain.OrderView, 0, len(orders))
	for _, o := range orders {
		if v, ok := domain.ProjectOwnOrder(o, actor.UserID); ok {
			views = append(views, v)
		}
	}
	return views, nil
}

func (s *OrderService) MyOrder(ctx context.Context, actor Actor, id string) (*domain.OrderView, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	o, err := s.db.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	v, ok := domain.ProjectOwnOrder(*o, actor.UserID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &v, nil
}

// List returns the orders visible to a staff member, projected for their
// role. An empty status lists every status the role may see.
func (s *OrderService) List(ctx context.Context, actor Actor, status domain.OrderStatus) ([]domain.OrderView, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, ErrInvalidInput
	}
	if role == domain.RoleDispatcher {
		if status != "" && status != domain.OrderStatusPaid {
			return []domain.OrderView{}, nil
		}
		status = domain.OrderStatusPaid
	}

	orders, err := s.db.ListOrders(ctx, domain.OrderFilter{Status: status})
	if err != nil {
		return nil, err
	}
	views := make([]domain.OrderView, 0, len(orders))
	for _, o := range orders {
		if v, ok := domain.ProjectOrder(o, role); ok {
			views = append(views, v)
		}
	}
	return views, nil
}

func (s *OrderService) PaidOrders(ctx context.Context, actor Actor) ([]domain.OrderView, error) {
	return s.List(ctx, actor, domain.OrderStatusPaid)
}

// PaidOrderLines lists the lines of paid orders, the work queue of
// dispatchers.
func (s *OrderService) PaidOrderLines(ctx context.Context, actor Actor) ([]domain.OrderLineView, error) {
	if _, _, err := staffRole(ctx, s.db, actor); err != nil {
		return nil, err
	}
	lines, err := s.db.ListOrderLines(ctx, domain.OrderLineFilter{OrderStatus: domain.OrderStatusPaid})
	if err != nil {
		return nil, err
	}
	views := make([]domain.OrderLineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, domain.OrderLineView{ID: l.ID, ProductID: l.ProductID, Status: l.Status})
	}
	return views, nil
}

func (s *OrderService) Get(ctx context.Context, actor Actor, id string) (*domain.OrderView, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	o, err := s.db.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	v, ok := domain.ProjectOrder(*o, role)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &v, nil
}

// SetStatus moves an order forward through its lifecycle.
func (s *OrderService) SetStatus(ctx context.Context, actor Actor, id string, status domain.OrderStatus) (*domain.OrderView, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	if !role.CanSetOrderStatus() {
		return nil, ErrForbidden
	}

	err = s.db.WithinTx(ctx, func(tx port.Repository) error {
		o, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrOrderNotFound
		}
		if !o.Status.CanTransitionTo(status) {
			return ErrInvalidStatus
		}
		return tx.UpdateOrderStatus(ctx, id, status)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// SetLineStatus moves one order line through fulfilment. Dispatchers only
// reach lines of paid orders.
func (s *OrderService) SetLineStatus(ctx context.Context, actor Actor, lineID string, status domain.OrderLineStatus) (*domain.OrderLineView, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	if !role.CanSetLineStatus() {
		return nil, ErrForbidden
	}

	var line *domain.OrderLine
	err = s.db.WithinTx(ctx, func(tx port.Repository) error {
		line, err = tx.GetOrderLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line == nil {
			return ErrOrderNotFound
		}
		o, err := tx.GetOrder(ctx, line.OrderID)
		if err != nil {
			return err
		}
		if o == nil || !role.CanSee(*o) {
			return ErrOrderNotFound
		}
		if !line.Status.CanTransitionTo(status) {
			return ErrInvalidStatus
		}
		if err := tx.UpdateOrderLineStatus(ctx, lineID, status); err != nil {
			if errors.Is(err, port.ErrConflict) {
				return ErrOrderNotFound
			}
			return err
		}
		line.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &domain.OrderLineView{ID: line.ID, ProductID: line.ProductID, Status: line.Status}, nil
}
