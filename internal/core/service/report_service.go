package service

import (
	"context"
	"slices"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const ordersPerDayWindow = 180 * 24 * time.Hour

// MostBoughtPeriods are the windows, in days, the most bought report
// accepts.
var MostBoughtPeriods = []int{30, 60, 90}

type ReportService struct {
	db  port.DatabaseRepository
	now func() time.Time
}

func NewReportService(db port.DatabaseRepository) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

func (s *ReportService) authorize(ctx context.Context, actor Actor) error {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return err
	}
	if !role.CanViewReports() {
		return ErrForbidden
	}
	return nil
}

// OrdersPerDay counts orders per calendar day over the last 180 days.
func (s *ReportService) OrdersPerDay(ctx context.Context, actor Actor) ([]domain.DailyCount, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	return s.db.OrdersPerDay(ctx, s.now().Add(-ordersPerDayWindow))
}

// MostBought ranks products by units ordered in the last days days.
func (s *ReportService) MostBought(ctx context.Context, actor Actor, days int) ([]domain.ProductCount, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	if !slices.Contains(MostBoughtPeriods, days) {
		return nil, ErrInvalidInput
	}
	return s.db.MostBoughtProducts(ctx, s.now().AddDate(0, 0, -days))
}
