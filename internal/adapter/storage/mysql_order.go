package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	orderColumns = `id, user_id, status,
		billing_name, billing_address1, billing_address2, billing_postal_code, billing_city, billing_country,
		shipping_name, shipping_address1, shipping_address2, shipping_postal_code, shipping_city, shipping_country,
		last_spoken_to, created_at, updated_at`

	// rows per INSERT when writing order lines
	orderLineBatch = 200
)

func scanOrder(s interface{ Scan(...any) error }) (domain.Order, error) {
	var (
		o        domain.Order
		spokenTo sql.NullString
		b, ship  = &o.Billing, &o.Shipping
	)
	err := s.Scan(&o.ID, &o.UserID, &o.Status,
		&b.Name, &b.Address1, &b.Address2, &b.PostalCode, &b.City, &b.Country,
		&ship.Name, &ship.Address1, &ship.Address2, &ship.PostalCode, &ship.City, &ship.Country,
		&spokenTo, &o.CreatedAt, &o.UpdatedAt,
	)
	o.LastSpokenTo = spokenTo.String
	return o, err
}

func (r *mysqlRepo) CreateOrder(ctx context.Context, o domain.Order) error {
	b, s := o.Billing, o.Shipping
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Status,
		b.Name, b.Address1, b.Address2, b.PostalCode, b.City, b.Country,
		s.Name, s.Address1, s.Address2, s.PostalCode, s.City, s.Country,
		nullString(o.LastSpokenTo), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for start := 0; start < len(o.Lines); start += orderLineBatch {
		end := min(start+orderLineBatch, len(o.Lines))
		batch := o.Lines[start:end]

		values := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*5)
		for i, l := range batch {
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args, l.ID, o.ID, l.ProductID, l.Status, start+i)
		}
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, product_id, status, position)
			VALUES `+strings.Join(values, ", "), args...)
		if err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
	}
	return nil
}

func (r *mysqlRepo) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	orders := []domain.Order{o}
	if err := r.loadOrderLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *mysqlRepo) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at > ?")
		args = append(args, filter.Since)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadOrderLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mysqlRepo) loadOrderLines(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]int, len(orders))
	args := make([]any, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		args = append(args, o.ID)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, product_id, status FROM order_lines
		WHERE order_id IN (`+placeholders(len(args))+`)
		ORDER BY order_id, position`, args...)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Status); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		i := index[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return rows.Err()
}

func (r *mysqlRepo) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = NOW(6) WHERE id = ?`, status, id)
	return expectOne(result, err, "update order status")
}

func (r *mysqlRepo) SetLastSpokenTo(ctx context.Context, orderID, userID string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE orders SET last_spoken_to = ?, updated_at = NOW(6) WHERE id = ?`, userID, orderID)
	return expectOne(result, err, "update order last spoken to")
}

func (r *mysqlRepo) GetOrderLine(ctx context.Context, id string) (*domain.OrderLine, error) {
	var l domain.OrderLine
	err := r.q.QueryRowContext(ctx, `
		SELECT id, order_id, product_id, status FROM order_lines WHERE id = ?`, id,
	).Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order line: %w", err)
	}
	return &l, nil
}

func (r *mysqlRepo) ListOrderLines(ctx context.Context, filter domain.OrderLineFilter) ([]domain.OrderLine, error) {
	var (
		where []string
		args  []any
	)
	if filter.OrderID != "" {
		where = append(where, "l.order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.Status != "" {
		where = append(where, "l.status = ?")
		args = append(args, filter.Status)
	}
	if filter.OrderStatus != "" {
		where = append(where, "o.status = ?")
		args = append(args, filter.OrderStatus)
	}

	query := `SELECT l.id, l.order_id, l.product_id, l.status
		FROM order_lines l JOIN orders o ON o.id = l.order_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC, l.order_id, l.position"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Status); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *mysqlRepo) UpdateOrderLineStatus(ctx context.Context, id string, status domain.OrderLineStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE order_lines SET status = ? WHERE id = ?`, status, id)
	return expectOne(result, err, "update order line status")
}

func (r *mysqlRepo) OrdersPerDay(ctx context.Context, since time.Time) ([]domain.DailyCount, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT DATE(created_at) AS day, COUNT(id)
		FROM orders WHERE created_at > ?
		GROUP BY day ORDER BY day`, since)
	if err != nil {
		return nil, fmt.Errorf("query orders per day: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyCount
	for rows.Next() {
		var c domain.DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("scan orders per day: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *mysqlRepo) MostBoughtProducts(ctx context.Context, since time.Time) ([]domain.ProductCount, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT p.name, COUNT(l.id) AS c
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		JOIN products p ON p.id = l.product_id
		WHERE o.created_at > ?
		GROUP BY p.name
		ORDER BY c DESC, p.name`, since)
	if err != nil {
		return nil, fmt.Errorf("query most bought products: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductCount
	for rows.Next() {
		var c domain.ProductCount
		if err := rows.Scan(&c.ProductName, &c.Count); err != nil {
			return nil, fmt.Errorf("scan most bought products: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
