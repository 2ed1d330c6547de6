package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/storefront/internal/core/domain"
)

func (r *mysqlRepo) CreateBasket(ctx context.Context, b domain.Basket) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO baskets (id, user_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, nullString(b.UserID), b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert basket: %w", err)
	}
	return nil
}

func (r *mysqlRepo) getBasketWhere(ctx context.Context, where string, args ...any) (*domain.Basket, error) {
	var (
		b      domain.Basket
		userID sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, status, created_at, updated_at FROM baskets WHERE `+where, args...,
	).Scan(&b.ID, &userID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query basket: %w", err)
	}
	b.UserID = userID.String

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, basket_id, product_id, quantity FROM basket_lines
		WHERE basket_id = ? ORDER BY created_at, id`, b.ID)
	if err != nil {
		return nil, fmt.Errorf("query basket lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.BasketLine
		if err := rows.Scan(&l.ID, &l.BasketID, &l.ProductID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan basket line: %w", err)
		}
		b.Lines = append(b.Lines, l)
	}
	return &b, rows.Err()
}

func (r *mysqlRepo) GetBasket(ctx context.Context, id string) (*domain.Basket, error) {
	return r.getBasketWhere(ctx, "id = ?", id)
}

func (r *mysqlRepo) FindOpenBasket(ctx context.Context, userID string) (*domain.Basket, error) {
	return r.getBasketWhere(ctx, "user_id = ? AND status = ? ORDER BY created_at, id LIMIT 1", userID, domain.BasketStatusOpen)
}

func (r *mysqlRepo) AssignBasketOwner(ctx context.Context, basketID, userID string) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE baskets SET user_id = ?, updated_at = NOW(6)
		WHERE id = ? AND user_id IS NULL AND status = ?`,
		userID, basketID, domain.BasketStatusOpen,
	)
	return expectOne(result, err, "assign basket owner")
}

func (r *mysqlRepo) SetBasketStatus(ctx context.Context, basketID string, from, to domain.BasketStatus) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE baskets SET status = ?, updated_at = NOW(6)
		WHERE id = ? AND status = ?`,
		to, basketID, from,
	)
	return expectOne(result, err, "update basket status")
}

func (r *mysqlRepo) DeleteBasket(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM baskets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete basket: %w", err)
	}
	return nil
}

func (r *mysqlRepo) AddBasketLine(ctx context.Context, l domain.BasketLine) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO basket_lines (id, basket_id, product_id, quantity, created_at)
		VALUES (?, ?, ?, ?, NOW(6))`,
		l.ID, l.BasketID, l.ProductID, l.Quantity,
	)
	if err != nil {
		return fmt.Errorf("insert basket line: %w", err)
	}
	return nil
}

func (r *mysqlRepo) UpdateBasketLine(ctx context.Context, l domain.BasketLine) error {
	result, err := r.q.ExecContext(ctx, `UPDATE basket_lines SET quantity = ? WHERE id = ?`, l.Quantity, l.ID)
	return expectOne(result, err, "update basket line")
}

func (r *mysqlRepo) MoveBasketLine(ctx context.Context, lineID, basketID string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE basket_lines SET basket_id = ? WHERE id = ?`, basketID, lineID)
	return expectOne(result, err, "move basket line")
}

func (r *mysqlRepo) DeleteBasketLine(ctx context.Context, lineID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM basket_lines WHERE id = ?`, lineID); err != nil {
		return fmt.Errorf("delete basket line: %w", err)
	}
	return nil
}
