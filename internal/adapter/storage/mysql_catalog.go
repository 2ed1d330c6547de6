package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

const productColumns = `p.id, p.name, p.description, p.price, p.slug, p.state, p.in_stock, p.updated_at`

func scanProduct(s interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Slug, &p.State, &p.InStock, &p.UpdatedAt)
	return p, err
}

func (r *mysqlRepo) CreateProduct(ctx context.Context, p domain.Product) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, slug, state, in_stock, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.Slug, p.State, p.InStock, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *mysqlRepo) UpdateProduct(ctx context.Context, p domain.Product) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price = ?, slug = ?, state = ?, in_stock = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Slug, p.State, p.InStock, p.UpdatedAt, p.ID,
	)
	return expectOne(result, err, "update product")
}

func (r *mysqlRepo) getProductWhere(ctx context.Context, where string, args ...any) (*domain.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE `+where+` LIMIT 1`, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	products := []domain.Product{p}
	if err := r.loadTags(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (r *mysqlRepo) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return r.getProductWhere(ctx, "p.id = ?", id)
}

func (r *mysqlRepo) GetProductBySlug(ctx context.Context, slug string, activeOnly bool) (*domain.Product, error) {
	if activeOnly {
		return r.getProductWhere(ctx, "p.slug = ? AND p.state = ? ORDER BY p.id", slug, domain.CatalogStateActive)
	}
	return r.getProductWhere(ctx, "p.slug = ? ORDER BY p.id", slug)
}

func (r *mysqlRepo) FindProduct(ctx context.Context, name string, price decimal.Decimal) (*domain.Product, error) {
	return r.getProductWhere(ctx, "p.name = ? AND p.price = ? ORDER BY p.id", name, price)
}

func (r *mysqlRepo) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if filter.ActiveOnly {
		where = append(where, "p.state = ?")
		args = append(args, domain.CatalogStateActive)
	}
	if filter.TagSlug != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM product_tag_links l JOIN product_tags t ON t.id = l.tag_id
			WHERE l.product_id = p.id AND t.slug = ?)`)
		args = append(args, filter.TagSlug)
	}
	if filter.Search != "" {
		where = append(where, "p.name LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}

	query := `SELECT ` + productColumns + ` FROM products p`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.name, p.id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mysqlRepo) loadTags(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	index := make(map[string]int, len(products))
	args := make([]any, 0, len(products))
	for i, p := range products {
		index[p.ID] = i
		args = append(args, p.ID)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT l.product_id, t.id, t.name, t.slug, t.description, t.state
		FROM product_tag_links l JOIN product_tags t ON t.id = l.tag_id
		WHERE l.product_id IN (`+placeholders(len(args))+`)
		ORDER BY t.name`, args...)
	if err != nil {
		return fmt.Errorf("query product tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			t         domain.ProductTag
		)
		if err := rows.Scan(&productID, &t.ID, &t.Name, &t.Slug, &t.Description, &t.State); err != nil {
			return fmt.Errorf("scan product tag: %w", err)
		}
		i := index[productID]
		products[i].Tags = append(products[i].Tags, t)
	}
	return rows.Err()
}

func (r *mysqlRepo) SetProductState(ctx context.Context, ids []string, state domain.CatalogState) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{state}
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, state)

	result, err := r.q.ExecContext(ctx, `
		UPDATE products SET state = ?, updated_at = NOW(6)
		WHERE id IN (`+placeholders(len(ids))+`) AND state <> ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("update product state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update product state: %w", err)
	}
	return int(n), nil
}

func (r *mysqlRepo) SetProductTags(ctx context.Context, productID string, tagIDs []string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM product_tag_links WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("clear product tags: %w", err)
	}
	for _, tagID := range tagIDs {
		_, err := r.q.ExecContext(ctx, `
			INSERT IGNORE INTO product_tag_links (product_id, tag_id) VALUES (?, ?)`, productID, tagID)
		if err != nil {
			return fmt.Errorf("insert product tag: %w", err)
		}
	}
	return nil
}

func (r *mysqlRepo) AddProductImage(ctx context.Context, img domain.ProductImage) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO product_images (id, product_id, image, thumbnail, created_at) VALUES (?, ?, ?, ?, ?)`,
		img.ID, img.ProductID, img.ImagePath, img.ThumbnailPath, img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product image: %w", err)
	}
	return nil
}

func (r *mysqlRepo) ListProductImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, product_id, image, thumbnail, created_at
		FROM product_images
		WHERE product_id = ?
		ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("query product images: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductImage
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.ImagePath, &img.ThumbnailPath, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

const tagColumns = `id, name, slug, description, state`

func scanTag(s interface{ Scan(...any) error }) (domain.ProductTag, error) {
	var t domain.ProductTag
	err := s.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.State)
	return t, err
}

func (r *mysqlRepo) CreateTag(ctx context.Context, t domain.ProductTag) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO product_tags (id, name, slug, description, state) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Slug, t.Description, t.State,
	)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (r *mysqlRepo) getTagWhere(ctx context.Context, where string, arg any) (*domain.ProductTag, error) {
	t, err := scanTag(r.q.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM product_tags WHERE `+where+` ORDER BY id LIMIT 1`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tag: %w", err)
	}
	return &t, nil
}

func (r *mysqlRepo) GetTagBySlug(ctx context.Context, slug string) (*domain.ProductTag, error) {
	return r.getTagWhere(ctx, "slug = ?", slug)
}

func (r *mysqlRepo) GetTagByName(ctx context.Context, name string) (*domain.ProductTag, error) {
	return r.getTagWhere(ctx, "name = ?", name)
}

func (r *mysqlRepo) ListTags(ctx context.Context, activeOnly bool) ([]domain.ProductTag, error) {
	query := `SELECT ` + tagColumns + ` FROM product_tags`
	var args []any
	if activeOnly {
		query += ` WHERE state = ?`
		args = append(args, domain.CatalogStateActive)
	}
	query += ` ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductTag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
