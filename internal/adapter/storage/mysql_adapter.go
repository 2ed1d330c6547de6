package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const errDuplicateEntry = 1062

//go:embed schema.sql
var schema string

var _ port.DatabaseRepository = (*MySQLAdapter)(nil)

// querier is the part of *sql.DB and *sql.Tx the repository needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type mysqlRepo struct {
	q querier
}

type MySQLAdapter struct {
	*mysqlRepo
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{mysqlRepo: &mysqlRepo{q: db}, db: db}
}

// Migrate creates the tables that do not exist yet.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.Repository) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlRepo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// expectOne turns a zero-row update into port.ErrConflict.
func expectOne(result sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return port.ErrConflict
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *mysqlRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, is_superuser, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsSuperuser, u.IsActive, u.CreatedAt,
	)
	if isDuplicate(err) {
		return fmt.Errorf("insert user: %w", port.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	for _, g := range u.Groups {
		if _, err := r.q.ExecContext(ctx, `INSERT INTO user_groups (user_id, group_name) VALUES (?, ?)`, u.ID, g); err != nil {
			return fmt.Errorf("insert user group: %w", err)
		}
	}
	return nil
}

func (r *mysqlRepo) getUserWhere(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx, `
		SELECT id, email, password_hash, first_name, last_name, is_superuser, is_active, created_at
		FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsSuperuser, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT group_name FROM user_groups WHERE user_id = ? ORDER BY group_name`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("query user groups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan user group: %w", err)
		}
		u.Groups = append(u.Groups, g)
	}
	return &u, rows.Err()
}

func (r *mysqlRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return r.getUserWhere(ctx, "id = ?", id)
}

func (r *mysqlRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUserWhere(ctx, "email = ?", email)
}

const addressColumns = `id, user_id, name, address1, address2, postal_code, city, country, created_at, updated_at`

func scanAddress(s interface{ Scan(...any) error }) (domain.Address, error) {
	var a domain.Address
	err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Address1, &a.Address2, &a.PostalCode, &a.City, &a.Country, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *mysqlRepo) CreateAddress(ctx context.Context, a domain.Address) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO addresses (`+addressColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Address1, a.Address2, a.PostalCode, a.City, a.Country, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (r *mysqlRepo) GetAddress(ctx context.Context, id string) (*domain.Address, error) {
	a, err := scanAddress(r.q.QueryRowContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query address: %w", err)
	}
	return &a, nil
}

func (r *mysqlRepo) UpdateAddress(ctx context.Context, a domain.Address) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE addresses
		SET name = ?, address1 = ?, address2 = ?, postal_code = ?, city = ?, country = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, a.Address1, a.Address2, a.PostalCode, a.City, a.Country, a.UpdatedAt, a.ID,
	)
	return expectOne(result, err, "update address")
}

func (r *mysqlRepo) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	var out []domain.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
