package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ── Categories ──

const categoryColumns = `id, cafe_id, name, icon, display_order, created_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.CafeID, &c.Name, &c.Icon, &c.DisplayOrder, &c.CreatedAt)
	return c, err
}

type CreateCategoryParams struct {
	CafeID       uuid.UUID
	Name         string
	Icon         string
	DisplayOrder int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO categories (cafe_id, name, icon, display_order)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		arg.CafeID, arg.Name, arg.Icon, arg.DisplayOrder,
	)
	return scanCategory(row)
}

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	row := q.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

// ListCategoriesByCafe orders by display_order with creation order breaking ties.
func (q *Queries) ListCategoriesByCafe(ctx context.Context, cafeID uuid.UUID) ([]Category, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE cafe_id = $1
		ORDER BY display_order, created_at`, cafeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type UpdateCategoryParams struct {
	ID           uuid.UUID
	Name         string
	Icon         string
	DisplayOrder int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE categories SET name = $2, icon = $3, display_order = $4
		WHERE id = $1
		RETURNING `+categoryColumns,
		arg.ID, arg.Name, arg.Icon, arg.DisplayOrder,
	)
	return scanCategory(row)
}

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ── Menu items ──

const menuItemColumns = `id, cafe_id, category_id, name, description, price, image, available,
	created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.ID, &m.CafeID, &m.CategoryID, &m.Name, &m.Description,
		&m.Price, &m.Image, &m.Available, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

type CreateMenuItemParams struct {
	CafeID      uuid.UUID
	CategoryID  pgtype.UUID
	Name        string
	Description string
	Price       pgtype.Numeric
	Image       pgtype.Text
	Available   bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_items (cafe_id, category_id, name, description, price, image, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+menuItemColumns,
		arg.CafeID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.Image, arg.Available,
	)
	return scanMenuItem(row)
}

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id)
	return scanMenuItem(row)
}

// GetMenuItemForOrder fetches the authoritative menu row used to price an
// order line. The cafe scope keeps one tenant's items out of another's orders.
type GetMenuItemForOrderParams struct {
	ID     uuid.UUID
	CafeID uuid.UUID
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE id = $1 AND cafe_id = $2`, arg.ID, arg.CafeID)
	return scanMenuItem(row)
}

func (q *Queries) ListMenuItemsByCafe(ctx context.Context, cafeID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE cafe_id = $1
		ORDER BY name`, cafeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type UpdateMenuItemParams struct {
	ID          uuid.UUID
	CategoryID  pgtype.UUID
	Name        string
	Description string
	Price       pgtype.Numeric
	Image       pgtype.Text
	Available   bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE menu_items
		SET category_id = $2, name = $3, description = $4, price = $5, image = $6, available = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+menuItemColumns,
		arg.ID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.Image, arg.Available,
	)
	return scanMenuItem(row)
}

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
