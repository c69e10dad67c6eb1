package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const cafeColumns = `id, name, slug, address, phone, email, currency, is_active, admin_id,
	created_at, updated_at`

func scanCafe(row pgx.Row) (Cafe, error) {
	var c Cafe
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Address, &c.Phone, &c.Email,
		&c.Currency, &c.IsActive, &c.AdminID, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

type CreateCafeParams struct {
	Name     string
	Slug     string
	Address  string
	Phone    pgtype.Text
	Email    pgtype.Text
	Currency string
	AdminID  pgtype.UUID
}

func (q *Queries) CreateCafe(ctx context.Context, arg CreateCafeParams) (Cafe, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO cafes (name, slug, address, phone, email, currency, admin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+cafeColumns,
		arg.Name, arg.Slug, arg.Address, arg.Phone, arg.Email, arg.Currency, arg.AdminID,
	)
	return scanCafe(row)
}

func (q *Queries) GetCafe(ctx context.Context, id uuid.UUID) (Cafe, error) {
	row := q.db.QueryRow(ctx, `SELECT `+cafeColumns+` FROM cafes WHERE id = $1`, id)
	return scanCafe(row)
}

func (q *Queries) GetCafeBySlug(ctx context.Context, slug string) (Cafe, error) {
	row := q.db.QueryRow(ctx, `SELECT `+cafeColumns+` FROM cafes WHERE slug = $1`, slug)
	return scanCafe(row)
}

func (q *Queries) ListCafes(ctx context.Context) ([]Cafe, error) {
	rows, err := q.db.Query(ctx, `SELECT `+cafeColumns+` FROM cafes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cafes []Cafe
	for rows.Next() {
		c, err := scanCafe(rows)
		if err != nil {
			return nil, err
		}
		cafes = append(cafes, c)
	}
	return cafes, rows.Err()
}

type UpdateCafeParams struct {
	ID       uuid.UUID
	Name     string
	Slug     string
	Address  string
	Phone    pgtype.Text
	Email    pgtype.Text
	Currency string
	IsActive bool
}

func (q *Queries) UpdateCafe(ctx context.Context, arg UpdateCafeParams) (Cafe, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE cafes
		SET name = $2, slug = $3, address = $4, phone = $5, email = $6, currency = $7,
		    is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+cafeColumns,
		arg.ID, arg.Name, arg.Slug, arg.Address, arg.Phone, arg.Email, arg.Currency, arg.IsActive,
	)
	return scanCafe(row)
}

func (q *Queries) DeleteCafe(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM cafes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
