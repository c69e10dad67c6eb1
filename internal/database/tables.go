package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, cafe_id, number, capacity, is_active, status, qr_code, created_at`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.CafeID, &t.Number, &t.Capacity, &t.IsActive, &t.Status, &t.QrCode, &t.CreatedAt)
	return t, err
}

type CreateTableParams struct {
	CafeID   uuid.UUID
	Number   int32
	Capacity int32
	QrCode   string
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO cafe_tables (cafe_id, number, capacity, qr_code)
		VALUES ($1, $2, $3, $4)
		RETURNING `+tableColumns,
		arg.CafeID, arg.Number, arg.Capacity, arg.QrCode,
	)
	return scanTable(row)
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tableColumns+` FROM cafe_tables WHERE id = $1`, id)
	return scanTable(row)
}

func (q *Queries) ListTablesByCafe(ctx context.Context, cafeID uuid.UUID) ([]Table, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+tableColumns+` FROM cafe_tables WHERE cafe_id = $1 ORDER BY number`, cafeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type UpdateTableParams struct {
	ID       uuid.UUID
	Number   int32
	Capacity int32
	IsActive bool
	QrCode   string
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE cafe_tables SET number = $2, capacity = $3, is_active = $4, qr_code = $5
		WHERE id = $1
		RETURNING `+tableColumns,
		arg.ID, arg.Number, arg.Capacity, arg.IsActive, arg.QrCode,
	)
	return scanTable(row)
}

type UpdateTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE cafe_tables SET status = $2 WHERE id = $1
		RETURNING `+tableColumns,
		arg.ID, arg.Status,
	)
	return scanTable(row)
}

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM cafe_tables WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
