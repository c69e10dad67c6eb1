package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const reviewColumns = `id, cafe_id, table_id, order_id, rating, comment, created_at`

func scanReview(row pgx.Row) (Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.CafeID, &r.TableID, &r.OrderID, &r.Rating, &r.Comment, &r.CreatedAt)
	return r, err
}

type CreateReviewParams struct {
	CafeID  uuid.UUID
	TableID uuid.UUID
	OrderID uuid.UUID
	Rating  int32
	Comment pgtype.Text
}

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO reviews (cafe_id, table_id, order_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+reviewColumns,
		arg.CafeID, arg.TableID, arg.OrderID, arg.Rating, arg.Comment,
	)
	return scanReview(row)
}

func (q *Queries) GetReviewByOrder(ctx context.Context, orderID uuid.UUID) (Review, error) {
	row := q.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE order_id = $1`, orderID)
	return scanReview(row)
}

func (q *Queries) ListReviewsByCafe(ctx context.Context, cafeID uuid.UUID) ([]Review, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE cafe_id = $1
		ORDER BY created_at DESC`, cafeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reviews []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (q *Queries) DeleteReview(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
