package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const helpRequestColumns = `id, cafe_id, table_id, table_number, status, message, responded_by,
	responded_at, created_at`

func scanHelpRequest(row pgx.Row) (HelpRequest, error) {
	var h HelpRequest
	err := row.Scan(
		&h.ID, &h.CafeID, &h.TableID, &h.TableNumber, &h.Status,
		&h.Message, &h.RespondedBy, &h.RespondedAt, &h.CreatedAt,
	)
	return h, err
}

func collectHelpRequests(rows pgx.Rows) ([]HelpRequest, error) {
	defer rows.Close()
	var reqs []HelpRequest
	for rows.Next() {
		h, err := scanHelpRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, h)
	}
	return reqs, rows.Err()
}

type CreateHelpRequestParams struct {
	CafeID      uuid.UUID
	TableID     uuid.UUID
	TableNumber int32
	Message     pgtype.Text
}

func (q *Queries) CreateHelpRequest(ctx context.Context, arg CreateHelpRequestParams) (HelpRequest, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO help_requests (cafe_id, table_id, table_number, message)
		VALUES ($1, $2, $3, $4)
		RETURNING `+helpRequestColumns,
		arg.CafeID, arg.TableID, arg.TableNumber, arg.Message,
	)
	return scanHelpRequest(row)
}

func (q *Queries) GetHelpRequest(ctx context.Context, id uuid.UUID) (HelpRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+helpRequestColumns+` FROM help_requests WHERE id = $1`, id)
	return scanHelpRequest(row)
}

func (q *Queries) ListHelpRequestsByCafe(ctx context.Context, cafeID uuid.UUID) ([]HelpRequest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+helpRequestColumns+` FROM help_requests
		WHERE cafe_id = $1
		ORDER BY created_at DESC`, cafeID)
	if err != nil {
		return nil, err
	}
	return collectHelpRequests(rows)
}

func (q *Queries) ListPendingHelpRequests(ctx context.Context, cafeID uuid.UUID) ([]HelpRequest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+helpRequestColumns+` FROM help_requests
		WHERE cafe_id = $1 AND status = 'pending'
		ORDER BY created_at ASC`, cafeID)
	if err != nil {
		return nil, err
	}
	return collectHelpRequests(rows)
}

type UpdateHelpRequestStatusParams struct {
	ID          uuid.UUID
	Status      string
	RespondedBy pgtype.Text
	RespondedAt pgtype.Timestamptz
}

func (q *Queries) UpdateHelpRequestStatus(ctx context.Context, arg UpdateHelpRequestStatusParams) (HelpRequest, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE help_requests
		SET status = $2, responded_by = $3, responded_at = $4
		WHERE id = $1
		RETURNING `+helpRequestColumns,
		arg.ID, arg.Status, arg.RespondedBy, arg.RespondedAt,
	)
	return scanHelpRequest(row)
}
