package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, cafe_id, table_id, table_number, customer_name, customer_email,
	started_at, ended_at, is_active`

func scanSession(row pgx.Row) (TableSession, error) {
	var s TableSession
	err := row.Scan(
		&s.ID, &s.CafeID, &s.TableID, &s.TableNumber, &s.CustomerName,
		&s.CustomerEmail, &s.StartedAt, &s.EndedAt, &s.IsActive,
	)
	return s, err
}

func collectSessions(rows pgx.Rows) ([]TableSession, error) {
	defer rows.Close()
	var sessions []TableSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

type CreateTableSessionParams struct {
	CafeID        uuid.UUID
	TableID       uuid.UUID
	TableNumber   int32
	CustomerName  string
	CustomerEmail string
}

func (q *Queries) CreateTableSession(ctx context.Context, arg CreateTableSessionParams) (TableSession, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO table_sessions (cafe_id, table_id, table_number, customer_name, customer_email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+sessionColumns,
		arg.CafeID, arg.TableID, arg.TableNumber, arg.CustomerName, arg.CustomerEmail,
	)
	return scanSession(row)
}

func (q *Queries) GetTableSession(ctx context.Context, id uuid.UUID) (TableSession, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM table_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetActiveSessionByTable returns the single active session for a table, if any.
func (q *Queries) GetActiveSessionByTable(ctx context.Context, tableID uuid.UUID) (TableSession, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM table_sessions
		WHERE table_id = $1 AND is_active`, tableID)
	return scanSession(row)
}

// EndActiveSessionsByTable closes every active session for a table and returns
// how many were closed. Safe to call when none are active.
func (q *Queries) EndActiveSessionsByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE table_sessions SET is_active = FALSE, ended_at = now()
		WHERE table_id = $1 AND is_active`, tableID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// EndSession closes one session by id. Already-ended sessions are left alone.
func (q *Queries) EndSession(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE table_sessions SET is_active = FALSE, ended_at = now()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListActiveSessionsByCafe(ctx context.Context, cafeID uuid.UUID) ([]TableSession, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+sessionColumns+` FROM table_sessions
		WHERE cafe_id = $1 AND is_active
		ORDER BY started_at DESC`, cafeID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

type ListSessionsByCustomerParams struct {
	CustomerEmail string
	CafeID        uuid.UUID
}

func (q *Queries) ListSessionsByCustomer(ctx context.Context, arg ListSessionsByCustomerParams) ([]TableSession, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+sessionColumns+` FROM table_sessions
		WHERE customer_email = $1 AND cafe_id = $2
		ORDER BY started_at DESC`, arg.CustomerEmail, arg.CafeID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}
