package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const employeeColumns = `id, cafe_id, name, email, password_hash, role, salary, is_active,
	created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(
		&e.ID, &e.CafeID, &e.Name, &e.Email, &e.PasswordHash,
		&e.Role, &e.Salary, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

type CreateEmployeeParams struct {
	CafeID       uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Salary       pgtype.Numeric
}

func (q *Queries) CreateEmployee(ctx context.Context, arg CreateEmployeeParams) (Employee, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO employees (cafe_id, name, email, password_hash, role, salary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+employeeColumns,
		arg.CafeID, arg.Name, arg.Email, arg.PasswordHash, arg.Role, arg.Salary,
	)
	return scanEmployee(row)
}

func (q *Queries) GetEmployee(ctx context.Context, id uuid.UUID) (Employee, error) {
	row := q.db.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	return scanEmployee(row)
}

func (q *Queries) GetEmployeeByEmail(ctx context.Context, email string) (Employee, error) {
	row := q.db.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE email = $1`, email)
	return scanEmployee(row)
}

func (q *Queries) ListEmployeesByCafe(ctx context.Context, cafeID uuid.UUID) ([]Employee, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+employeeColumns+` FROM employees
		WHERE cafe_id = $1
		ORDER BY name`, cafeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

type UpdateEmployeeParams struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Salary   pgtype.Numeric
	IsActive bool
}

func (q *Queries) UpdateEmployee(ctx context.Context, arg UpdateEmployeeParams) (Employee, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE employees
		SET name = $2, email = $3, salary = $4, is_active = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+employeeColumns,
		arg.ID, arg.Name, arg.Email, arg.Salary, arg.IsActive,
	)
	return scanEmployee(row)
}

func (q *Queries) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
