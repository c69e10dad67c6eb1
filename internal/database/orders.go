package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, cafe_id, table_id, table_number, status, total, customer_name,
	customer_email, notes, payment_method, paid_at, bill_number, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CafeID, &o.TableID, &o.TableNumber, &o.Status, &o.Total,
		&o.CustomerName, &o.CustomerEmail, &o.Notes, &o.PaymentMethod,
		&o.PaidAt, &o.BillNumber, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type CreateOrderParams struct {
	CafeID        uuid.UUID
	TableID       uuid.UUID
	TableNumber   int32
	Total         pgtype.Numeric
	CustomerName  string
	CustomerEmail string
	Notes         pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (cafe_id, table_id, table_number, status, total, customer_name, customer_email, notes)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7)
		RETURNING `+orderColumns,
		arg.CafeID, arg.TableID, arg.TableNumber, arg.Total,
		arg.CustomerName, arg.CustomerEmail, arg.Notes,
	)
	return scanOrder(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row so concurrent item mutations and
// billing against the same order serialize.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

type UpdateOrderStatusParams struct {
	ID             uuid.UUID
	Status         string
	ExpectedStatus string
}

// UpdateOrderStatus is a compare-and-set: the row is only updated if its
// current status still matches ExpectedStatus. Returns pgx.ErrNoRows when a
// concurrent writer got there first.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.ExpectedStatus,
	)
	return scanOrder(row)
}

type UpdateOrderTotalParams struct {
	ID    uuid.UUID
	Total pgtype.Numeric
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET total = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.Total,
	)
	return scanOrder(row)
}

type CompleteOrderParams struct {
	ID            uuid.UUID
	PaymentMethod string
	PaidAt        pgtype.Timestamptz
	BillNumber    string
}

// CompleteOrder finalizes a paid order. The status guard keeps an order from
// being billed twice.
func (q *Queries) CompleteOrder(ctx context.Context, arg CompleteOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'completed', payment_method = $2, paid_at = $3, bill_number = $4, updated_at = now()
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
		RETURNING `+orderColumns,
		arg.ID, arg.PaymentMethod, arg.PaidAt, arg.BillNumber,
	)
	return scanOrder(row)
}

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) ListOrdersByCafe(ctx context.Context, cafeID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE cafe_id = $1
		ORDER BY created_at DESC`, cafeID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListActiveOrdersByCafe returns orders that still need staff attention.
func (q *Queries) ListActiveOrdersByCafe(ctx context.Context, cafeID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE cafe_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at ASC`, cafeID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (q *Queries) ListOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE table_id = $1
		ORDER BY created_at DESC`, tableID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListOpenOrdersByTable returns non-terminal orders for a table, used both by
// status derivation and by billing candidate lists.
func (q *Queries) ListOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE table_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at ASC`, tableID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

type ListOrdersForCustomerParams struct {
	TableID       uuid.UUID
	CustomerEmail string
}

func (q *Queries) ListOrdersForCustomer(ctx context.Context, arg ListOrdersForCustomerParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE table_id = $1 AND customer_email = $2
		ORDER BY created_at DESC`, arg.TableID, arg.CustomerEmail)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ── Order items ──

const orderItemColumns = `id, order_id, menu_item_id, menu_item_name, price, quantity, notes`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.MenuItemName, &it.Price, &it.Quantity, &it.Notes)
	return it, err
}

type CreateOrderItemParams struct {
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	MenuItemName string
	Price        pgtype.Numeric
	Quantity     int32
	Notes        pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, menu_item_id, menu_item_name, price, quantity, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderItemColumns,
		arg.OrderID, arg.MenuItemID, arg.MenuItemName, arg.Price, arg.Quantity, arg.Notes,
	)
	return scanOrderItem(row)
}

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE id = $1`, id)
	return scanOrderItem(row)
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteOrderItem(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
