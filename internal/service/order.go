package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service. Handlers map these onto HTTP codes:
// validation -> 400, not-found -> 404, conflict -> 409.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrMissingCustomer     = errors.New("customer name and email are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID   = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound    = errors.New("menu item not found in cafe")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrTableNotFound       = errors.New("table not found")
	ErrTableMismatch       = errors.New("table does not belong to cafe")
	ErrOrderNotFound       = errors.New("order not found")
	ErrItemNotFound        = errors.New("order item not found")
	ErrItemMismatch        = errors.New("order item does not belong to order")
	ErrOrderClosed         = errors.New("order is completed or cancelled")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrStatusConflict      = errors.New("order status changed concurrently, refetch and retry")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order engine needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, id uuid.UUID) error
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	ListOrdersByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Order, error)
	ListActiveOrdersByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Order, error)
	ListOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]database.Order, error)
	ListOrdersForCustomer(ctx context.Context, arg database.ListOrdersForCustomerParams) ([]database.Order, error)
}

// NewOrderStore binds an OrderStore to a transaction.
type NewOrderStore func(tx pgx.Tx) OrderStore

// Policy carries tunable lifecycle rules.
type Policy struct {
	// AllowBackward permits moving an order to an earlier non-terminal
	// status. The normal machine is forward-only.
	AllowBackward bool
}

// CreateOrderRequest is the validated input for creating an order.
// Line prices are NOT taken from the caller; every line is re-priced from the
// menu item record when the order is written.
type CreateOrderRequest struct {
	CafeID        uuid.UUID
	TableID       uuid.UUID
	CustomerName  string
	CustomerEmail string
	Notes         string
	Items         []OrderLineRequest
}

// OrderLineRequest is a single requested line on an order.
type OrderLineRequest struct {
	MenuItemID string
	Quantity   int32
	Notes      string
}

// OrderResult is an order with its item snapshots.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService owns the order status state machine and item mutation rules.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	policy   Policy
}

// NewOrderService creates a new OrderService. store is bound to the pool and
// used for reads; newStore builds transaction-scoped stores for mutations.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, policy Policy) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore, policy: policy}
}

// pricedLine is a line re-priced against the menu, ready to insert.
type pricedLine struct {
	menuItemID uuid.UUID
	name       string
	price      decimal.Decimal
	quantity   int32
	notes      string
}

// Create validates, re-prices, and writes an order with its items in one
// transaction. The order starts in "pending".
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if err := validateCustomer(req.CustomerName, req.CustomerEmail); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTable(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if table.CafeID != req.CafeID {
		return nil, ErrTableMismatch
	}

	lines, total, err := priceLines(ctx, store, req.CafeID, req.Items)
	if err != nil {
		return nil, err
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CafeID:        req.CafeID,
		TableID:       req.TableID,
		TableNumber:   table.Number,
		Total:         decimalToNumeric(total),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Notes:         textOrNull(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items, err := insertLines(ctx, store, order.ID, lines)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// AddItems appends re-priced lines to an open order and bumps the total.
// The order row is locked for the duration so a concurrent remove cannot
// overwrite the total.
func (s *OrderService) AddItems(ctx context.Context, orderID uuid.UUID, reqItems []OrderLineRequest) (*OrderResult, error) {
	if len(reqItems) == 0 {
		return nil, ErrEmptyItems
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if enum.IsTerminalOrderStatus(order.Status) {
		return nil, ErrOrderClosed
	}

	lines, added, err := priceLines(ctx, store, order.CafeID, reqItems)
	if err != nil {
		return nil, err
	}

	if _, err := insertLines(ctx, store, order.ID, lines); err != nil {
		return nil, err
	}

	newTotal := numericToDecimal(order.Total).Add(added)
	order, err = store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:    order.ID,
		Total: decimalToNumeric(newTotal),
	})
	if err != nil {
		return nil, fmt.Errorf("update order total: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// RemoveItem deletes one item from an open order and decrements the total,
// floored at zero.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if enum.IsTerminalOrderStatus(order.Status) {
		return nil, ErrOrderClosed
	}

	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if item.OrderID != orderID {
		return nil, ErrItemMismatch
	}

	if err := store.DeleteOrderItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("delete order item: %w", err)
	}

	subtotal := numericToDecimal(item.Price).Mul(decimal.NewFromInt32(item.Quantity))
	newTotal := numericToDecimal(order.Total).Sub(subtotal)
	if newTotal.IsNegative() {
		newTotal = decimal.Zero
	}
	order, err = store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:    order.ID,
		Total: decimalToNumeric(newTotal),
	})
	if err != nil {
		return nil, fmt.Errorf("update order total: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// AdvanceStatus moves an order to next if the transition is legal. The store
// write is a compare-and-set on the status read here, so two staff advancing
// the same order concurrently cannot skip or duplicate a step. Orders outside
// cafeID read as not found.
//
// The table side effect of reaching "served" belongs to the table
// coordinator, not here; callers react to the returned order.
func (s *OrderService) AdvanceStatus(ctx context.Context, cafeID, orderID uuid.UUID, next string) (database.Order, error) {
	if !enum.IsValidOrderStatus(next) {
		return database.Order{}, ErrInvalidStatus
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.CafeID != cafeID {
		return database.Order{}, ErrOrderNotFound
	}

	if err := ValidateTransition(order.Status, next, s.policy); err != nil {
		return database.Order{}, err
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             orderID,
		Status:         next,
		ExpectedStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// Get returns one order with its items.
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderResult, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	items, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderResult{Order: order, Items: items}, nil
}

// Delete permanently removes an order and its items. Admin-only cleanup;
// orders outside cafeID read as not found.
func (s *OrderService) Delete(ctx context.Context, cafeID, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.CafeID != cafeID {
		return ErrOrderNotFound
	}
	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// ListActive returns every non-terminal order for a cafe, items attached.
func (s *OrderService) ListActive(ctx context.Context, cafeID uuid.UUID) ([]OrderResult, error) {
	orders, err := s.store.ListActiveOrdersByCafe(ctx, cafeID)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	return s.attachItems(ctx, orders)
}

// ListAll returns the cafe's full order history, items attached.
func (s *OrderService) ListAll(ctx context.Context, cafeID uuid.UUID) ([]OrderResult, error) {
	orders, err := s.store.ListOrdersByCafe(ctx, cafeID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.attachItems(ctx, orders)
}

// ListByTable returns all orders ever placed on a cafe's table, items
// attached. Tables outside cafeID read as not found.
func (s *OrderService) ListByTable(ctx context.Context, cafeID, tableID uuid.UUID) ([]OrderResult, error) {
	table, err := s.store.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if table.CafeID != cafeID {
		return nil, ErrTableNotFound
	}
	orders, err := s.store.ListOrdersByTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("list orders by table: %w", err)
	}
	return s.attachItems(ctx, orders)
}

// ListForCustomer returns a customer's orders on one table, items attached.
func (s *OrderService) ListForCustomer(ctx context.Context, customerEmail string, tableID uuid.UUID) ([]OrderResult, error) {
	orders, err := s.store.ListOrdersForCustomer(ctx, database.ListOrdersForCustomerParams{
		TableID:       tableID,
		CustomerEmail: customerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders for customer: %w", err)
	}
	return s.attachItems(ctx, orders)
}

func (s *OrderService) attachItems(ctx context.Context, orders []database.Order) ([]OrderResult, error) {
	results := make([]OrderResult, len(orders))
	for i, o := range orders {
		items, err := s.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		results[i] = OrderResult{Order: o, Items: items}
	}
	return results, nil
}

// --- State machine ---

// forwardTransitions is the normal forward-only machine. Terminal states have
// no entry.
var forwardTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusServed},
	enum.OrderStatusServed:    {enum.OrderStatusCompleted},
}

var statusRank = map[string]int{
	enum.OrderStatusPending:   0,
	enum.OrderStatusPreparing: 1,
	enum.OrderStatusReady:     2,
	enum.OrderStatusServed:    3,
}

// ValidateTransition checks reachability of next from current. Terminal
// states never transition. With policy.AllowBackward, moving to any earlier
// non-terminal status is also legal.
func ValidateTransition(current, next string, policy Policy) error {
	if enum.IsTerminalOrderStatus(current) {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, current)
	}
	for _, s := range forwardTransitions[current] {
		if s == next {
			return nil
		}
	}
	if policy.AllowBackward {
		curRank, curOK := statusRank[current]
		nextRank, nextOK := statusRank[next]
		if curOK && nextOK && nextRank < curRank {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}

// --- Helpers shared across the package ---

func validateCustomer(name, email string) error {
	if name == "" || email == "" {
		return ErrMissingCustomer
	}
	return nil
}

// menuPricer and lineWriter are the slices of the stores the pricing helpers
// need, so both the order engine and the seating flow can share them.
type menuPricer interface {
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error)
}

type lineWriter interface {
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// priceLines validates requested lines and prices them from the cafe's menu.
// Client-sent prices never reach this path.
func priceLines(ctx context.Context, store menuPricer, cafeID uuid.UUID, reqItems []OrderLineRequest) ([]pricedLine, decimal.Decimal, error) {
	total := decimal.Zero
	lines := make([]pricedLine, 0, len(reqItems))
	for i, item := range reqItems {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
		mi, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
			ID:     menuItemID,
			CafeID: cafeID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, decimal.Zero, fmt.Errorf("items[%d]: get menu item: %w", i, err)
		}
		if !mi.Available {
			return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrMenuItemUnavailable)
		}

		price := numericToDecimal(mi.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
		lines = append(lines, pricedLine{
			menuItemID: menuItemID,
			name:       mi.Name,
			price:      price,
			quantity:   item.Quantity,
			notes:      item.Notes,
		})
	}
	return lines, total, nil
}

func insertLines(ctx context.Context, store lineWriter, orderID uuid.UUID, lines []pricedLine) ([]database.OrderItem, error) {
	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:      orderID,
			MenuItemID:   line.menuItemID,
			MenuItemName: line.name,
			Price:        decimalToNumeric(line.price),
			Quantity:     line.quantity,
			Notes:        textOrNull(line.notes),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
