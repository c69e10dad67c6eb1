package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrSessionNotFound = errors.New("no active session for table")
	ErrCafeMismatch    = errors.New("table does not belong to cafe")
)

// TableStore defines the DB methods the table coordinator needs.
// Satisfied by *database.Queries.
type TableStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTablesByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Table, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
	GetActiveSessionByTable(ctx context.Context, tableID uuid.UUID) (database.TableSession, error)
	GetTableSession(ctx context.Context, id uuid.UUID) (database.TableSession, error)
	CreateTableSession(ctx context.Context, arg database.CreateTableSessionParams) (database.TableSession, error)
	EndActiveSessionsByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	EndSession(ctx context.Context, id uuid.UUID) (int64, error)
	ListActiveSessionsByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.TableSession, error)
	ListOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]database.Order, error)

	// Seat creates an order inside the same transaction.
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewTableStore binds a TableStore to a transaction.
type NewTableStore func(tx pgx.Tx) TableStore

// TableService coordinates table status, seating sessions, and the
// occupancy view derived from open orders.
type TableService struct {
	pool     TxBeginner
	store    TableStore
	newStore NewTableStore
}

func NewTableService(pool TxBeginner, store TableStore, newStore NewTableStore) *TableService {
	return &TableService{pool: pool, store: store, newStore: newStore}
}

// TableView is a table with its effective status and live context.
type TableView struct {
	Table         database.Table
	Status        string
	ActiveSession *database.TableSession
	OpenOrders    []database.Order
}

// DeriveStatus computes the effective status of a table from its open orders,
// its active session, and the stored status. Open orders win over the stored
// value: a served order marks the table served, any other open order marks it
// occupied. A session with no orders yet means the table is being turned
// over. Stored reserved/cleaning survive only when nothing live contradicts
// them.
func DeriveStatus(stored string, openOrders []database.Order, hasActiveSession bool) string {
	hasServed := false
	hasEarlier := false
	for _, o := range openOrders {
		switch o.Status {
		case enum.OrderStatusServed:
			hasServed = true
		case enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady:
			hasEarlier = true
		}
	}
	switch {
	case hasServed:
		return enum.TableStatusServed
	case hasEarlier:
		return enum.TableStatusOccupied
	case hasActiveSession:
		return enum.TableStatusCleaning
	}
	if enum.IsValidTableStatus(stored) {
		return stored
	}
	return enum.TableStatusEmpty
}

// View returns one table with derived status, active session, and open
// orders. Tables outside cafeID read as not found.
func (s *TableService) View(ctx context.Context, cafeID, tableID uuid.UUID) (*TableView, error) {
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
	return s.buildView(ctx, table)
}

// ListViews returns every table in a cafe with derived statuses, for the
// floor dashboard.
func (s *TableService) ListViews(ctx context.Context, cafeID uuid.UUID) ([]TableView, error) {
	tables, err := s.store.ListTablesByCafe(ctx, cafeID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	views := make([]TableView, 0, len(tables))
	for _, t := range tables {
		v, err := s.buildView(ctx, t)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *TableService) buildView(ctx context.Context, table database.Table) (*TableView, error) {
	orders, err := s.store.ListOpenOrdersByTable(ctx, table.ID)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	view := &TableView{Table: table, OpenOrders: orders}
	session, err := s.store.GetActiveSessionByTable(ctx, table.ID)
	switch {
	case err == nil:
		view.ActiveSession = &session
	case errors.Is(err, pgx.ErrNoRows):
		// no session, fine
	default:
		return nil, fmt.Errorf("get active session: %w", err)
	}
	view.Status = DeriveStatus(table.Status, orders, view.ActiveSession != nil)
	return view, nil
}

// OpenSession starts a new active session on a table, ending any previous
// one. The partial unique index on table_sessions backs the one-active-
// session invariant; this transaction keeps the handover a single commit.
func (s *TableService) OpenSession(ctx context.Context, cafeID, tableID uuid.UUID, customerName, customerEmail string) (database.TableSession, error) {
	if err := validateCustomer(customerName, customerEmail); err != nil {
		return database.TableSession{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TableSession{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TableSession{}, ErrTableNotFound
		}
		return database.TableSession{}, fmt.Errorf("get table: %w", err)
	}
	if table.CafeID != cafeID {
		return database.TableSession{}, ErrCafeMismatch
	}

	if _, err := store.EndActiveSessionsByTable(ctx, tableID); err != nil {
		return database.TableSession{}, fmt.Errorf("end previous sessions: %w", err)
	}

	session, err := store.CreateTableSession(ctx, database.CreateTableSessionParams{
		CafeID:        cafeID,
		TableID:       tableID,
		TableNumber:   table.Number,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
	})
	if err != nil {
		return database.TableSession{}, fmt.Errorf("create session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.TableSession{}, fmt.Errorf("commit tx: %w", err)
	}
	return session, nil
}

// CloseSession ends the active session on a table. Closing when nothing is
// active is a no-op, not an error.
func (s *TableService) CloseSession(ctx context.Context, tableID uuid.UUID) error {
	if _, err := s.store.EndActiveSessionsByTable(ctx, tableID); err != nil {
		return fmt.Errorf("end sessions: %w", err)
	}
	return nil
}

// CloseSessionByID ends a specific session. Already-ended sessions and
// sessions outside cafeID report ErrSessionNotFound so callers can
// distinguish a stale id.
func (s *TableService) CloseSessionByID(ctx context.Context, cafeID, sessionID uuid.UUID) error {
	session, err := s.store.GetTableSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("get session: %w", err)
	}
	if session.CafeID != cafeID {
		return ErrSessionNotFound
	}
	n, err := s.store.EndSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// SetStatus is the staff override for a table's stored status. Setting empty
// or cleaning also ends the active session, in the same transaction, so a
// bussed table cannot keep a ghost diner.
func (s *TableService) SetStatus(ctx context.Context, cafeID, tableID uuid.UUID, status string) (database.Table, error) {
	if !enum.IsValidTableStatus(status) {
		return database.Table{}, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Table{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Table{}, ErrTableNotFound
		}
		return database.Table{}, fmt.Errorf("get table: %w", err)
	}
	if table.CafeID != cafeID {
		return database.Table{}, ErrCafeMismatch
	}

	if status == enum.TableStatusEmpty || status == enum.TableStatusCleaning {
		if _, err := store.EndActiveSessionsByTable(ctx, tableID); err != nil {
			return database.Table{}, fmt.Errorf("end sessions: %w", err)
		}
	}

	table, err = store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		ID:     tableID,
		Status: status,
	})
	if err != nil {
		return database.Table{}, fmt.Errorf("update table status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Table{}, fmt.Errorf("commit tx: %w", err)
	}
	return table, nil
}

// ResetTable forces a table back to empty and ends its session. Idempotent.
func (s *TableService) ResetTable(ctx context.Context, cafeID, tableID uuid.UUID) (database.Table, error) {
	return s.SetStatus(ctx, cafeID, tableID, enum.TableStatusEmpty)
}

// ResetAll resets every table in a cafe, the end-of-day sweep. Returns how
// many tables were touched.
func (s *TableService) ResetAll(ctx context.Context, cafeID uuid.UUID) (int, error) {
	tables, err := s.store.ListTablesByCafe(ctx, cafeID)
	if err != nil {
		return 0, fmt.Errorf("list tables: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	for _, t := range tables {
		if _, err := store.EndActiveSessionsByTable(ctx, t.ID); err != nil {
			return 0, fmt.Errorf("end sessions for table %s: %w", t.ID, err)
		}
		if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			ID:     t.ID,
			Status: enum.TableStatusEmpty,
		}); err != nil {
			return 0, fmt.Errorf("reset table %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(tables), nil
}

// SeatRequest seats a walk-in party: place their first order, mark the table
// occupied, and open a session, all at once.
type SeatRequest struct {
	CafeID        uuid.UUID
	TableID       uuid.UUID
	CustomerName  string
	CustomerEmail string
	Notes         string
	Items         []OrderLineRequest
}

// SeatResult reports what the seating flow produced. All three flags are true
// on success; on error none of the steps persist.
type SeatResult struct {
	Order         *OrderResult
	Table         database.Table
	Session       database.TableSession
	OrderCreated  bool
	TableOccupied bool
	SessionOpened bool
}

// Seat runs the create-order, occupy-table, open-session flow as one
// transaction. Either the party is fully seated or nothing happened.
func (s *TableService) Seat(ctx context.Context, req SeatRequest) (*SeatResult, error) {
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
		return nil, ErrCafeMismatch
	}

	res := &SeatResult{}

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
	res.Order = &OrderResult{Order: order, Items: items}
	res.OrderCreated = true

	occupied, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		ID:     req.TableID,
		Status: enum.TableStatusOccupied,
	})
	if err != nil {
		return nil, fmt.Errorf("occupy table: %w", err)
	}
	res.Table = occupied
	res.TableOccupied = true

	if _, err := store.EndActiveSessionsByTable(ctx, req.TableID); err != nil {
		return nil, fmt.Errorf("end previous sessions: %w", err)
	}
	session, err := store.CreateTableSession(ctx, database.CreateTableSessionParams{
		CafeID:        req.CafeID,
		TableID:       req.TableID,
		TableNumber:   table.Number,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	res.Session = session
	res.SessionOpened = true

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return res, nil
}
