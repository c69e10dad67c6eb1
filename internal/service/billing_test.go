package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// mockBillingStore implements BillingStore with configurable behavior.
type mockBillingStore struct {
	listOrdersByTableFn     func(ctx context.Context, tableID uuid.UUID) ([]database.Order, error)
	getOrderForUpdateFn     func(ctx context.Context, id uuid.UUID) (database.Order, error)
	completeOrderFn         func(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error)
	listOrderItemsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

func (m *mockBillingStore) ListOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]database.Order, error) {
	return m.listOrdersByTableFn(ctx, tableID)
}
func (m *mockBillingStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockBillingStore) CompleteOrder(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error) {
	return m.completeOrderFn(ctx, arg)
}
func (m *mockBillingStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}

func newTestBillingService(store *mockBillingStore) (*BillingService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(tx pgx.Tx) BillingStore { return store }
	svc := NewBillingService(pool, store, newStore)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, tx
}

// billingStoreFor wires a mock around a fixed set of open orders on one table.
func billingStoreFor(tableID uuid.UUID, orders map[uuid.UUID]database.Order) *mockBillingStore {
	return &mockBillingStore{
		listOrdersByTableFn: func(ctx context.Context, id uuid.UUID) ([]database.Order, error) {
			var out []database.Order
			for _, o := range orders {
				out = append(out, o)
			}
			return out, nil
		},
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			o, ok := orders[id]
			if !ok {
				return database.Order{}, pgx.ErrNoRows
			}
			return o, nil
		},
		completeOrderFn: func(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error) {
			o, ok := orders[arg.ID]
			if !ok || enum.IsTerminalOrderStatus(o.Status) {
				return database.Order{}, pgx.ErrNoRows
			}
			o.Status = enum.OrderStatusCompleted
			o.PaymentMethod = textOrNull(arg.PaymentMethod)
			o.PaidAt = arg.PaidAt
			o.BillNumber = textOrNull(arg.BillNumber)
			orders[arg.ID] = o
			return o, nil
		},
		listOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return nil, nil
		},
	}
}

func servedOrder(cafeID, tableID uuid.UUID, email, total string) database.Order {
	return database.Order{
		ID:            uuid.New(),
		CafeID:        cafeID,
		TableID:       tableID,
		Status:        enum.OrderStatusServed,
		Total:         makeNumeric(total),
		CustomerEmail: email,
	}
}

func TestAssemble_CombinesOrdersUnderOneBill(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	o1 := servedOrder(cafeID, tableID, "ana@example.com", "12.00")
	o2 := servedOrder(cafeID, tableID, "ana@example.com", "8.00")
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{o1.ID: o1, o2.ID: o2})
	svc, tx := newTestBillingService(store)

	bill, err := svc.Assemble(context.Background(), cafeID, tableID, []uuid.UUID{o1.ID, o2.ID}, enum.PaymentMethodCard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bill.Total.Equal(decimalFromString(t, "20.00")) {
		t.Errorf("expected total 20.00, got %v", bill.Total)
	}
	if len(bill.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(bill.Lines))
	}
	if !strings.HasPrefix(bill.Number, "BILL-") {
		t.Errorf("unexpected bill number: %s", bill.Number)
	}
	for _, line := range bill.Lines {
		if !strings.HasPrefix(line.BillNumber, bill.Number+"-") {
			t.Errorf("line bill %s does not share prefix %s", line.BillNumber, bill.Number)
		}
		if line.Order.Status != enum.OrderStatusCompleted {
			t.Errorf("expected completed order, got %s", line.Order.Status)
		}
	}
	if bill.Lines[0].BillNumber == bill.Lines[1].BillNumber {
		t.Error("per-order bill numbers must differ")
	}
	if !tx.committed {
		t.Error("expected transaction commit")
	}
}

func TestAssemble_AlreadyPaidConflicts(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	o := servedOrder(cafeID, tableID, "ana@example.com", "12.00")
	o.Status = enum.OrderStatusCompleted
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{o.ID: o})
	svc, tx := newTestBillingService(store)

	_, err := svc.Assemble(context.Background(), cafeID, tableID, []uuid.UUID{o.ID}, enum.PaymentMethodCash)
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got: %v", err)
	}
	if tx.committed {
		t.Error("conflicting bill must not commit")
	}
}

func TestAssemble_CancelledOrder(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	o := servedOrder(cafeID, tableID, "ana@example.com", "12.00")
	o.Status = enum.OrderStatusCancelled
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{o.ID: o})
	svc, _ := newTestBillingService(store)

	_, err := svc.Assemble(context.Background(), cafeID, tableID, []uuid.UUID{o.ID}, enum.PaymentMethodCash)
	if !errors.Is(err, ErrCancelledNotBillable) {
		t.Fatalf("expected ErrCancelledNotBillable, got: %v", err)
	}
}

func TestAssemble_OrderFromOtherTable(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	o := servedOrder(cafeID, uuid.New(), "ana@example.com", "12.00")
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{o.ID: o})
	svc, _ := newTestBillingService(store)

	_, err := svc.Assemble(context.Background(), cafeID, tableID, []uuid.UUID{o.ID}, enum.PaymentMethodUPI)
	if !errors.Is(err, ErrOrderNotOnTable) {
		t.Fatalf("expected ErrOrderNotOnTable, got: %v", err)
	}
}

func TestAssemble_OrderFromOtherCafe(t *testing.T) {
	tableID := uuid.New()
	o := servedOrder(uuid.New(), tableID, "ana@example.com", "12.00")
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{o.ID: o})
	store.completeOrderFn = func(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error) {
		t.Fatal("order from another cafe must not be settled")
		return database.Order{}, nil
	}
	svc, tx := newTestBillingService(store)

	_, err := svc.Assemble(context.Background(), uuid.New(), tableID, []uuid.UUID{o.ID}, enum.PaymentMethodCash)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
	if tx.committed {
		t.Error("cross-cafe bill must not commit")
	}
}

func TestAssemble_EmptySelection(t *testing.T) {
	svc, _ := newTestBillingService(billingStoreFor(uuid.New(), nil))

	_, err := svc.Assemble(context.Background(), uuid.New(), uuid.New(), nil, enum.PaymentMethodCash)
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got: %v", err)
	}
}

func TestAssemble_InvalidPaymentMethod(t *testing.T) {
	svc, _ := newTestBillingService(billingStoreFor(uuid.New(), nil))

	_, err := svc.Assemble(context.Background(), uuid.New(), uuid.New(), []uuid.UUID{uuid.New()}, "barter")
	if !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("expected ErrInvalidPayment, got: %v", err)
	}
}

func TestAssemble_DuplicateSelectionSettlesOnce(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	o := servedOrder(cafeID, tableID, "ana@example.com", "12.00")
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{o.ID: o})
	svc, _ := newTestBillingService(store)

	bill, err := svc.Assemble(context.Background(), cafeID, tableID, []uuid.UUID{o.ID, o.ID}, enum.PaymentMethodCash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bill.Lines) != 1 {
		t.Errorf("expected 1 line for duplicated selection, got %d", len(bill.Lines))
	}
}

func TestAssemble_LocksInSortedOrder(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	o1 := servedOrder(cafeID, tableID, "ana@example.com", "5.00")
	o2 := servedOrder(cafeID, tableID, "ana@example.com", "7.00")
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{o1.ID: o1, o2.ID: o2})

	var lockOrder []string
	inner := store.getOrderForUpdateFn
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		lockOrder = append(lockOrder, id.String())
		return inner(ctx, id)
	}
	svc, _ := newTestBillingService(store)

	// Pass ids in descending order; locks must still be taken ascending.
	ids := []uuid.UUID{o1.ID, o2.ID}
	if strings.Compare(ids[0].String(), ids[1].String()) < 0 {
		ids[0], ids[1] = ids[1], ids[0]
	}
	if _, err := svc.Assemble(context.Background(), cafeID, tableID, ids, enum.PaymentMethodCash); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lockOrder) != 2 || strings.Compare(lockOrder[0], lockOrder[1]) >= 0 {
		t.Errorf("expected ascending lock order, got %v", lockOrder)
	}
}

func TestListBillable_FiltersByCustomerAndStatus(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	mine := servedOrder(cafeID, tableID, "ana@example.com", "12.00")
	theirs := servedOrder(cafeID, tableID, "ben@example.com", "6.00")
	paid := servedOrder(cafeID, tableID, "ana@example.com", "4.00")
	paid.Status = enum.OrderStatusCompleted
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{
		mine.ID: mine, theirs.ID: theirs, paid.ID: paid,
	})
	svc, _ := newTestBillingService(store)

	results, err := svc.ListBillable(context.Background(), tableID, "ANA@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 billable order, got %d", len(results))
	}
	if results[0].Order.ID != mine.ID {
		t.Errorf("expected own order, got %s", results[0].Order.ID)
	}
}

func TestListBillable_StaffSeesAllOpen(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	a := servedOrder(cafeID, tableID, "ana@example.com", "12.00")
	b := servedOrder(cafeID, tableID, "ben@example.com", "6.00")
	store := billingStoreFor(tableID, map[uuid.UUID]database.Order{a.ID: a, b.ID: b})
	svc, _ := newTestBillingService(store)

	results, err := svc.ListBillable(context.Background(), tableID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 billable orders, got %d", len(results))
	}
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}
