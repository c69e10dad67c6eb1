package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptySelection       = errors.New("at least one order is required")
	ErrInvalidPayment       = errors.New("invalid payment method")
	ErrOrderNotOnTable      = errors.New("order does not belong to table")
	ErrAlreadyPaid          = errors.New("order is already paid")
	ErrCancelledNotBillable = errors.New("cancelled orders cannot be billed")
)

// BillingStore defines the DB methods the billing assembler needs.
// Satisfied by *database.Queries.
type BillingStore interface {
	ListOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	CompleteOrder(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// NewBillingStore binds a BillingStore to a transaction.
type NewBillingStore func(tx pgx.Tx) BillingStore

// BillingService groups a table's orders into a single settled bill.
type BillingService struct {
	pool     TxBeginner
	store    BillingStore
	newStore NewBillingStore
	now      func() time.Time
}

func NewBillingService(pool TxBeginner, store BillingStore, newStore NewBillingStore) *BillingService {
	return &BillingService{pool: pool, store: store, newStore: newStore, now: time.Now}
}

// BillLine is one settled order on a bill.
type BillLine struct {
	Order      database.Order
	Items      []database.OrderItem
	BillNumber string
	Subtotal   decimal.Decimal
}

// Bill is the settled result of assembling one payment.
type Bill struct {
	Number        string
	PaymentMethod string
	PaidAt        time.Time
	Lines         []BillLine
	Total         decimal.Decimal
}

// ListBillable returns a table's unpaid, uncancelled orders. With a customer
// email, only that customer's orders are shown so one diner cannot see or
// settle a stranger's tab.
func (s *BillingService) ListBillable(ctx context.Context, tableID uuid.UUID, customerEmail string) ([]OrderResult, error) {
	orders, err := s.store.ListOrdersByTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	results := make([]OrderResult, 0, len(orders))
	for _, o := range orders {
		if enum.IsTerminalOrderStatus(o.Status) {
			continue
		}
		if customerEmail != "" && !strings.EqualFold(o.CustomerEmail, customerEmail) {
			continue
		}
		items, err := s.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		results = append(results, OrderResult{Order: o, Items: items})
	}
	return results, nil
}

// Assemble settles the selected orders as one bill. Orders are locked in
// sorted id order so two concurrent settlements of overlapping selections
// cannot deadlock; the first wins, the second sees ErrAlreadyPaid. Orders
// outside cafeID read as not found.
func (s *BillingService) Assemble(ctx context.Context, cafeID, tableID uuid.UUID, orderIDs []uuid.UUID, paymentMethod string) (*Bill, error) {
	if len(orderIDs) == 0 {
		return nil, ErrEmptySelection
	}
	if !enum.IsValidPaymentMethod(paymentMethod) {
		return nil, ErrInvalidPayment
	}

	ids := dedupeIDs(orderIDs)
	sort.Slice(ids, func(i, j int) bool {
		return strings.Compare(ids[i].String(), ids[j].String()) < 0
	})

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	paidAt := s.now().UTC()
	billNumber := fmt.Sprintf("BILL-%d", paidAt.UnixMilli())

	bill := &Bill{
		Number:        billNumber,
		PaymentMethod: paymentMethod,
		PaidAt:        paidAt,
		Total:         decimal.Zero,
	}

	for _, id := range ids {
		order, err := store.GetOrderForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrOrderNotFound
			}
			return nil, fmt.Errorf("lock order: %w", err)
		}
		if order.CafeID != cafeID {
			return nil, ErrOrderNotFound
		}
		if order.TableID != tableID {
			return nil, ErrOrderNotOnTable
		}
		switch order.Status {
		case enum.OrderStatusCompleted:
			return nil, ErrAlreadyPaid
		case enum.OrderStatusCancelled:
			return nil, ErrCancelledNotBillable
		}

		orderBill := orderBillNumber(billNumber, order.ID)
		settled, err := store.CompleteOrder(ctx, database.CompleteOrderParams{
			ID:            order.ID,
			PaymentMethod: paymentMethod,
			PaidAt:        pgtype.Timestamptz{Time: paidAt, Valid: true},
			BillNumber:    orderBill,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAlreadyPaid
			}
			return nil, fmt.Errorf("complete order: %w", err)
		}

		items, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}

		subtotal := numericToDecimal(settled.Total)
		bill.Lines = append(bill.Lines, BillLine{
			Order:      settled,
			Items:      items,
			BillNumber: orderBill,
			Subtotal:   subtotal,
		})
		bill.Total = bill.Total.Add(subtotal)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return bill, nil
}

// orderBillNumber suffixes the shared bill number with the last four hex
// chars of the order id, matching the printed receipt format.
func orderBillNumber(billNumber string, orderID uuid.UUID) string {
	raw := strings.ReplaceAll(orderID.String(), "-", "")
	return billNumber + "-" + raw[len(raw)-4:]
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
