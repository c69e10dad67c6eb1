package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// IsValidOrderStatus reports whether s is a defined order status.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusServed, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminalOrderStatus reports whether s is a terminal order status.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ── Table occupancy (CHECK constrained in DB) ──

const (
	TableStatusEmpty    = "empty"
	TableStatusOccupied = "occupied"
	TableStatusServed   = "served"
	TableStatusCleaning = "cleaning"
	TableStatusReserved = "reserved"
)

// IsValidTableStatus reports whether s is a defined table status.
func IsValidTableStatus(s string) bool {
	switch s {
	case TableStatusEmpty, TableStatusOccupied, TableStatusServed,
		TableStatusCleaning, TableStatusReserved:
		return true
	}
	return false
}

// ── Help requests (CHECK constrained in DB) ──

const (
	HelpRequestStatusPending   = "pending"
	HelpRequestStatusResponded = "responded"
	HelpRequestStatusResolved  = "resolved"
)

// IsValidHelpRequestStatus reports whether s is a defined help request status.
func IsValidHelpRequestStatus(s string) bool {
	switch s {
	case HelpRequestStatusPending, HelpRequestStatusResponded, HelpRequestStatusResolved:
		return true
	}
	return false
}

// ── Staff roles (CHECK constrained in DB) ──

const (
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"
)

// IsValidRole reports whether s is a defined staff role.
func IsValidRole(s string) bool {
	return s == RoleAdmin || s == RoleEmployee
}

// ── Billing ──

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
	PaymentMethodUPI  = "upi"
)

// IsValidPaymentMethod reports whether s is a defined payment method.
func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI:
		return true
	}
	return false
}

// ── Tenant currency (display only, no behavior attached) ──

const (
	CurrencyUSD = "USD"
	CurrencyINR = "INR"
)
