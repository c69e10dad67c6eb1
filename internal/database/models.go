package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Cafe struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Address   string
	Phone     pgtype.Text
	Email     pgtype.Text
	Currency  string
	IsActive  bool
	AdminID   pgtype.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Table struct {
	ID        uuid.UUID
	CafeID    uuid.UUID
	Number    int32
	Capacity  int32
	IsActive  bool
	Status    string
	QrCode    string
	CreatedAt time.Time
}

type Category struct {
	ID           uuid.UUID
	CafeID       uuid.UUID
	Name         string
	Icon         string
	DisplayOrder int32
	CreatedAt    time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	CafeID      uuid.UUID
	CategoryID  pgtype.UUID
	Name        string
	Description string
	Price       pgtype.Numeric
	Image       pgtype.Text
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID            uuid.UUID
	CafeID        uuid.UUID
	TableID       uuid.UUID
	TableNumber   int32
	Status        string
	Total         pgtype.Numeric
	CustomerName  string
	CustomerEmail string
	Notes         pgtype.Text
	PaymentMethod pgtype.Text
	PaidAt        pgtype.Timestamptz
	BillNumber    pgtype.Text
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	MenuItemID   uuid.UUID
	MenuItemName string
	Price        pgtype.Numeric
	Quantity     int32
	Notes        pgtype.Text
}

type TableSession struct {
	ID            uuid.UUID
	CafeID        uuid.UUID
	TableID       uuid.UUID
	TableNumber   int32
	CustomerName  string
	CustomerEmail string
	StartedAt     time.Time
	EndedAt       pgtype.Timestamptz
	IsActive      bool
}

type HelpRequest struct {
	ID          uuid.UUID
	CafeID      uuid.UUID
	TableID     uuid.UUID
	TableNumber int32
	Status      string
	Message     pgtype.Text
	RespondedBy pgtype.Text
	RespondedAt pgtype.Timestamptz
	CreatedAt   time.Time
}

type Review struct {
	ID        uuid.UUID
	CafeID    uuid.UUID
	TableID   uuid.UUID
	OrderID   uuid.UUID
	Rating    int32
	Comment   pgtype.Text
	CreatedAt time.Time
}

type Employee struct {
	ID           uuid.UUID
	CafeID       uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Salary       pgtype.Numeric
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
