package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/brewtab/api/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var validationErrors = []error{
	service.ErrEmptyItems,
	service.ErrMissingCustomer,
	service.ErrInvalidQuantity,
	service.ErrInvalidMenuItemID,
	service.ErrMenuItemNotFound,
	service.ErrMenuItemUnavailable,
	service.ErrTableMismatch,
	service.ErrCafeMismatch,
	service.ErrItemMismatch,
	service.ErrInvalidStatus,
	service.ErrEmptySelection,
	service.ErrInvalidPayment,
	service.ErrOrderNotOnTable,
}

var notFoundErrors = []error{
	service.ErrOrderNotFound,
	service.ErrTableNotFound,
	service.ErrItemNotFound,
	service.ErrSessionNotFound,
}

var conflictErrors = []error{
	service.ErrStatusConflict,
	service.ErrInvalidTransition,
	service.ErrOrderClosed,
	service.ErrAlreadyPaid,
	service.ErrCancelledNotBillable,
}

func errorIn(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// respondServiceError maps service errors onto HTTP status codes:
// validation 400, not-found 404, conflict 409, everything else 500.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errorIn(err, validationErrors):
		writeError(w, http.StatusBadRequest, err.Error())
	case errorIn(err, notFoundErrors):
		writeError(w, http.StatusNotFound, err.Error())
	case errorIn(err, conflictErrors):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// --- pgtype conversion helpers for responses ---

func numericString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func uuidPtr(u pgtype.UUID) *string {
	if !u.Valid {
		return nil
	}
	s := uuid.UUID(u.Bytes).String()
	return &s
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
