package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors. Handlers pick the HTTP status with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError rejects a malformed payload before any write.
type ValidationError struct {
	Fields map[string]string // field -> reason
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// NotFoundError names the missing product, counterparty or document.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StockShortage is one product that an update would drive below zero.
type StockShortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	Required  int       `json:"required"`
}

// ConflictError reports a state transition that is not allowed, such as
// cancelling a cancelled document or an update with insufficient stock.
type ConflictError struct {
	Reason    string
	Shortages []StockShortage
}

func (e *ConflictError) Error() string {
	if len(e.Shortages) == 0 {
		return e.Reason
	}
	names := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		names = append(names, fmt.Sprintf("%s (available %d, required %d)", s.Name, s.Available, s.Required))
	}
	return e.Reason + ": " + strings.Join(names, ", ")
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StoreUnavailableError wraps a connectivity failure of the database.
// No retry is attempted here.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

// sqlStateError is satisfied by driver errors that carry a SQLSTATE code,
// such as *pgconn.PgError.
type sqlStateError interface {
	SQLState() string
}

// lockConflict reports a deadlock (40P01) or serialization failure (40001).
func lockConflict(err error) bool {
	var se sqlStateError
	if !errors.As(err, &se) {
		return false
	}
	switch se.SQLState() {
	case "40P01", "40001":
		return true
	}
	return false
}

// classifyStoreError leaves typed ledger errors untouched, turns lock
// conflicts into ConflictError, connectivity failures into
// StoreUnavailableError and wraps everything else with op.
func classifyStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if lockConflict(err) {
		return &ConflictError{Reason: "concurrent update, retry the request"}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return &StoreUnavailableError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
