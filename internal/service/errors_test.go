package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyStoreError(t *testing.T) {
	assert.NoError(t, classifyStoreError("op", nil))

	typed := &NotFoundError{Entity: "invoice", ID: uuid.New()}
	assert.Same(t, typed, classifyStoreError("op", typed))

	for _, cause := range []error{
		context.DeadlineExceeded,
		context.Canceled,
		driver.ErrBadConn,
		&net.OpError{Op: "dial", Err: errors.New("connection refused")},
		fmt.Errorf("begin: %w", driver.ErrBadConn),
	} {
		err := classifyStoreError("create invoice", cause)
		assert.True(t, errors.Is(err, ErrStoreUnavailable), "cause %v", cause)
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "create invoice")
	}

	other := classifyStoreError("list", errors.New("syntax error"))
	assert.False(t, errors.Is(other, ErrStoreUnavailable))
	assert.EqualError(t, other, "list: syntax error")
}

func TestLookupError(t *testing.T) {
	id := uuid.New()
	err := lookupError(gorm.ErrRecordNotFound, "product", id, "find product")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, "product", nf.Entity)
	assert.Equal(t, fmt.Sprintf("product %s not found", id), err.Error())
}

func TestValidationError_MessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "bad", "a": "missing"}}
	assert.Equal(t, "validation failed: a: missing; b: bad", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConflictError_ListsShortages(t *testing.T) {
	err := &ConflictError{Reason: "insufficient stock", Shortages: []StockShortage{{Name: "Flour", Available: 2, Required: 5}}}
	assert.Equal(t, "insufficient stock: Flour (available 2, required 5)", err.Error())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCompensation_NilSafe(t *testing.T) {
	var c *Compensation
	c.skipStock(uuid.New(), "x", 1)
	assert.False(t, c.Partial())
	r := c.Report()
	assert.False(t, r.Partial)
	assert.NotNil(t, r.Skipped)
}

type sqlStateErr string

func (e sqlStateErr) Error() string    { return "sqlstate " + string(e) }
func (e sqlStateErr) SQLState() string { return string(e) }

func TestClassifyStoreError_LockConflicts(t *testing.T) {
	for _, code := range []string{"40P01", "40001"} {
		err := classifyStoreError("create supply", fmt.Errorf("exec: %w", sqlStateErr(code)))
		var ce *ConflictError
		assert.ErrorAs(t, err, &ce, code)
		assert.ErrorIs(t, err, ErrConflict, code)
	}

	err := classifyStoreError("create supply", sqlStateErr("23505"))
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestRunTx_RetriesLockConflictOnce(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	calls := 0
	err := runTx(ctx, l.db, 0, "create invoice", func(tx *gorm.DB) error {
		calls++
		if calls == 1 {
			return sqlStateErr("40P01")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = runTx(ctx, l.db, 0, "create invoice", func(tx *gorm.DB) error {
		calls++
		return sqlStateErr("40001")
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, calls, "a second abort is not retried")

	calls = 0
	err = runTx(ctx, l.db, 0, "create invoice", func(tx *gorm.DB) error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
