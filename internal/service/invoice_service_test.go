package service

import (
	"context"
	"errors"
	"testing"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"
	"ledgerpos/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creditInvoice(customerID uuid.UUID, paid string, items ...dto.InvoiceItemRequest) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCredit,
		CustomerID:  idPtr(customerID),
		PaidAmount:  decPtr(paid),
		Items:       items,
	}
}

func line(productID uuid.UUID, qty int) dto.InvoiceItemRequest {
	return dto.InvoiceItemRequest{ProductID: idPtr(productID), Quantity: qty}
}

// ── Create ────────────────────────────────────────────────────────────────────

func TestInvoiceCreate_CashDeductsStockOnly(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Coffee", 10, "3.00", "5.00")

	resp, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(p, 3)},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-00001", resp.Number)
	assert.Equal(t, model.StatusActive, resp.Status)
	requireDecimal(t, "15", resp.Total)
	requireDecimal(t, "15", resp.PaidAmount)
	requireDecimal(t, "0", resp.RemainingAmount)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Coffee", resp.Items[0].ProductName)
	requireDecimal(t, "3", resp.Items[0].PurchasePrice)
	require.NotNil(t, resp.Compensation)
	assert.False(t, resp.Compensation.Partial)

	assert.Equal(t, 7, l.stock(t, p))
	assert.Equal(t, int64(1), l.movementCount(t, p))
	assert.Equal(t, []string{worker.EventInvoiceCreated}, l.events.types())
}

func TestInvoiceCreate_CreditChargesCustomer(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Rice", 20, "6.00", "10.00")
	c := l.customer(t, "Ana")

	resp, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "20", line(p, 5)))
	require.NoError(t, err)

	requireDecimal(t, "50", resp.Total)
	requireDecimal(t, "20", resp.PaidAmount)
	requireDecimal(t, "30", resp.RemainingAmount)
	requireDecimal(t, "30", l.balance(t, model.KindCustomer, c))
	assert.Equal(t, 15, l.stock(t, p))
}

func TestInvoiceCreate_StockMayGoNegative(t *testing.T) {
	l := newLedger(t)
	p := l.product(t, "Bread", 1, "1.00", "2.00")

	_, err := l.invoices.Create(context.Background(), l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(p, 4)},
	})
	require.NoError(t, err)
	assert.Equal(t, -3, l.stock(t, p))
}

func TestInvoiceCreate_FreeTextLine(t *testing.T) {
	l := newLedger(t)

	resp, err := l.invoices.Create(context.Background(), l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items: []dto.InvoiceItemRequest{{
			ProductName: "Delivery",
			Quantity:    1,
			SalePrice:   decPtr("7.50"),
		}},
	})
	require.NoError(t, err)
	requireDecimal(t, "7.5", resp.Total)
	assert.Nil(t, resp.Items[0].ProductID)
}

func TestInvoiceCreate_Validation(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Tea", 5, "1.00", "2.00")
	c := l.customer(t, "Bruno")

	cases := []struct {
		name string
		req  dto.CreateInvoiceRequest
	}{
		{"credit remainder without customer", dto.CreateInvoiceRequest{
			PaymentType: model.PaymentCredit,
			Items:       []dto.InvoiceItemRequest{line(p, 1)},
		}},
		{"paid exceeds total", creditInvoice(c, "100", line(p, 1))},
		{"paid and remaining do not sum", dto.CreateInvoiceRequest{
			PaymentType:     model.PaymentCredit,
			CustomerID:      idPtr(c),
			PaidAmount:      decPtr("1"),
			RemainingAmount: decPtr("2"),
			Items:           []dto.InvoiceItemRequest{line(p, 1)},
		}},
		{"zero quantity", dto.CreateInvoiceRequest{
			PaymentType: model.PaymentCash,
			Items:       []dto.InvoiceItemRequest{line(p, 0)},
		}},
		{"free text without price", dto.CreateInvoiceRequest{
			PaymentType: model.PaymentCash,
			Items:       []dto.InvoiceItemRequest{{ProductName: "Misc", Quantity: 1}},
		}},
		{"unknown payment type", dto.CreateInvoiceRequest{
			PaymentType: "barter",
			Items:       []dto.InvoiceItemRequest{line(p, 1)},
		}},
		{"no items", dto.CreateInvoiceRequest{PaymentType: model.PaymentCash}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.invoices.Create(ctx, l.tenant, tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}

	// Nothing was written by any rejected request.
	assert.Equal(t, 5, l.stock(t, p))
	requireDecimal(t, "0", l.balance(t, model.KindCustomer, c))
	list, err := l.invoices.List(ctx, l.tenant, dto.DocumentFilter{Status: "all"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), list.Total)
}

func TestInvoiceCreate_UnknownProductAndCustomer(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Salt", 5, "1.00", "2.00")

	_, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(uuid.New(), 1)},
	})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = l.invoices.Create(ctx, l.tenant, creditInvoice(uuid.New(), "0", line(p, 1)))
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.Equal(t, 5, l.stock(t, p))
}

func TestInvoiceCreate_RollbackKeepsSequence(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Oil", 5, "1.00", "2.00")

	_, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(p, 1), line(uuid.New(), 1)},
	})
	require.Error(t, err)

	resp, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(p, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-00001", resp.Number)
}

func TestInvoice_TenantIsolation(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Milk", 5, "1.00", "2.00")

	resp, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(p, 1)},
	})
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	other := uuid.New()
	_, err = l.invoices.Get(ctx, other, id)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = l.invoices.Cancel(ctx, other, id)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = l.invoices.Create(ctx, other, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(p, 1)},
	})
	assert.True(t, errors.Is(err, ErrNotFound), "product of another tenant must not resolve")
}

// ── Cancel ────────────────────────────────────────────────────────────────────

func TestInvoiceCancel_RestoresStockAndBalance(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Sugar", 10, "2.00", "4.00")
	c := l.customer(t, "Carla")

	created, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "0", line(p, 3)))
	require.NoError(t, err)
	requireDecimal(t, "12", l.balance(t, model.KindCustomer, c))

	cancelled, err := l.invoices.Cancel(ctx, l.tenant, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	assert.Equal(t, 10, l.stock(t, p))
	requireDecimal(t, "0", l.balance(t, model.KindCustomer, c))
	assert.Equal(t, int64(2), l.movementCount(t, p))

	_, err = l.invoices.Cancel(ctx, l.tenant, uuid.MustParse(created.ID))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, "already cancelled")
	assert.Equal(t, 10, l.stock(t, p), "a second cancel must not restore twice")

	_, err = l.invoices.Update(ctx, l.tenant, uuid.MustParse(created.ID), dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{line(p, 1)},
	})
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestInvoiceCancel_SkipsDeletedProduct(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	gone := l.product(t, "Seasonal", 10, "1.00", "3.00")
	kept := l.product(t, "Staple", 10, "1.00", "3.00")

	created, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(gone, 2), line(kept, 2)},
	})
	require.NoError(t, err)

	require.NoError(t, l.db.Delete(&model.Product{}, "id = ?", gone).Error)

	cancelled, err := l.invoices.Cancel(ctx, l.tenant, uuid.MustParse(created.ID))
	require.NoError(t, err)
	require.NotNil(t, cancelled.Compensation)
	assert.True(t, cancelled.Compensation.Partial)
	require.Len(t, cancelled.Compensation.Skipped, 1)
	assert.Equal(t, "stock", cancelled.Compensation.Skipped[0].Kind)
	assert.Equal(t, gone.String(), cancelled.Compensation.Skipped[0].EntityID)
	assert.Equal(t, 10, l.stock(t, kept))

	types := l.events.types()
	assert.Equal(t, worker.EventInvoiceCancelled, types[len(types)-1])
}

// ── Update ────────────────────────────────────────────────────────────────────

func TestInvoiceUpdate_EquivalentToCancelAndCreate(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := l.product(t, "A", 10, "1.00", "10.00")
	b := l.product(t, "B", 10, "2.00", "20.00")
	c := l.customer(t, "Dora")

	created, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "0", line(a, 2)))
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	updated, err := l.invoices.Update(ctx, l.tenant, id, dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{line(a, 1), line(b, 3)},
	})
	require.NoError(t, err)
	assert.Equal(t, created.Number, updated.Number, "update keeps the number")
	requireDecimal(t, "70", updated.Total)
	requireDecimal(t, "0", updated.PaidAmount)
	requireDecimal(t, "70", updated.RemainingAmount)

	assert.Equal(t, 9, l.stock(t, a))
	assert.Equal(t, 7, l.stock(t, b))
	requireDecimal(t, "70", l.balance(t, model.KindCustomer, c))

	_, err = l.invoices.Cancel(ctx, l.tenant, id)
	require.NoError(t, err)
	assert.Equal(t, 10, l.stock(t, a))
	assert.Equal(t, 10, l.stock(t, b))
	requireDecimal(t, "0", l.balance(t, model.KindCustomer, c))
}

func TestInvoiceUpdate_SwitchToCashClearsBalance(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Soap", 10, "1.00", "5.00")
	c := l.customer(t, "Eva")

	created, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "5", line(p, 4)))
	require.NoError(t, err)
	requireDecimal(t, "15", l.balance(t, model.KindCustomer, c))

	cash := model.PaymentCash
	updated, err := l.invoices.Update(ctx, l.tenant, uuid.MustParse(created.ID), dto.UpdateInvoiceRequest{
		PaymentType: &cash,
		Items:       []dto.InvoiceItemRequest{line(p, 4)},
	})
	require.NoError(t, err)
	requireDecimal(t, "20", updated.PaidAmount)
	requireDecimal(t, "0", l.balance(t, model.KindCustomer, c))
	assert.Equal(t, 6, l.stock(t, p))
}

func TestInvoiceUpdate_NotesOnlyKeepsLinesAndStock(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Lamp", 10, "60.00", "100.00")
	c := l.customer(t, "Ada")

	created, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "0", line(p, 2)))
	require.NoError(t, err)
	_, err = l.catalog.UpdateProduct(ctx, l.tenant, p, dto.UpdateProductRequest{
		SalePrice:     decPtr("150"),
		PurchasePrice: decPtr("90"),
	})
	require.NoError(t, err)

	updated, err := l.invoices.Update(ctx, l.tenant, uuid.MustParse(created.ID), dto.UpdateInvoiceRequest{
		Notes: strPtr("typo fix"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "typo fix", *updated.Notes)
	requireDecimal(t, "200", updated.Total)
	require.Len(t, updated.Items, 1)
	requireDecimal(t, "100", updated.Items[0].SalePrice)
	requireDecimal(t, "60", updated.Items[0].PurchasePrice)

	requireDecimal(t, "200", l.balance(t, model.KindCustomer, c))
	assert.Equal(t, 8, l.stock(t, p))
	assert.Equal(t, int64(1), l.movementCount(t, p), "no stock movement for a notes edit")
}

func TestInvoiceUpdate_ResentLinesKeepCapturedPrices(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	a := l.product(t, "A", 10, "60.00", "100.00")
	b := l.product(t, "B", 10, "5.00", "10.00")
	c := l.customer(t, "Bea")

	created, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "0", line(a, 2)))
	require.NoError(t, err)
	_, err = l.catalog.UpdateProduct(ctx, l.tenant, a, dto.UpdateProductRequest{
		SalePrice:     decPtr("150"),
		PurchasePrice: decPtr("90"),
	})
	require.NoError(t, err)

	updated, err := l.invoices.Update(ctx, l.tenant, uuid.MustParse(created.ID), dto.UpdateInvoiceRequest{
		Notes: strPtr("added B"),
		Items: []dto.InvoiceItemRequest{line(a, 2), line(b, 1)},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	requireDecimal(t, "100", updated.Items[0].SalePrice, "stored line price wins over the new catalog price")
	requireDecimal(t, "60", updated.Items[0].PurchasePrice)
	requireDecimal(t, "10", updated.Items[1].SalePrice, "new product takes the catalog price")
	requireDecimal(t, "210", updated.Total)
	requireDecimal(t, "210", l.balance(t, model.KindCustomer, c))
}

func TestInvoiceUpdate_EmptyItemsRejected(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Pen", 10, "1.00", "2.00")

	created, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(p, 1)},
	})
	require.NoError(t, err)

	_, err = l.invoices.Update(ctx, l.tenant, uuid.MustParse(created.ID), dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "items")
	assert.Equal(t, 9, l.stock(t, p))
}

func TestInvoiceUpdate_InsufficientStockWritesNothing(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Flour", 5, "1.00", "2.00")
	c := l.customer(t, "Fede")

	created, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "0", line(p, 3)))
	require.NoError(t, err)
	assert.Equal(t, 2, l.stock(t, p))
	movementsBefore := l.movementCount(t, p)

	// 3 come back, 6 go out: 2 + 3 - 6 < 0.
	_, err = l.invoices.Update(ctx, l.tenant, uuid.MustParse(created.ID), dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{line(p, 6)},
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Shortages, 1)
	assert.Equal(t, p, conflict.Shortages[0].ProductID)
	assert.Equal(t, 5, conflict.Shortages[0].Available)
	assert.Equal(t, 6, conflict.Shortages[0].Required)

	assert.Equal(t, 2, l.stock(t, p))
	assert.Equal(t, movementsBefore, l.movementCount(t, p))
	requireDecimal(t, "6", l.balance(t, model.KindCustomer, c))
	got, err := l.invoices.Get(ctx, l.tenant, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Equal(t, 3, got.Items[0].Quantity)

	// Exactly the available amount is accepted.
	_, err = l.invoices.Update(ctx, l.tenant, uuid.MustParse(created.ID), dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{line(p, 5)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, l.stock(t, p))
}

// ── Delete ────────────────────────────────────────────────────────────────────

func TestInvoiceDelete_CreditInvoiceReversesEffects(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "TV", 4, "300.00", "500.00")
	c := l.customer(t, "Gus")

	created, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "0", line(p, 1)))
	require.NoError(t, err)
	requireDecimal(t, "500", l.balance(t, model.KindCustomer, c))
	assert.Equal(t, 3, l.stock(t, p))

	resp, err := l.invoices.Delete(ctx, l.tenant, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.True(t, resp.Compensated)
	assert.Equal(t, created.Number, resp.Number)

	requireDecimal(t, "0", l.balance(t, model.KindCustomer, c))
	assert.Equal(t, 4, l.stock(t, p))
	_, err = l.invoices.Get(ctx, l.tenant, uuid.MustParse(created.ID))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvoiceDelete_CancelledInvoiceHasNothingToReverse(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Radio", 4, "30.00", "50.00")

	created, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
		PaymentType: model.PaymentCash,
		Items:       []dto.InvoiceItemRequest{line(p, 1)},
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)
	_, err = l.invoices.Cancel(ctx, l.tenant, id)
	require.NoError(t, err)

	resp, err := l.invoices.Delete(ctx, l.tenant, id)
	require.NoError(t, err)
	assert.False(t, resp.Compensated)
	assert.Equal(t, 4, l.stock(t, p))
}

func TestInvoiceDelete_KeepsPaymentHistory(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Desk", 4, "60.00", "100.00")
	c := l.customer(t, "Hugo")

	created, err := l.invoices.Create(ctx, l.tenant, creditInvoice(c, "0", line(p, 1)))
	require.NoError(t, err)
	_, err = l.payments.PostCustomerPayment(ctx, l.tenant, dto.PaymentRequest{
		CustomerID: c.String(),
		InvoiceID:  strPtr(created.ID),
		Amount:     dec("40"),
	})
	require.NoError(t, err)

	_, err = l.invoices.Delete(ctx, l.tenant, uuid.MustParse(created.ID))
	require.NoError(t, err)

	history, err := l.payments.ListCustomerPayments(ctx, l.tenant, c, 1, 50)
	require.NoError(t, err)
	require.Len(t, history.Data, 1)
	assert.Nil(t, history.Data[0].InvoiceID)
	// 100 charged, 40 paid, 100 reversed.
	requireDecimal(t, "-40", l.balance(t, model.KindCustomer, c))
}

// ── List ──────────────────────────────────────────────────────────────────────

func TestInvoiceList_FiltersByStatus(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := l.product(t, "Pen", 100, "0.50", "1.00")

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		resp, err := l.invoices.Create(ctx, l.tenant, dto.CreateInvoiceRequest{
			PaymentType: model.PaymentCash,
			Items:       []dto.InvoiceItemRequest{line(p, 1)},
		})
		require.NoError(t, err)
		ids = append(ids, uuid.MustParse(resp.ID))
	}
	_, err := l.invoices.Cancel(ctx, l.tenant, ids[0])
	require.NoError(t, err)

	active, err := l.invoices.List(ctx, l.tenant, dto.DocumentFilter{Status: model.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(2), active.Total)

	cancelled, err := l.invoices.List(ctx, l.tenant, dto.DocumentFilter{Status: model.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cancelled.Total)

	all, err := l.invoices.List(ctx, l.tenant, dto.DocumentFilter{Status: "all", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Len(t, all.Data, 2)
	assert.Len(t, all.Data[0].Items, 1)
}
