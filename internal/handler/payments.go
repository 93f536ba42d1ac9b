package handler

import (
	"net/http"
	"strconv"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PaymentsHandler struct{ svc service.PaymentService }

func NewPaymentsHandler(svc service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

// PostCustomerPayment lowers the customer's balance by the amount.
// POST /v1/payments
func (h *PaymentsHandler) PostCustomerPayment(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PostCustomerPayment(c.Request.Context(), tenant, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// PostSupplierPayment lowers what the store owes the supplier.
// POST /v1/supplier-payments
func (h *PaymentsHandler) PostSupplierPayment(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	var req dto.SupplierPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PostSupplierPayment(c.Request.Context(), tenant, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// PostReceipt posts a numbered receipt against a customer or supplier.
// POST /v1/receipts
func (h *PaymentsHandler) PostReceipt(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	var req dto.ReceiptRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PostReceipt(c.Request.Context(), tenant, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListCustomerPayments GET /v1/customers/:id/payments?page=&limit=
func (h *PaymentsHandler) ListCustomerPayments(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.svc.ListCustomerPayments(c.Request.Context(), tenant, id, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListPayments GET /v1/payments?entity_id=&from=&to=&page=&limit=
func (h *PaymentsHandler) ListPayments(c *gin.Context) {
	tenant, filter, ok := bindPaymentFilter(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListPayments(c.Request.Context(), tenant, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSupplierPayments GET /v1/supplier-payments?entity_id=&from=&to=&page=&limit=
func (h *PaymentsHandler) ListSupplierPayments(c *gin.Context) {
	tenant, filter, ok := bindPaymentFilter(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListSupplierPayments(c.Request.Context(), tenant, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListReceipts GET /v1/receipts?entity_type=&entity_id=&from=&to=&page=&limit=
func (h *PaymentsHandler) ListReceipts(c *gin.Context) {
	tenant, filter, ok := bindPaymentFilter(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListReceipts(c.Request.Context(), tenant, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bindPaymentFilter(c *gin.Context) (uuid.UUID, dto.PaymentFilter, bool) {
	var filter dto.PaymentFilter
	tenant, ok := tenantID(c)
	if !ok {
		return uuid.Nil, filter, false
	}
	if !bindQuery(c, &filter) {
		return uuid.Nil, filter, false
	}
	for _, f := range [...]struct{ field, raw string }{{"from", filter.From}, {"to", filter.To}} {
		if f.raw == "" {
			continue
		}
		if _, verr := parseDate(f.field, f.raw); verr != nil {
			writeError(c, verr)
			return uuid.Nil, filter, false
		}
	}
	return tenant, filter, true
}
