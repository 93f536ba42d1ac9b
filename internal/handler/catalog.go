package handler

import (
	"net/http"
	"strconv"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"
	"ledgerpos/internal/service"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves products, customers and suppliers plus the stock
// movement log of a product.
type CatalogHandler struct {
	catalog   service.CatalogService
	inventory service.InventoryService
}

func NewCatalogHandler(catalog service.CatalogService, inventory service.InventoryService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, inventory: inventory}
}

// POST /v1/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.catalog.CreateProduct(c.Request.Context(), tenant, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GET /v1/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.catalog.GetProduct(c.Request.Context(), tenant, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PUT /v1/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.catalog.UpdateProduct(c.Request.Context(), tenant, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /v1/products?name=&active=&page=&limit=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	var filter dto.ProductFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.catalog.ListProducts(c.Request.Context(), tenant, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListMovements GET /v1/products/:id/movements?kind=&page=&limit=
func (h *CatalogHandler) ListMovements(c *gin.Context) {
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
	resp, err := h.inventory.ListMovements(c.Request.Context(), tenant, id, c.Query("kind"), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateCustomer and CreateSupplier share one binding path.
func (h *CatalogHandler) CreateCustomer(c *gin.Context) { h.createCounterparty(c, model.KindCustomer) }
func (h *CatalogHandler) CreateSupplier(c *gin.Context) { h.createCounterparty(c, model.KindSupplier) }
func (h *CatalogHandler) GetCustomer(c *gin.Context)    { h.getCounterparty(c, model.KindCustomer) }
func (h *CatalogHandler) GetSupplier(c *gin.Context)    { h.getCounterparty(c, model.KindSupplier) }

func (h *CatalogHandler) UpdateCustomer(c *gin.Context) { h.updateCounterparty(c, model.KindCustomer) }
func (h *CatalogHandler) UpdateSupplier(c *gin.Context) { h.updateCounterparty(c, model.KindSupplier) }
func (h *CatalogHandler) ListCustomers(c *gin.Context)  { h.listCounterparties(c, model.KindCustomer) }
func (h *CatalogHandler) ListSuppliers(c *gin.Context)  { h.listCounterparties(c, model.KindSupplier) }

func (h *CatalogHandler) createCounterparty(c *gin.Context, kind model.CounterpartyKind) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	var req dto.CreateCounterpartyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.catalog.CreateCounterparty(c.Request.Context(), tenant, kind, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CatalogHandler) getCounterparty(c *gin.Context, kind model.CounterpartyKind) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.catalog.GetCounterparty(c.Request.Context(), tenant, kind, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) updateCounterparty(c *gin.Context, kind model.CounterpartyKind) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateCounterpartyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.catalog.UpdateCounterparty(c.Request.Context(), tenant, kind, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) listCounterparties(c *gin.Context, kind model.CounterpartyKind) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	var filter dto.CounterpartyFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.catalog.ListCounterparties(c.Request.Context(), tenant, kind, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
