package service

import (
	"context"
	"strings"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"
	"ledgerpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService manages the records documents refer to. Stock and balances
// are not editable here.
type CatalogService interface {
	CreateProduct(ctx context.Context, tenantID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetProduct(ctx context.Context, tenantID, id uuid.UUID) (*dto.ProductResponse, error)
	// UpdateProduct changes catalog fields only; documents already issued keep
	// the prices they captured.
	UpdateProduct(ctx context.Context, tenantID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	ListProducts(ctx context.Context, tenantID uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error)

	CreateCounterparty(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, req dto.CreateCounterpartyRequest) (*dto.CounterpartyResponse, error)
	GetCounterparty(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID) (*dto.CounterpartyResponse, error)
	UpdateCounterparty(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID, req dto.UpdateCounterpartyRequest) (*dto.CounterpartyResponse, error)
	ListCounterparties(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, filter dto.CounterpartyFilter) (*dto.CounterpartyListResponse, error)
}

type catalogService struct {
	products       repository.ProductRepository
	counterparties repository.CounterpartyRepository
}

func NewCatalogService(products repository.ProductRepository, counterparties repository.CounterpartyRepository) CatalogService {
	return &catalogService{products: products, counterparties: counterparties}
}

func (s *catalogService) CreateProduct(ctx context.Context, tenantID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "required")
	}
	if req.PurchasePrice.IsNegative() {
		return nil, invalid("purchase_price", "must not be negative")
	}
	if req.SalePrice.IsNegative() {
		return nil, invalid("sale_price", "must not be negative")
	}
	p := &model.Product{
		TenantID:      tenantID,
		Name:          name,
		Stock:         req.Stock,
		PurchasePrice: money(req.PurchasePrice),
		SalePrice:     money(req.SalePrice),
		Active:        true,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, classifyStoreError("create product", err)
	}
	return productToResponse(p), nil
}

func (s *catalogService) GetProduct(ctx context.Context, tenantID, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupError(err, "product", id, "find product")
	}
	return productToResponse(p), nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, tenantID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name", "required")
		}
		fields["name"] = name
	}
	if req.PurchasePrice != nil {
		if req.PurchasePrice.IsNegative() {
			return nil, invalid("purchase_price", "must not be negative")
		}
		fields["purchase_price"] = money(*req.PurchasePrice)
	}
	if req.SalePrice != nil {
		if req.SalePrice.IsNegative() {
			return nil, invalid("sale_price", "must not be negative")
		}
		fields["sale_price"] = money(*req.SalePrice)
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if len(fields) > 0 {
		if err := s.products.UpdateFields(ctx, tenantID, id, fields); err != nil {
			return nil, lookupError(err, "product", id, "update product")
		}
	}
	return s.GetProduct(ctx, tenantID, id)
}

func (s *catalogService) ListProducts(ctx context.Context, tenantID uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	products, total, err := s.products.List(ctx, tenantID, filter)
	if err != nil {
		return nil, classifyStoreError("list products", err)
	}
	resp := &dto.ProductListResponse{
		Data:  make([]dto.ProductResponse, 0, len(products)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range products {
		resp.Data = append(resp.Data, *productToResponse(&products[i]))
	}
	return resp, nil
}

func (s *catalogService) CreateCounterparty(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, req dto.CreateCounterpartyRequest) (*dto.CounterpartyResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "required")
	}
	switch kind {
	case model.KindCustomer:
		c := &model.Customer{TenantID: tenantID, Name: name, Phone: req.Phone, Balance: decimal.Zero}
		if err := s.counterparties.CreateCustomer(ctx, c); err != nil {
			return nil, classifyStoreError("create customer", err)
		}
		return &dto.CounterpartyResponse{ID: c.ID.String(), Kind: string(kind), Name: c.Name, Phone: c.Phone, Balance: c.Balance}, nil
	case model.KindSupplier:
		sp := &model.Supplier{TenantID: tenantID, Name: name, Phone: req.Phone, Balance: decimal.Zero}
		if err := s.counterparties.CreateSupplier(ctx, sp); err != nil {
			return nil, classifyStoreError("create supplier", err)
		}
		return &dto.CounterpartyResponse{ID: sp.ID.String(), Kind: string(kind), Name: sp.Name, Phone: sp.Phone, Balance: sp.Balance}, nil
	default:
		return nil, invalid("kind", "must be customer or supplier")
	}
}

func (s *catalogService) GetCounterparty(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID) (*dto.CounterpartyResponse, error) {
	switch kind {
	case model.KindCustomer:
		c, err := s.counterparties.FindCustomer(ctx, tenantID, id)
		if err != nil {
			return nil, lookupError(err, "customer", id, "find customer")
		}
		return &dto.CounterpartyResponse{ID: c.ID.String(), Kind: string(kind), Name: c.Name, Phone: c.Phone, Balance: c.Balance}, nil
	case model.KindSupplier:
		sp, err := s.counterparties.FindSupplier(ctx, tenantID, id)
		if err != nil {
			return nil, lookupError(err, "supplier", id, "find supplier")
		}
		return &dto.CounterpartyResponse{ID: sp.ID.String(), Kind: string(kind), Name: sp.Name, Phone: sp.Phone, Balance: sp.Balance}, nil
	default:
		return nil, invalid("kind", "must be customer or supplier")
	}
}

func (s *catalogService) UpdateCounterparty(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID, req dto.UpdateCounterpartyRequest) (*dto.CounterpartyResponse, error) {
	if !kind.Valid() {
		return nil, invalid("kind", "must be customer or supplier")
	}
	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name", "required")
		}
		fields["name"] = name
	}
	if req.Phone != nil {
		// An empty phone clears it.
		if phone := strings.TrimSpace(*req.Phone); phone != "" {
			fields["phone"] = phone
		} else {
			fields["phone"] = nil
		}
	}
	if len(fields) > 0 {
		if err := s.counterparties.UpdateFields(ctx, tenantID, kind, id, fields); err != nil {
			return nil, lookupError(err, string(kind), id, "update "+string(kind))
		}
	}
	return s.GetCounterparty(ctx, tenantID, kind, id)
}

func (s *catalogService) ListCounterparties(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, filter dto.CounterpartyFilter) (*dto.CounterpartyListResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	resp := &dto.CounterpartyListResponse{Page: filter.Page, Limit: filter.Limit}
	switch kind {
	case model.KindCustomer:
		customers, total, err := s.counterparties.ListCustomers(ctx, tenantID, filter)
		if err != nil {
			return nil, classifyStoreError("list customers", err)
		}
		resp.Total = total
		resp.Data = make([]dto.CounterpartyResponse, 0, len(customers))
		for _, c := range customers {
			resp.Data = append(resp.Data, dto.CounterpartyResponse{ID: c.ID.String(), Kind: string(kind), Name: c.Name, Phone: c.Phone, Balance: c.Balance})
		}
	case model.KindSupplier:
		suppliers, total, err := s.counterparties.ListSuppliers(ctx, tenantID, filter)
		if err != nil {
			return nil, classifyStoreError("list suppliers", err)
		}
		resp.Total = total
		resp.Data = make([]dto.CounterpartyResponse, 0, len(suppliers))
		for _, sp := range suppliers {
			resp.Data = append(resp.Data, dto.CounterpartyResponse{ID: sp.ID.String(), Kind: string(kind), Name: sp.Name, Phone: sp.Phone, Balance: sp.Balance})
		}
	default:
		return nil, invalid("kind", "must be customer or supplier")
	}
	return resp, nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		Stock:         p.Stock,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		Active:        p.Active,
	}
}
