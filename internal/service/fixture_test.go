package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ledgerpos/internal/infra"
	"ledgerpos/internal/model"
	"ledgerpos/internal/repository"
	"ledgerpos/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// recordingPublisher captures published ledger events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []worker.LedgerEvent
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev worker.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var _ EventPublisher = (*recordingPublisher)(nil)

// memStatsCache is an in-memory StatsCache. beforeSet, when set, runs ahead
// of every write.
type memStatsCache struct {
	mu        sync.Mutex
	data      map[string][]byte
	gens      map[string]int64
	gets      int
	hits      int
	beforeSet func()
}

func newMemStatsCache() *memStatsCache {
	return &memStatsCache{data: make(map[string][]byte), gens: make(map[string]int64)}
}

func (c *memStatsCache) Generation(_ context.Context, tenantID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[tenantID], nil
}

func (c *memStatsCache) InvalidateTenant(_ context.Context, tenantID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[tenantID]++
	return c.gens[tenantID], nil
}

func (c *memStatsCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *memStatsCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val
	return nil
}

var _ StatsCache = (*memStatsCache)(nil)

// ── Fixture ───────────────────────────────────────────────────────────────────

// ledger wires every service against real repositories on a private
// in-memory SQLite database.
type ledger struct {
	db     *gorm.DB
	tenant uuid.UUID
	events *recordingPublisher

	sequence  SequenceService
	inventory InventoryService
	balances  BalanceService
	invoices  InvoiceService
	supplies  SupplyService
	payments  PaymentService
	stats     StatisticsService
	catalog   CatalogService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection: SQLite serializes writers, and every query of an
	// operation runs on the transaction's connection.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	db := newTestDB(t)
	return newLedgerWithCache(t, db, nil)
}

func newLedgerWithCache(t *testing.T, db *gorm.DB, cache StatsCache) *ledger {
	t.Helper()
	events := &recordingPublisher{}

	profiles := repository.NewProfileRepository(db)
	products := repository.NewProductRepository(db)
	counterparties := repository.NewCounterpartyRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	supplyRepo := repository.NewSupplyRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	movements := repository.NewStockMovementRepository(db)

	seq := NewSequenceService(profiles, DefaultPrefixes(), DefaultOpTimeout)
	inv := NewInventoryService(products, movements)
	bal := NewBalanceService(counterparties)

	return &ledger{
		db:        db,
		tenant:    uuid.New(),
		events:    events,
		sequence:  seq,
		inventory: inv,
		balances:  bal,
		invoices:  NewInvoiceService(invoiceRepo, products, seq, inv, bal, events, DefaultOpTimeout),
		supplies:  NewSupplyService(supplyRepo, products, seq, inv, bal, events, DefaultOpTimeout),
		payments:  NewPaymentService(paymentRepo, invoiceRepo, supplyRepo, seq, bal, events, DefaultOpTimeout),
		stats:     NewStatisticsService(invoiceRepo, cache, time.Minute),
		catalog:   NewCatalogService(products, counterparties),
	}
}

func (l *ledger) product(t *testing.T, name string, stock int, purchase, sale string) uuid.UUID {
	t.Helper()
	p := model.Product{
		TenantID:      l.tenant,
		Name:          name,
		Stock:         stock,
		PurchasePrice: dec(purchase),
		SalePrice:     dec(sale),
		Active:        true,
	}
	require.NoError(t, l.db.Create(&p).Error)
	return p.ID
}

func (l *ledger) customer(t *testing.T, name string) uuid.UUID {
	t.Helper()
	c := model.Customer{TenantID: l.tenant, Name: name, Balance: decimal.Zero}
	require.NoError(t, l.db.Create(&c).Error)
	return c.ID
}

func (l *ledger) supplier(t *testing.T, name string) uuid.UUID {
	t.Helper()
	s := model.Supplier{TenantID: l.tenant, Name: name, Balance: decimal.Zero}
	require.NoError(t, l.db.Create(&s).Error)
	return s.ID
}

func (l *ledger) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p model.Product
	require.NoError(t, l.db.First(&p, "id = ?", id).Error)
	return p.Stock
}

func (l *ledger) purchasePrice(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var p model.Product
	require.NoError(t, l.db.First(&p, "id = ?", id).Error)
	return p.PurchasePrice
}

func (l *ledger) balance(t *testing.T, kind model.CounterpartyKind, id uuid.UUID) decimal.Decimal {
	t.Helper()
	b, err := l.balances.Balance(context.Background(), l.tenant, kind, id)
	require.NoError(t, err)
	return b
}

func (l *ledger) movementCount(t *testing.T, productID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, l.db.Model(&model.StockMovement{}).Where("product_id = ?", productID).Count(&n).Error)
	return n
}

// ── Value helpers ─────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func idPtr(id uuid.UUID) *string { return strPtr(id.String()) }

// requireDecimal compares by value so 500 and 500.00 are equal.
func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}
