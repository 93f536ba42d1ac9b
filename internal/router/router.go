package router

import (
	"context"
	"time"

	"ledgerpos/internal/config"
	"ledgerpos/internal/handler"
	"ledgerpos/internal/infra"
	"ledgerpos/internal/middleware"
	"ledgerpos/internal/repository"
	"ledgerpos/internal/service"
	"ledgerpos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	tenantRateLimit  = 300
	tenantRateWindow = time.Minute
	roleAdmin        = "admin"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb and cb may be nil: statistics are then computed uncached and ledger
// events are not published. ctx bounds background goroutines started here.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, cb *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Env, cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())

	// ── Infrastructure ───────────────────────────────────────────────────────
	var events service.EventPublisher
	var statsCache service.StatsCache
	if rdb != nil {
		events = worker.NewDispatcher(rdb)
		statsCache = infra.NewStatsCache(rdb, cb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	profileRepo := repository.NewProfileRepository(db)
	productRepo := repository.NewProductRepository(db)
	counterpartyRepo := repository.NewCounterpartyRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	supplyRepo := repository.NewSupplyRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	timeout := cfg.LedgerOpTimeout
	prefixes := service.Prefixes{Invoice: cfg.InvoicePrefix, Supply: cfg.SupplyPrefix, Receipt: cfg.ReceiptPrefix}
	sequenceSvc := service.NewSequenceService(profileRepo, prefixes, timeout)
	inventorySvc := service.NewInventoryService(productRepo, movementRepo)
	balanceSvc := service.NewBalanceService(counterpartyRepo)

	invoiceSvc := service.NewInvoiceService(invoiceRepo, productRepo, sequenceSvc, inventorySvc, balanceSvc, events, timeout)
	supplySvc := service.NewSupplyService(supplyRepo, productRepo, sequenceSvc, inventorySvc, balanceSvc, events, timeout)
	paymentSvc := service.NewPaymentService(paymentRepo, invoiceRepo, supplyRepo, sequenceSvc, balanceSvc, events, timeout)
	statisticsSvc := service.NewStatisticsService(invoiceRepo, statsCache, cfg.StatsCacheTTL)
	catalogSvc := service.NewCatalogService(productRepo, counterpartyRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	invoicesH := handler.NewInvoicesHandler(invoiceSvc)
	suppliesH := handler.NewSuppliesHandler(supplySvc)
	paymentsH := handler.NewPaymentsHandler(paymentSvc)
	statisticsH := handler.NewStatisticsHandler(statisticsSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc, inventorySvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, cb))

	// Protected routes. The limiter runs after JWTAuth so it keys by tenant.
	limiter := middleware.NewRateLimiter(tenantRateLimit, tenantRateWindow)
	limiter.StartPurge(ctx)
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), limiter.Middleware())
	{
		invoices := v1.Group("/invoices")
		{
			invoices.POST("", invoicesH.Create)
			invoices.GET("", invoicesH.List)
			invoices.GET("/:id", invoicesH.Get)
			invoices.PUT("/:id", invoicesH.Update)
			invoices.POST("/:id/cancel", invoicesH.Cancel)
			invoices.DELETE("/:id", middleware.RequireRole(roleAdmin), invoicesH.Delete)
		}

		supplies := v1.Group("/supplies")
		{
			supplies.POST("", suppliesH.Create)
			supplies.GET("", suppliesH.List)
			supplies.GET("/:id", suppliesH.Get)
			supplies.PUT("/:id", suppliesH.Update)
			supplies.POST("/:id/cancel", suppliesH.Cancel)
			supplies.DELETE("/:id", middleware.RequireRole(roleAdmin), suppliesH.Delete)
		}

		v1.POST("/payments", paymentsH.PostCustomerPayment)
		v1.GET("/payments", paymentsH.ListPayments)
		v1.POST("/supplier-payments", paymentsH.PostSupplierPayment)
		v1.GET("/supplier-payments", paymentsH.ListSupplierPayments)
		v1.POST("/receipts", paymentsH.PostReceipt)
		v1.GET("/receipts", paymentsH.ListReceipts)

		v1.GET("/statistics", statisticsH.Get)

		products := v1.Group("/products")
		{
			products.POST("", catalogH.CreateProduct)
			products.GET("", catalogH.ListProducts)
			products.GET("/:id", catalogH.GetProduct)
			products.PUT("/:id", catalogH.UpdateProduct)
			products.GET("/:id/movements", catalogH.ListMovements)
		}

		customers := v1.Group("/customers")
		{
			customers.POST("", catalogH.CreateCustomer)
			customers.GET("", catalogH.ListCustomers)
			customers.GET("/:id", catalogH.GetCustomer)
			customers.PUT("/:id", catalogH.UpdateCustomer)
			customers.GET("/:id/payments", paymentsH.ListCustomerPayments)
		}

		suppliers := v1.Group("/suppliers")
		{
			suppliers.POST("", catalogH.CreateSupplier)
			suppliers.GET("", catalogH.ListSuppliers)
			suppliers.GET("/:id", catalogH.GetSupplier)
			suppliers.PUT("/:id", catalogH.UpdateSupplier)
		}
	}

	return r
}
