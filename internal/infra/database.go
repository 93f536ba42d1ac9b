package infra

import (
	"fmt"

	"ledgerpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx. Schema creation is
// left to RunMigrations so callers decide when DDL runs.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// Models lists every table owned by the ledger engine, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.TenantProfile{},
		&model.Product{},
		&model.Customer{},
		&model.Supplier{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.Supply{},
		&model.SupplyItem{},
		&model.Payment{},
		&model.SupplierPayment{},
		&model.Receipt{},
		&model.StockMovement{},
	}
}

// RunMigrations creates or updates all tables with AutoMigrate, then applies
// the PostgreSQL-only patches AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// fully handle on its own (partial indexes, check constraints). Each statement
// uses IF NOT EXISTS semantics so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Statistics scan active invoices by tenant and date.
		{"partial index invoices active by date", `
CREATE INDEX IF NOT EXISTS idx_invoices_active_date
    ON invoices (tenant_id, date) WHERE status = 'active'`},
		{"check invoice_items quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_invoice_items_quantity') THEN
    ALTER TABLE invoice_items ADD CONSTRAINT chk_invoice_items_quantity CHECK (quantity > 0);
  END IF;
END $$`},
		{"check supply_items quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_supply_items_quantity') THEN
    ALTER TABLE supply_items ADD CONSTRAINT chk_supply_items_quantity CHECK (quantity > 0);
  END IF;
END $$`},
		{"check payments amount", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_payments_amount') THEN
    ALTER TABLE payments ADD CONSTRAINT chk_payments_amount CHECK (amount > 0);
  END IF;
END $$`},
		{"check receipts amount", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_receipts_amount') THEN
    ALTER TABLE receipts ADD CONSTRAINT chk_receipts_amount CHECK (amount > 0);
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
