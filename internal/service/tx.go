package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultOpTimeout bounds a ledger operation when the caller configures none.
const DefaultOpTimeout = 10 * time.Second

// runTx executes fn inside one GORM transaction bounded by timeout. Any error
// returned by fn, or a timeout, rolls back every write made through tx.
// A transaction the database aborted as a deadlock victim or for a
// serialization failure is run once more; a second abort surfaces as a
// ConflictError.
func runTx(ctx context.Context, db *gorm.DB, timeout time.Duration, op string, fn func(tx *gorm.DB) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := db.WithContext(ctx).Transaction(fn)
	if lockConflict(err) && ctx.Err() == nil {
		log.Warn().Err(err).Str("op", op).Msg("transaction aborted by lock conflict, retrying")
		err = db.WithContext(ctx).Transaction(fn)
	}
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return classifyStoreError(op, err)
}
