package database

import (
	"context"

	"warbler/internal/cache"

	"gorm.io/gorm"
)

// WithTx runs fn inside a transaction, committing on success and rolling back
// on error or panic. Panics are rethrown after rollback. Cache invalidations
// made by repositories bound to tx are replayed once the commit succeeds.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	pending := &cache.Pending{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx.WithContext(cache.WithPending(tx.Statement.Context, pending)))
	})
	if err != nil {
		return err
	}
	pending.Flush(ctx)
	return nil
}
