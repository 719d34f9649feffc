package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate applies the raw-SQL migrations AutoMigrate can't express:
// - Money column types (NUMERIC(12,2))
// - Unique index on idempotency_records.key (the claim arbiter)
// - Lookup index on idempotency_records.expires_at (reaper sweep)
// - Basic CHECK constraints
// Every statement is idempotent so the pass can run on each boot.
func Migrate() error {
	return DB.Transaction(func(tx *gorm.DB) error {
		// --- Enforce money columns as NUMERIC(12,2) (idempotent ALTERs) ---
		alters := []string{
			`ALTER TABLE accounts     ALTER COLUMN balance    TYPE numeric(12,2)`,
			`ALTER TABLE payments     ALTER COLUMN amount     TYPE numeric(12,2)`,
			`ALTER TABLE orders       ALTER COLUMN total      TYPE numeric(12,2)`,
			`ALTER TABLE order_items  ALTER COLUMN unit_price TYPE numeric(12,2)`,
			`ALTER TABLE order_items  ALTER COLUMN line_total TYPE numeric(12,2)`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Indexes (idempotent) ---
		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_records_key ON idempotency_records (key)`,
			`CREATE INDEX IF NOT EXISTS idx_idempotency_records_expires_at ON idempotency_records (expires_at)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_account_created ON payments (account_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Basic CHECK constraints (idempotent) ---
		checks := []string{
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'payments'::regclass
					  AND conname  = 'chk_payments_amount_positive'
				) THEN
					ALTER TABLE payments
					ADD CONSTRAINT chk_payments_amount_positive
					CHECK (amount > 0);
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'accounts'::regclass
					  AND conname  = 'chk_accounts_balance_nonneg'
				) THEN
					ALTER TABLE accounts
					ADD CONSTRAINT chk_accounts_balance_nonneg
					CHECK (balance >= 0);
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'order_items'::regclass
					  AND conname  = 'chk_order_items_quantity_positive'
				) THEN
					ALTER TABLE order_items
					ADD CONSTRAINT chk_order_items_quantity_positive
					CHECK (quantity > 0);
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
