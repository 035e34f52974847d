package db

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order on top of the base schema. The applied
// count is tracked in PRAGMA user_version. Append new migrations at the end.
var migrations = []string{
	// 1: lookup indexes for account-scoped listings.
	`CREATE INDEX IF NOT EXISTS idx_users_account ON users(account_id);
	 CREATE INDEX IF NOT EXISTS idx_locations_account ON locations(account_id);
	 CREATE INDEX IF NOT EXISTS idx_totes_account ON totes(account_id);
	 CREATE INDEX IF NOT EXISTS idx_totes_location ON totes(location_id);
	 CREATE INDEX IF NOT EXISTS idx_items_account ON items(account_id);
	 CREATE INDEX IF NOT EXISTS idx_items_tote ON items(tote_id);
	 CREATE INDEX IF NOT EXISTS idx_checked_out_user ON checked_out_items(user_id);`,
}

// Migrate applies migrations that have not run yet.
func Migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
	}

	return nil
}
