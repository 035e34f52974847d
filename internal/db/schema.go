package db

import (
	"database/sql"
	"fmt"
)

// schema is the base database schema.
//
// Foreign keys carry no cascades; parents are cleared explicitly by the
// store so file cleanup can follow row deletion.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id                        INTEGER PRIMARY KEY,
    account_id                INTEGER NOT NULL REFERENCES accounts(id),
    email                     TEXT NOT NULL UNIQUE COLLATE NOCASE,
    full_name                 TEXT NOT NULL DEFAULT '',
    password_hash             TEXT NOT NULL,
    is_active                 INTEGER NOT NULL DEFAULT 1,
    is_superuser              INTEGER NOT NULL DEFAULT 0,
    recovery_token_hash       TEXT,
    recovery_token_lookup     TEXT,
    recovery_token_expires_at DATETIME,
    created_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_one_superuser
    ON users(account_id) WHERE is_superuser = 1;

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_recovery_lookup
    ON users(recovery_token_lookup) WHERE recovery_token_lookup IS NOT NULL;

CREATE TABLE IF NOT EXISTS locations (
    id          INTEGER PRIMARY KEY,
    account_id  INTEGER NOT NULL REFERENCES accounts(id),
    name        TEXT NOT NULL,
    description TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS totes (
    id             TEXT PRIMARY KEY,
    account_id     INTEGER NOT NULL REFERENCES accounts(id),
    name           TEXT,
    location_label TEXT,
    location_id    INTEGER REFERENCES locations(id),
    metadata_json  TEXT,
    description    TEXT,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id          TEXT PRIMARY KEY,
    account_id  INTEGER NOT NULL REFERENCES accounts(id),
    tote_id     TEXT REFERENCES totes(id),
    name        TEXT NOT NULL,
    description TEXT,
    quantity    INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 0),
    image_path  TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS checked_out_items (
    id             INTEGER PRIMARY KEY,
    item_id        TEXT NOT NULL UNIQUE REFERENCES items(id),
    user_id        INTEGER NOT NULL REFERENCES users(id),
    checked_out_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return Migrate(db)
}
