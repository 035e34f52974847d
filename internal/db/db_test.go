package db

import (
	"strings"
	"testing"
)

func TestDSNCarriesPragmas(t *testing.T) {
	dsn := DSN("/tmp/x.sqlite3")
	if !strings.HasPrefix(dsn, "file:/tmp/x.sqlite3?") {
		t.Errorf("unexpected prefix: %q", dsn)
	}
	for _, want := range []string{"foreign_keys%281%29", "_txlock=immediate", "busy_timeout%285000%29"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	var version int
	if err := database.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		t.Fatalf("reading version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("user_version = %d, want %d", version, len(migrations))
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO locations (account_id, name) VALUES (999, 'Garage')`)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestSingleSuperuserIndex(t *testing.T) {
	database := NewTestDB(t)

	if _, err := database.Exec(`INSERT INTO accounts (id, name) VALUES (1, 'Team Alpha')`); err != nil {
		t.Fatalf("inserting account: %v", err)
	}
	if _, err := database.Exec(`INSERT INTO users (account_id, email, password_hash, is_superuser) VALUES (1, 'a@example.com', 'x', 1)`); err != nil {
		t.Fatalf("inserting first superuser: %v", err)
	}
	if _, err := database.Exec(`INSERT INTO users (account_id, email, password_hash, is_superuser) VALUES (1, 'b@example.com', 'x', 1)`); err == nil {
		t.Fatal("expected unique violation for second superuser")
	}
}
