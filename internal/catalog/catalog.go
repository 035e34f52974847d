// Package catalog manages the locations, totes and items of an account.
//
// Every operation hangs off a Scope bound to one account ID, and every
// query it issues filters by that ID. Rows of other accounts are reported
// as NotFound.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/store"
)

// FileStore keeps uploaded item images.
type FileStore interface {
	// Store validates and saves an image, returning its path.
	Store(data []byte, proposedName string) (string, error)
	// Delete removes a stored file, ignoring missing ones.
	Delete(path string)
}

// Catalog is the inventory catalog.
type Catalog struct {
	DB    *sql.DB
	Files FileStore
}

// Scope is the catalog as seen by one account.
type Scope struct {
	db        *sql.DB
	files     FileStore
	accountID int64
}

// Account returns the catalog scoped to accountID.
func (c *Catalog) Account(accountID int64) *Scope {
	return &Scope{db: c.DB, files: c.Files, accountID: accountID}
}

// AccountID returns the account the scope is bound to.
func (s *Scope) AccountID() int64 {
	return s.accountID
}

// Statistics counts the account's locations, totes, items and checkouts.
func (s *Scope) Statistics(ctx context.Context) (*model.Statistics, error) {
	return store.GetStatistics(ctx, s.db, s.accountID)
}

// release deletes files after the rows referencing them are gone.
func (s *Scope) release(paths ...string) {
	if s.files == nil {
		return
	}
	for _, p := range paths {
		if p != "" {
			s.files.Delete(p)
		}
	}
}

func begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}
