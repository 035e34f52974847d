// Package checkout lends items to users. An item is either available or
// checked out to exactly one user; the UNIQUE constraint on
// checked_out_items.item_id is what keeps it that way under concurrency.
package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/totetrack/internal/apperr"
	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/store"
)

// Ledger records checkouts.
type Ledger struct {
	DB *sql.DB
}

// Checkout lends an item to actor.
func (l *Ledger) Checkout(ctx context.Context, actor *model.User, itemID string) (*model.CheckedOutItem, error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, actor.AccountID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound("item not found")
	}

	c, err := store.CreateCheckout(ctx, tx, actor.AccountID, itemID, actor.ID)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.KindConflict, "item already checked out", err)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.KindConflict, "item already checked out", err)
		}
		return nil, fmt.Errorf("committing checkout: %w", err)
	}

	slog.Info("item checked out", "account_id", actor.AccountID, "item_id", itemID, "user_id", actor.ID)
	return c, nil
}

// Checkin returns a checked-out item. Any member of the account may check
// an item in.
func (l *Ledger) Checkin(ctx context.Context, actor *model.User, itemID string) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, actor.AccountID, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return apperr.NotFound("item not found")
	}

	ok, err := store.DeleteCheckout(ctx, tx, actor.AccountID, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("item is not checked out")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing checkin: %w", err)
	}

	slog.Info("item checked in", "account_id", actor.AccountID, "item_id", itemID, "user_id", actor.ID)
	return nil
}

// ListCheckedOut returns the account's active checkouts.
func (l *Ledger) ListCheckedOut(ctx context.Context, accountID int64) ([]model.CheckedOutItem, error) {
	return store.ListCheckouts(ctx, l.DB, accountID, 0)
}

// ListCheckedOutByUser returns the items actor has checked out.
func (l *Ledger) ListCheckedOutByUser(ctx context.Context, actor *model.User) ([]model.CheckedOutItem, error) {
	return store.ListCheckouts(ctx, l.DB, actor.AccountID, actor.ID)
}

// Status returns an item with its checkout, if any.
func (l *Ledger) Status(ctx context.Context, accountID int64, itemID string) (*model.ItemCheckoutStatus, error) {
	item, err := store.GetItem(ctx, l.DB, accountID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound("item not found")
	}
	c, err := store.GetCheckout(ctx, l.DB, accountID, itemID)
	if err != nil {
		return nil, err
	}
	return &model.ItemCheckoutStatus{Item: *item, CheckedOut: c != nil, Checkout: c}, nil
}
