package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/totetrack/internal/model"
)

const itemColumns = `id, account_id, tote_id, name, description, quantity, image_path, created_at, updated_at`

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var toteID, description, imagePath sql.NullString
	err := s.Scan(&item.ID, &item.AccountID, &toteID, &item.Name, &description, &item.Quantity,
		&imagePath, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if toteID.Valid {
		id := toteID.String
		item.ToteID = &id
	}
	item.Description = description.String
	item.ImagePath = imagePath.String
	return item, nil
}

func queryItems(ctx context.Context, q Querier, query string, args ...any) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CreateItem inserts an item. The caller assigns the ID.
func CreateItem(ctx context.Context, q Querier, item *model.Item) (*model.Item, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO items (id, account_id, tote_id, name, description, quantity, image_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.AccountID, item.ToteID, item.Name, nullString(item.Description), item.Quantity,
		nullString(item.ImagePath),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	return GetItem(ctx, q, item.AccountID, item.ID)
}

// GetItem returns an item by ID within an account.
func GetItem(ctx context.Context, q Querier, accountID int64, id string) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ? AND account_id = ?`, id, accountID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns the account's items, optionally filtered by a substring
// of name or description.
func ListItems(ctx context.Context, q Querier, accountID int64, search string) ([]model.Item, error) {
	if search == "" {
		return queryItems(ctx, q,
			`SELECT `+itemColumns+` FROM items WHERE account_id = ? ORDER BY name, id`, accountID,
		)
	}
	pattern := "%" + escapeLike(search) + "%"
	return queryItems(ctx, q,
		`SELECT `+itemColumns+` FROM items
		 WHERE account_id = ? AND (name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')
		 ORDER BY name, id`,
		accountID, pattern, pattern,
	)
}

// ListToteItems returns the items in a tote.
func ListToteItems(ctx context.Context, q Querier, accountID int64, toteID string) ([]model.Item, error) {
	return queryItems(ctx, q,
		`SELECT `+itemColumns+` FROM items WHERE account_id = ? AND tote_id = ? ORDER BY name, id`,
		accountID, toteID,
	)
}

// UpdateItem writes all mutable item fields.
func UpdateItem(ctx context.Context, q Querier, item *model.Item) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET tote_id = ?, name = ?, description = ?, quantity = ?, image_path = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND account_id = ?`,
		item.ToteID, item.Name, nullString(item.Description), item.Quantity, nullString(item.ImagePath),
		item.ID, item.AccountID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem deletes an item and its checkout record.
func DeleteItem(ctx context.Context, q Querier, accountID int64, id string) (bool, error) {
	_, err := q.ExecContext(ctx,
		`DELETE FROM checked_out_items
		 WHERE item_id IN (SELECT id FROM items WHERE id = ? AND account_id = ?)`,
		id, accountID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting item checkout: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND account_id = ?`, id, accountID)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	return ok, nil
}

// DeleteToteItems deletes every item in a tote together with their checkout
// records, and returns the image paths the deleted items held.
func DeleteToteItems(ctx context.Context, q Querier, accountID int64, toteID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT image_path FROM items
		 WHERE account_id = ? AND tote_id = ? AND image_path IS NOT NULL`,
		accountID, toteID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tote images: %w", err)
	}
	paths, err := scanStrings(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	_, err = q.ExecContext(ctx,
		`DELETE FROM checked_out_items
		 WHERE item_id IN (SELECT id FROM items WHERE account_id = ? AND tote_id = ?)`,
		accountID, toteID,
	)
	if err != nil {
		return nil, fmt.Errorf("deleting tote checkouts: %w", err)
	}

	_, err = q.ExecContext(ctx, `DELETE FROM items WHERE account_id = ? AND tote_id = ?`, accountID, toteID)
	if err != nil {
		return nil, fmt.Errorf("deleting tote items: %w", err)
	}
	return paths, nil
}
