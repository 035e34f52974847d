package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/totetrack/internal/model"
)

const locationColumns = `id, account_id, name, description, created_at, updated_at`

func scanLocation(s scanner) (*model.Location, error) {
	l := &model.Location{}
	var description sql.NullString
	if err := s.Scan(&l.ID, &l.AccountID, &l.Name, &description, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Description = description.String
	return l, nil
}

// CreateLocation creates a new location in an account.
func CreateLocation(ctx context.Context, q Querier, accountID int64, name, description string) (*model.Location, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO locations (account_id, name, description) VALUES (?, ?, ?)`,
		accountID, name, nullString(description),
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting location id: %w", err)
	}

	return GetLocation(ctx, q, accountID, id)
}

// GetLocation returns a location by ID within an account.
func GetLocation(ctx context.Context, q Querier, accountID, id int64) (*model.Location, error) {
	l, err := scanLocation(q.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = ? AND account_id = ?`, id, accountID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return l, nil
}

// ListLocations returns all locations of an account.
func ListLocations(ctx context.Context, q Querier, accountID int64) ([]model.Location, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE account_id = ? ORDER BY name, id`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

// UpdateLocation writes a location's name and description.
func UpdateLocation(ctx context.Context, q Querier, l *model.Location) error {
	_, err := q.ExecContext(ctx,
		`UPDATE locations SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND account_id = ?`,
		l.Name, nullString(l.Description), l.ID, l.AccountID,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	return nil
}

// DeleteLocation detaches all totes from a location and deletes it. It
// reports whether a location was deleted.
func DeleteLocation(ctx context.Context, q Querier, accountID, id int64) (bool, error) {
	_, err := q.ExecContext(ctx,
		`UPDATE totes SET location_id = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE location_id = ? AND account_id = ?`,
		id, accountID,
	)
	if err != nil {
		return false, fmt.Errorf("detaching totes: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM locations WHERE id = ? AND account_id = ?`, id, accountID)
	if err != nil {
		return false, fmt.Errorf("deleting location: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return false, fmt.Errorf("deleting location: %w", err)
	}
	return ok, nil
}
