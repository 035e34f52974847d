package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/totetrack/internal/model"
)

const toteColumns = `id, account_id, name, location_label, location_id, metadata_json, description,
	created_at, updated_at`

func scanTote(s scanner) (*model.Tote, error) {
	t := &model.Tote{}
	var name, label, metadata, description sql.NullString
	var locationID sql.NullInt64
	err := s.Scan(&t.ID, &t.AccountID, &name, &label, &locationID, &metadata, &description,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Name = name.String
	t.LocationLabel = label.String
	t.MetadataJSON = metadata.String
	t.Description = description.String
	if locationID.Valid {
		id := locationID.Int64
		t.LocationID = &id
	}
	return t, nil
}

func queryTotes(ctx context.Context, q Querier, query string, args ...any) ([]model.Tote, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing totes: %w", err)
	}
	defer rows.Close()

	var totes []model.Tote
	for rows.Next() {
		t, err := scanTote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tote: %w", err)
		}
		totes = append(totes, *t)
	}
	return totes, rows.Err()
}

// CreateTote inserts a tote. The caller assigns the ID.
func CreateTote(ctx context.Context, q Querier, t *model.Tote) (*model.Tote, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO totes (id, account_id, name, location_label, location_id, metadata_json, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, nullString(t.Name), nullString(t.LocationLabel), t.LocationID,
		nullString(t.MetadataJSON), nullString(t.Description),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tote: %w", err)
	}
	return GetTote(ctx, q, t.AccountID, t.ID)
}

// GetTote returns a tote by ID within an account.
func GetTote(ctx context.Context, q Querier, accountID int64, id string) (*model.Tote, error) {
	t, err := scanTote(q.QueryRowContext(ctx,
		`SELECT `+toteColumns+` FROM totes WHERE id = ? AND account_id = ?`, id, accountID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tote: %w", err)
	}
	return t, nil
}

// ListTotes returns all totes of an account.
func ListTotes(ctx context.Context, q Querier, accountID int64) ([]model.Tote, error) {
	return queryTotes(ctx, q,
		`SELECT `+toteColumns+` FROM totes WHERE account_id = ? ORDER BY created_at, id`, accountID,
	)
}

// ListLocationTotes returns the totes assigned to a location.
func ListLocationTotes(ctx context.Context, q Querier, accountID, locationID int64) ([]model.Tote, error) {
	return queryTotes(ctx, q,
		`SELECT `+toteColumns+` FROM totes WHERE account_id = ? AND location_id = ? ORDER BY created_at, id`,
		accountID, locationID,
	)
}

// UpdateTote writes all mutable tote fields.
func UpdateTote(ctx context.Context, q Querier, t *model.Tote) error {
	_, err := q.ExecContext(ctx,
		`UPDATE totes SET name = ?, location_label = ?, location_id = ?, metadata_json = ?, description = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND account_id = ?`,
		nullString(t.Name), nullString(t.LocationLabel), t.LocationID, nullString(t.MetadataJSON),
		nullString(t.Description), t.ID, t.AccountID,
	)
	if err != nil {
		return fmt.Errorf("updating tote: %w", err)
	}
	return nil
}

// DeleteTote deletes a tote row. Its items must already be gone.
func DeleteTote(ctx context.Context, q Querier, accountID int64, id string) (bool, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM totes WHERE id = ? AND account_id = ?`, id, accountID)
	if err != nil {
		return false, fmt.Errorf("deleting tote: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return false, fmt.Errorf("deleting tote: %w", err)
	}
	return ok, nil
}
