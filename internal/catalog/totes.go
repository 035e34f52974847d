package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/erazemk/totetrack/internal/apperr"
	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/store"
)

func validateMetadata(raw string) error {
	if raw != "" && !json.Valid([]byte(raw)) {
		return apperr.Validation("metadata_json must be valid JSON")
	}
	return nil
}

// checkLocation reports NotFound unless the location belongs to the account.
func (s *Scope) checkLocation(ctx context.Context, q store.Querier, id int64) error {
	l, err := store.GetLocation(ctx, q, s.accountID, id)
	if err != nil {
		return err
	}
	if l == nil {
		return apperr.NotFound("location not found")
	}
	return nil
}

// CreateTote creates a tote, optionally at a location.
func (s *Scope) CreateTote(ctx context.Context, in model.ToteCreate) (*model.Tote, error) {
	if err := validateMetadata(in.MetadataJSON); err != nil {
		return nil, err
	}

	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if in.LocationID != nil {
		if err := s.checkLocation(ctx, tx, *in.LocationID); err != nil {
			return nil, err
		}
	}

	tote, err := store.CreateTote(ctx, tx, &model.Tote{
		ID:            uuid.NewString(),
		AccountID:     s.accountID,
		Name:          in.Name,
		LocationLabel: in.LocationLabel,
		LocationID:    in.LocationID,
		MetadataJSON:  in.MetadataJSON,
		Description:   in.Description,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing tote: %w", err)
	}
	return tote, nil
}

// ListTotes returns all totes.
func (s *Scope) ListTotes(ctx context.Context) ([]model.Tote, error) {
	return store.ListTotes(ctx, s.db, s.accountID)
}

// GetTote returns a tote with its items.
func (s *Scope) GetTote(ctx context.Context, id string) (*model.Tote, error) {
	tote, err := store.GetTote(ctx, s.db, s.accountID, id)
	if err != nil {
		return nil, err
	}
	if tote == nil {
		return nil, apperr.NotFound("tote not found")
	}
	tote.Items, err = store.ListToteItems(ctx, s.db, s.accountID, id)
	if err != nil {
		return nil, err
	}
	return tote, nil
}

// UpdateTote applies a partial update to a tote.
func (s *Scope) UpdateTote(ctx context.Context, id string, patch model.TotePatch) (*model.Tote, error) {
	if patch.MetadataJSON != nil {
		if err := validateMetadata(*patch.MetadataJSON); err != nil {
			return nil, err
		}
	}

	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tote, err := store.GetTote(ctx, tx, s.accountID, id)
	if err != nil {
		return nil, err
	}
	if tote == nil {
		return nil, apperr.NotFound("tote not found")
	}

	if patch.Name != nil {
		tote.Name = *patch.Name
	}
	if patch.LocationLabel != nil {
		tote.LocationLabel = *patch.LocationLabel
	}
	switch {
	case patch.ClearLocation:
		tote.LocationID = nil
	case patch.LocationID != nil:
		if err := s.checkLocation(ctx, tx, *patch.LocationID); err != nil {
			return nil, err
		}
		tote.LocationID = patch.LocationID
	}
	if patch.MetadataJSON != nil {
		tote.MetadataJSON = *patch.MetadataJSON
	}
	if patch.Description != nil {
		tote.Description = *patch.Description
	}

	if err := store.UpdateTote(ctx, tx, tote); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing tote: %w", err)
	}
	return store.GetTote(ctx, s.db, s.accountID, id)
}

// DeleteTote deletes a tote with all its items and their checkouts in one
// transaction. Image files are released only after commit, so a rolled back
// delete never leaves a row pointing at a removed file.
func (s *Scope) DeleteTote(ctx context.Context, id string) error {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tote, err := store.GetTote(ctx, tx, s.accountID, id)
	if err != nil {
		return err
	}
	if tote == nil {
		return apperr.NotFound("tote not found")
	}

	paths, err := store.DeleteToteItems(ctx, tx, s.accountID, id)
	if err != nil {
		return err
	}
	if _, err := store.DeleteTote(ctx, tx, s.accountID, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tote delete: %w", err)
	}

	s.release(paths...)
	slog.Info("tote deleted", "account_id", s.accountID, "tote_id", id, "images", len(paths))
	return nil
}
