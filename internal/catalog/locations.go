package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/totetrack/internal/apperr"
	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/store"
)

// CreateLocation creates a location.
func (s *Scope) CreateLocation(ctx context.Context, in model.LocationCreate) (*model.Location, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("location name required")
	}
	return store.CreateLocation(ctx, s.db, s.accountID, name, in.Description)
}

// ListLocations returns all locations.
func (s *Scope) ListLocations(ctx context.Context) ([]model.Location, error) {
	return store.ListLocations(ctx, s.db, s.accountID)
}

// GetLocation returns a location.
func (s *Scope) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	l, err := store.GetLocation(ctx, s.db, s.accountID, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.NotFound("location not found")
	}
	return l, nil
}

// UpdateLocation applies a partial update to a location.
func (s *Scope) UpdateLocation(ctx context.Context, id int64, patch model.LocationPatch) (*model.Location, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Validation("location name required")
	}

	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	l, err := store.GetLocation(ctx, tx, s.accountID, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.NotFound("location not found")
	}
	if patch.Name != nil {
		l.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		l.Description = *patch.Description
	}
	if err := store.UpdateLocation(ctx, tx, l); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing location: %w", err)
	}
	return store.GetLocation(ctx, s.db, s.accountID, id)
}

// DeleteLocation deletes a location. Totes at the location are kept and
// become unassigned.
func (s *Scope) DeleteLocation(ctx context.Context, id int64) error {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := store.DeleteLocation(ctx, tx, s.accountID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("location not found")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing location delete: %w", err)
	}
	return nil
}

// LocationTotes returns the totes at a location.
func (s *Scope) LocationTotes(ctx context.Context, id int64) ([]model.Tote, error) {
	if _, err := s.GetLocation(ctx, id); err != nil {
		return nil, err
	}
	return store.ListLocationTotes(ctx, s.db, s.accountID, id)
}
