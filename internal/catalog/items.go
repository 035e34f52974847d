package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/totetrack/internal/apperr"
	"github.com/erazemk/totetrack/internal/filestore"
	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/store"
)

// checkTote reports NotFound unless the tote belongs to the account.
func (s *Scope) checkTote(ctx context.Context, q store.Querier, id string) error {
	t, err := store.GetTote(ctx, q, s.accountID, id)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("tote not found")
	}
	return nil
}

// storeImage saves an upload for an item and returns its path.
func (s *Scope) storeImage(item *model.Item, upload *model.Upload) (string, error) {
	if s.files == nil {
		return "", apperr.Validation("image uploads are not enabled")
	}
	if len(upload.Data) == 0 {
		return "", apperr.Validation("empty image upload")
	}
	toteID := ""
	if item.ToteID != nil {
		toteID = *item.ToteID
	}
	return s.files.Store(upload.Data, filestore.ItemImageName(toteID, item.Name, item.ID))
}

// CreateItem creates an item, optionally in a tote and with an image. The
// image is processed and stored before the write transaction starts, and
// released again if the item is not saved.
func (s *Scope) CreateItem(ctx context.Context, in model.ItemCreate, upload *model.Upload) (*model.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("item name required")
	}
	quantity := model.DefaultQuantity
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	if quantity < 0 {
		return nil, apperr.Validation("quantity must not be negative")
	}

	item := &model.Item{
		ID:          uuid.NewString(),
		AccountID:   s.accountID,
		ToteID:      in.ToteID,
		Name:        name,
		Description: in.Description,
		Quantity:    quantity,
	}
	if upload != nil {
		if item.ToteID != nil {
			if err := s.checkTote(ctx, s.db, *item.ToteID); err != nil {
				return nil, err
			}
		}
		path, err := s.storeImage(item, upload)
		if err != nil {
			return nil, err
		}
		item.ImagePath = path
	}

	created, err := s.insertItem(ctx, item)
	if err != nil {
		s.release(item.ImagePath)
		return nil, err
	}
	return created, nil
}

func (s *Scope) insertItem(ctx context.Context, item *model.Item) (*model.Item, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if item.ToteID != nil {
		if err := s.checkTote(ctx, tx, *item.ToteID); err != nil {
			return nil, err
		}
	}
	created, err := store.CreateItem(ctx, tx, item)
	if err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}
	return created, nil
}

// ListItems returns all items, optionally filtered by a search string
// matched against name and description.
func (s *Scope) ListItems(ctx context.Context, search string) ([]model.Item, error) {
	return store.ListItems(ctx, s.db, s.accountID, strings.TrimSpace(search))
}

// ToteItems returns the items in a tote.
func (s *Scope) ToteItems(ctx context.Context, toteID string) ([]model.Item, error) {
	if err := s.checkTote(ctx, s.db, toteID); err != nil {
		return nil, err
	}
	return store.ListToteItems(ctx, s.db, s.accountID, toteID)
}

// GetItem returns an item.
func (s *Scope) GetItem(ctx context.Context, id string) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.db, s.accountID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound("item not found")
	}
	return item, nil
}

// UpdateItem applies a partial update to an item. A new upload is stored
// before the write transaction starts and replaces the image. The previous
// file is released after commit.
func (s *Scope) UpdateItem(ctx context.Context, id string, patch model.ItemPatch, upload *model.Upload) (*model.Item, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Validation("item name required")
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, apperr.Validation("quantity must not be negative")
	}

	path := ""
	if upload != nil {
		current, err := s.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if !patch.Unassign && patch.ToteID != nil {
			if err := s.checkTote(ctx, s.db, *patch.ToteID); err != nil {
				return nil, err
			}
		}
		applyItemPatch(current, patch)
		if path, err = s.storeImage(current, upload); err != nil {
			return nil, err
		}
	}

	previous, err := s.saveItem(ctx, id, patch, path)
	if err != nil {
		s.release(path)
		return nil, err
	}
	if path != "" {
		s.release(previous)
	}
	return store.GetItem(ctx, s.db, s.accountID, id)
}

// applyItemPatch copies the patch's fields onto item. Tote ownership is
// checked by the caller.
func applyItemPatch(item *model.Item, patch model.ItemPatch) {
	switch {
	case patch.Unassign:
		item.ToteID = nil
	case patch.ToteID != nil:
		item.ToteID = patch.ToteID
	}
	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
}

// saveItem writes the patch and, when path is set, the new image path. It
// returns the image path the item had before the write.
func (s *Scope) saveItem(ctx context.Context, id string, patch model.ItemPatch, path string) (string, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, s.accountID, id)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", apperr.NotFound("item not found")
	}
	if !patch.Unassign && patch.ToteID != nil {
		if err := s.checkTote(ctx, tx, *patch.ToteID); err != nil {
			return "", err
		}
	}
	applyItemPatch(item, patch)

	previous := item.ImagePath
	if path != "" {
		item.ImagePath = path
	}
	if err := store.UpdateItem(ctx, tx, item); err != nil {
		return "", fmt.Errorf("saving item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing item: %w", err)
	}
	return previous, nil
}

// RemoveItemImage detaches and releases an item's image.
func (s *Scope) RemoveItemImage(ctx context.Context, id string) (*model.Item, error) {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, s.accountID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound("item not found")
	}
	if item.ImagePath == "" {
		return item, nil
	}

	previous := item.ImagePath
	item.ImagePath = ""
	if err := store.UpdateItem(ctx, tx, item); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}

	s.release(previous)
	return store.GetItem(ctx, s.db, s.accountID, id)
}

// DeleteItem deletes an item and its checkout, then releases its image.
func (s *Scope) DeleteItem(ctx context.Context, id string) error {
	tx, err := begin(ctx, s.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, s.accountID, id)
	if err != nil {
		return err
	}
	if item == nil {
		return apperr.NotFound("item not found")
	}
	if _, err := store.DeleteItem(ctx, tx, s.accountID, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item delete: %w", err)
	}

	s.release(item.ImagePath)
	return nil
}
