package model

import "time"

// Location is a named place that totes can be assigned to.
type Location struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tote is a physical storage container.
type Tote struct {
	ID            string    `json:"id"`
	AccountID     int64     `json:"account_id"`
	Name          string    `json:"name,omitempty"`
	LocationLabel string    `json:"location,omitempty"`
	LocationID    *int64    `json:"location_id,omitempty"`
	MetadataJSON  string    `json:"metadata_json,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Populated by GetTote only.
	Items []Item `json:"items,omitempty"`
}

// Item is an object stored in a tote, or unassigned when ToteID is nil.
type Item struct {
	ID          string    `json:"id"`
	AccountID   int64     `json:"account_id"`
	ToteID      *string   `json:"tote_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Quantity    int       `json:"quantity"`
	ImagePath   string    `json:"image_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Upload is an image payload attached to an item write.
type Upload struct {
	Data     []byte
	Filename string
}

// LocationCreate is the input for creating a location.
type LocationCreate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LocationPatch is a partial location update.
type LocationPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ToteCreate is the input for creating a tote.
type ToteCreate struct {
	Name          string `json:"name"`
	LocationLabel string `json:"location"`
	LocationID    *int64 `json:"location_id"`
	MetadataJSON  string `json:"metadata_json"`
	Description   string `json:"description"`
}

// TotePatch is a partial tote update. ClearLocation unassigns the tote from
// its location and takes precedence over LocationID.
type TotePatch struct {
	Name          *string `json:"name,omitempty"`
	LocationLabel *string `json:"location,omitempty"`
	LocationID    *int64  `json:"location_id,omitempty"`
	ClearLocation bool    `json:"clear_location,omitempty"`
	MetadataJSON  *string `json:"metadata_json,omitempty"`
	Description   *string `json:"description,omitempty"`
}

// ItemCreate is the input for creating an item.
type ItemCreate struct {
	ToteID      *string `json:"tote_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    *int    `json:"quantity"`
}

// ItemPatch is a partial item update. Unassign removes the item from its
// tote and takes precedence over ToteID.
type ItemPatch struct {
	ToteID      *string `json:"tote_id,omitempty"`
	Unassign    bool    `json:"unassign,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
}

// DefaultQuantity is used when an item is created without a quantity.
const DefaultQuantity = 1

// Statistics summarizes an account's inventory.
type Statistics struct {
	LocationsCount  int `json:"locations_count"`
	TotesCount      int `json:"totes_count"`
	ItemsCount      int `json:"items_count"`
	CheckedOutCount int `json:"checked_out_count"`
}
