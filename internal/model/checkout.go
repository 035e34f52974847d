package model

import "time"

// CheckedOutItem is a ledger entry for an item lent to a user. At most one
// exists per item.
type CheckedOutItem struct {
	ID           int64     `json:"id"`
	ItemID       string    `json:"item_id"`
	UserID       int64     `json:"user_id"`
	CheckedOutAt time.Time `json:"checked_out_at"`

	// Joined fields (not always populated).
	ItemName     string  `json:"item_name,omitempty"`
	ToteID       *string `json:"tote_id,omitempty"`
	UserEmail    string  `json:"user_email,omitempty"`
	UserFullName string  `json:"user_full_name,omitempty"`
}

// ItemCheckoutStatus is an item together with its active checkout, if any.
type ItemCheckoutStatus struct {
	Item       Item            `json:"item"`
	CheckedOut bool            `json:"is_checked_out"`
	Checkout   *CheckedOutItem `json:"checkout,omitempty"`
}
