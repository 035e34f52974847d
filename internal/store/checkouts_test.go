package store

import (
	"context"
	"testing"

	"github.com/erazemk/totetrack/internal/db"
)

func TestCheckoutUniquePerItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	acct := newAccount(t, database, "A")
	u1 := newUser(t, database, acct.ID, "u1@example.com", true)
	u2 := newUser(t, database, acct.ID, "u2@example.com", false)
	item := newItem(t, database, acct.ID, nil, "Drill")

	c, err := CreateCheckout(ctx, database, acct.ID, item.ID, u1.ID)
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if c.ItemName != "Drill" || c.UserEmail != "u1@example.com" {
		t.Errorf("unexpected joined fields: %+v", c)
	}

	_, err = CreateCheckout(ctx, database, acct.ID, item.ID, u2.ID)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	ok, err := DeleteCheckout(ctx, database, acct.ID, item.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteCheckout: ok=%v err=%v", ok, err)
	}
	ok, _ = DeleteCheckout(ctx, database, acct.ID, item.ID)
	if ok {
		t.Error("expected second delete to report nothing removed")
	}

	if _, err := CreateCheckout(ctx, database, acct.ID, item.ID, u2.ID); err != nil {
		t.Fatalf("CreateCheckout after checkin: %v", err)
	}
}

func TestListCheckoutsByUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	acct := newAccount(t, database, "A")
	u1 := newUser(t, database, acct.ID, "u1@example.com", true)
	u2 := newUser(t, database, acct.ID, "u2@example.com", false)
	i1 := newItem(t, database, acct.ID, nil, "One")
	i2 := newItem(t, database, acct.ID, nil, "Two")
	CreateCheckout(ctx, database, acct.ID, i1.ID, u1.ID)
	CreateCheckout(ctx, database, acct.ID, i2.ID, u2.ID)

	all, err := ListCheckouts(ctx, database, acct.ID, 0)
	if err != nil {
		t.Fatalf("ListCheckouts: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 checkouts, got %d", len(all))
	}

	mine, _ := ListCheckouts(ctx, database, acct.ID, u2.ID)
	if len(mine) != 1 || mine[0].ItemID != i2.ID {
		t.Errorf("unexpected checkouts for u2: %+v", mine)
	}
}
