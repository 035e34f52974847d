package store

import (
	"context"
	"fmt"

	"github.com/erazemk/totetrack/internal/model"
)

// GetStatistics counts an account's locations, totes, items and active
// checkouts.
func GetStatistics(ctx context.Context, q Querier, accountID int64) (*model.Statistics, error) {
	s := &model.Statistics{}
	err := q.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM locations WHERE account_id = ?1),
		    (SELECT COUNT(*) FROM totes WHERE account_id = ?1),
		    (SELECT COUNT(*) FROM items WHERE account_id = ?1),
		    (SELECT COUNT(*) FROM checked_out_items c JOIN items i ON i.id = c.item_id
		      WHERE i.account_id = ?1)`,
		accountID,
	).Scan(&s.LocationsCount, &s.TotesCount, &s.ItemsCount, &s.CheckedOutCount)
	if err != nil {
		return nil, fmt.Errorf("counting statistics: %w", err)
	}
	return s, nil
}
