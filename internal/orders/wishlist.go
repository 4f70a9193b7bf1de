package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prakamrit/storefront/internal/db"
)

// WishlistStore keeps saved product ids per browser session.
type WishlistStore struct {
	db *sql.DB
}

func NewWishlistStore(database *sql.DB) *WishlistStore {
	return &WishlistStore{db: database}
}

// Toggle adds productID to the session's wishlist, or removes it when it
// is already there. It reports whether the product is now saved.
func (w *WishlistStore) Toggle(ctx context.Context, sessionID, productID string) (bool, error) {
	var saved bool
	err := db.WithTx(ctx, w.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM wishlist WHERE session_id = ? AND product_id = ?`, sessionID, productID)
		if err != nil {
			return fmt.Errorf("delete wishlist entry: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("read wishlist delete count: %w", err)
		}
		if removed > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO wishlist (session_id, product_id) VALUES (?, ?)`, sessionID, productID); err != nil {
			return fmt.Errorf("insert wishlist entry: %w", err)
		}
		saved = true
		return nil
	})
	return saved, err
}

// List returns the session's saved product ids in the order they were added.
func (w *WishlistStore) List(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT product_id FROM wishlist
		WHERE session_id = ?
		ORDER BY created_at, rowid
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query wishlist: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan wishlist entry: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist: %w", err)
	}
	return ids, nil
}
