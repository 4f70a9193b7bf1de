package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
	"github.com/prakamrit/storefront/internal/db"
	"github.com/prakamrit/storefront/internal/orders"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	// DemoOrders fills an empty orders table with sample orders so the
	// admin dashboard has something to show in development.
	DemoOrders bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, database *sql.DB, cfg Config) (Stats, error) {
	stats := Stats{}
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if err := seedAdmin(ctx, tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
			return err
		}
		if cfg.DemoOrders {
			return seedDemoOrders(ctx, tx, &stats)
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// seedAdmin creates the admin user, or rehashes its password when the
// configured one no longer matches.
func seedAdmin(ctx context.Context, tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var current string
	err := tx.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE email = ?`, email).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, string(hash)); err != nil {
			return fmt.Errorf("insert admin user: %w", err)
		}
		stats.Inserts++
		return nil
	case err != nil:
		return fmt.Errorf("check admin user existence: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(current), []byte(password)) == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE email = ?`, string(hash), email); err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	stats.Updates++
	return nil
}

func seedDemoOrders(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	demo := []orders.Order{
		orders.NewCheckout(orders.Customer{
			Name:    "Aarav Sharma",
			Email:   "aarav@example.com",
			Phone:   "+919812345678",
			Address: "44 Residency Road, Bengaluru",
		}, []cart.Item{
			{ProductID: "6", ProductName: "Ashwagandha", Form: catalog.FormPowder, Quantity: cart.TierQuantity("500g"), Price: 690},
			{ProductID: "1", ProductName: "Awala (Dry)", Form: catalog.FormRaw, Quantity: cart.TierQuantity("1kg"), Price: 405, Subscribed: true},
		}, now.Add(-2*time.Hour)),
		orders.NewQuoteRequest(orders.Customer{
			Name:         "Kavya Nair",
			BusinessName: "Kerala Wellness Retreat",
			Email:        "procurement@keralawellness.in",
			Phone:        "+919847000111",
			WhatsApp:     "+919847000111",
			Address:      "Kovalam, Thiruvananthapuram",
		}, cart.Item{
			ProductID:   cart.BulkInquiryProductID,
			ProductName: "Ojas Immunity Builder (powder)",
			Form:        catalog.FormPowder,
			Quantity:    cart.CustomGrams(12000),
		}, now.Add(-time.Hour)),
	}

	for _, o := range demo {
		if err := orders.Insert(ctx, tx, o); err != nil {
			return err
		}
		stats.Inserts++
	}
	return nil
}
