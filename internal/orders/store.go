package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/db"
)

// timeLayout keeps stored timestamps sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store persists orders in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore returns a store over database.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database, now: time.Now}
}

const orderColumns = `id, customer_name, business_name, email, phone, whatsapp, address,
	items_json, total_amount, status, quotation_file, payment_id, created_at, updated_at`

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts a new order.
func (s *Store) Create(ctx context.Context, o Order) error {
	return Insert(ctx, s.db, o)
}

// Insert writes o through ex, so callers can add orders inside their own
// transaction.
func Insert(ctx context.Context, ex Execer, o Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID, o.Name, o.BusinessName, o.Email, o.Phone, o.WhatsApp, o.Address,
		string(itemsJSON), o.TotalAmount, string(o.Status), o.QuotationFile, o.PaymentID,
		o.CreatedAt.UTC().Format(timeLayout), o.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

// Get loads one order by id.
func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// List returns orders newest first. A non-empty query filters by id,
// customer, business or email; a non-empty status keeps only that status.
func (s *Store) List(ctx context.Context, query string, status Status) ([]Order, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE (? = '' OR id LIKE ? OR customer_name LIKE ? OR business_name LIKE ? OR email LIKE ?)
		  AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC
	`, query, search, search, search, search, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// CountByStatus returns the number of orders in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(Statuses))
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan order count: %w", err)
		}
		counts[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order counts: %w", err)
	}
	return counts, nil
}

// Update loads an order, applies fn and saves the lifecycle fields in one
// transaction. fn errors abort the update unchanged.
func (s *Store) Update(ctx context.Context, id string, fn func(*Order, time.Time) error) (Order, error) {
	var out Order
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
		o, err := scanOrder(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if err := fn(&o, s.now()); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = ?, quotation_file = ?, payment_id = ?, updated_at = ?
			WHERE id = ?
		`, string(o.Status), o.QuotationFile, o.PaymentID, o.UpdatedAt.UTC().Format(timeLayout), o.ID); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		out = o
		return nil
	})
	return out, err
}

// SendQuotation marks an order as quoted with the given document name.
func (s *Store) SendQuotation(ctx context.Context, id, file string) (Order, error) {
	return s.Update(ctx, id, func(o *Order, now time.Time) error {
		return o.SendQuotation(file, now)
	})
}

// Complete marks an order as completed.
func (s *Store) Complete(ctx context.Context, id, paymentID string) (Order, error) {
	return s.Update(ctx, id, func(o *Order, now time.Time) error {
		return o.Complete(paymentID, now)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	var (
		o                  Order
		itemsJSON, status  string
		createdAt, updated string
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.BusinessName, &o.Email, &o.Phone, &o.WhatsApp, &o.Address,
		&itemsJSON, &o.TotalAmount, &status, &o.QuotationFile, &o.PaymentID, &createdAt, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Status = Status(status)

	var items []cart.Item
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return Order{}, fmt.Errorf("decode items for %s: %w", o.ID, err)
	}
	o.Items = items

	if o.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Order{}, fmt.Errorf("parse created_at for %s: %w", o.ID, err)
	}
	if o.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Order{}, fmt.Errorf("parse updated_at for %s: %w", o.ID, err)
	}
	return o, nil
}
