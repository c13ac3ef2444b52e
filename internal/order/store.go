package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool used by the store.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists orders and their notes in PostgreSQL.
type PGStore struct {
	DB DB
}

const orderColumns = `id, customer_id, billing_first_name, billing_last_name, billing_email, billing_phone,
	total::float8, currency, status, payment_method, transaction_id, paid_at, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.BillingFirstName, &o.BillingLastName, &o.BillingEmail, &o.BillingPhone,
		&o.Total, &o.Currency, &status, &o.PaymentMethod, &o.TransactionID, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}

// Get loads an order by identifier.
func (s PGStore) Get(ctx context.Context, id int64) (Order, error) {
	if s.DB == nil {
		return Order{}, errors.New("order: store not configured")
	}
	return scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// Create inserts a pending order.
func (s PGStore) Create(ctx context.Context, in NewOrder) (Order, error) {
	if s.DB == nil {
		return Order{}, errors.New("order: store not configured")
	}
	return scanOrder(s.DB.QueryRow(ctx, `
		INSERT INTO orders (customer_id, billing_first_name, billing_last_name, billing_email, billing_phone, total, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+orderColumns,
		in.CustomerID, in.BillingFirstName, in.BillingLastName, in.BillingEmail, in.BillingPhone,
		in.Total, strings.ToUpper(strings.TrimSpace(in.Currency)), string(StatusPending),
	))
}

// MarkPaid records the payment and its note in one transaction. The update is
// conditional on the order not being paid yet, so concurrent callers complete
// an order at most once. The boolean result reports whether this call made the
// transition.
func (s PGStore) MarkPaid(ctx context.Context, id int64, p Payment) (Order, bool, error) {
	if s.DB == nil {
		return Order{}, false, errors.New("order: store not configured")
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Order{}, false, fmt.Errorf("order: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, payment_method = $3, transaction_id = $4, paid_at = now(), updated_at = now()
		WHERE id = $1 AND paid_at IS NULL AND status NOT IN ('processing', 'completed')
		RETURNING `+orderColumns,
		id, string(StatusProcessing), p.Method, p.TransactionID,
	))
	if errors.Is(err, ErrNotFound) {
		existing, getErr := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
		if getErr != nil {
			return Order{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return Order{}, false, fmt.Errorf("order: mark paid: %w", err)
	}
	if note := strings.TrimSpace(p.Note); note != "" {
		if _, err := tx.Exec(ctx, `INSERT INTO order_notes (order_id, body) VALUES ($1, $2)`, id, note); err != nil {
			return Order{}, false, fmt.Errorf("order: add note: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, fmt.Errorf("order: commit: %w", err)
	}
	return updated, true, nil
}
