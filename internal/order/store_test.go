package order_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fincra-gateway/internal/order"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func orderRow(id int64, status order.Status, paidAt *time.Time) fakeRow {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return fakeRow{values: []any{
		id, "cust-1", "Ada", "Obi", "ada@example.com", "+2348000000000",
		1500.5, "NGN", string(status), "fincra", "98765", paidAt, created, created,
	}}
}

var noRows = fakeRow{err: pgx.ErrNoRows}

type fakeTx struct {
	pgx.Tx
	rows       []fakeRow
	queries    []string
	execs      []string
	execErr    error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	t.queries = append(t.queries, sql)
	if len(t.rows) == 0 {
		return noRows
	}
	row := t.rows[0]
	t.rows = t.rows[1:]
	return row
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	if t.execErr != nil {
		return pgconn.CommandTag{}, t.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	tx       *fakeTx
	beginErr error
	row      fakeRow
}

func (d fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return d.tx, nil
}

func (d fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return d.row
}

var fincraPayment = order.Payment{Method: "fincra", TransactionID: "98765", Note: "Payment received via Fincra (reference 123)."}

func TestMarkPaidTransitionsUnpaidOrder(t *testing.T) {
	paidAt := time.Now().UTC()
	tx := &fakeTx{rows: []fakeRow{orderRow(123, order.StatusProcessing, &paidAt)}}
	store := order.PGStore{DB: fakeDB{tx: tx}}

	got, transitioned, err := store.MarkPaid(context.Background(), 123, fincraPayment)
	require.NoError(t, err)
	require.True(t, transitioned)
	require.Equal(t, int64(123), got.ID)
	require.Equal(t, order.StatusProcessing, got.Status)
	require.True(t, got.IsPaid())

	require.Len(t, tx.queries, 1)
	require.Contains(t, tx.queries[0], "paid_at IS NULL")
	require.Len(t, tx.execs, 1)
	require.Contains(t, tx.execs[0], "order_notes")
	require.True(t, tx.committed)
}

func TestMarkPaidLeavesPaidOrderUntouched(t *testing.T) {
	paidAt := time.Now().UTC()
	tx := &fakeTx{rows: []fakeRow{noRows, orderRow(123, order.StatusCompleted, &paidAt)}}
	store := order.PGStore{DB: fakeDB{tx: tx}}

	got, transitioned, err := store.MarkPaid(context.Background(), 123, fincraPayment)
	require.NoError(t, err)
	require.False(t, transitioned)
	require.Equal(t, order.StatusCompleted, got.Status)
	require.Empty(t, tx.execs)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	tx := &fakeTx{rows: []fakeRow{noRows, noRows}}
	store := order.PGStore{DB: fakeDB{tx: tx}}

	_, transitioned, err := store.MarkPaid(context.Background(), 404, fincraPayment)
	require.ErrorIs(t, err, order.ErrNotFound)
	require.False(t, transitioned)
	require.False(t, tx.committed)
}

func TestMarkPaidNoteFailureRollsBack(t *testing.T) {
	paidAt := time.Now().UTC()
	tx := &fakeTx{rows: []fakeRow{orderRow(123, order.StatusProcessing, &paidAt)}, execErr: errors.New("disk full")}
	store := order.PGStore{DB: fakeDB{tx: tx}}

	_, transitioned, err := store.MarkPaid(context.Background(), 123, fincraPayment)
	require.Error(t, err)
	require.False(t, transitioned)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}

func TestMarkPaidBeginFailure(t *testing.T) {
	store := order.PGStore{DB: fakeDB{beginErr: errors.New("pool closed")}}

	_, _, err := store.MarkPaid(context.Background(), 123, fincraPayment)
	require.ErrorContains(t, err, "begin")
}

func TestGetMapsMissingRowToNotFound(t *testing.T) {
	store := order.PGStore{DB: fakeDB{row: noRows}}

	_, err := store.Get(context.Background(), 9)
	require.ErrorIs(t, err, order.ErrNotFound)

	found := order.PGStore{DB: fakeDB{row: orderRow(9, order.StatusPending, nil)}}
	got, err := found.Get(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, "Ada Obi", got.BillingName())
	require.Equal(t, 1500.5, got.Total)
	require.False(t, got.IsPaid())
}
