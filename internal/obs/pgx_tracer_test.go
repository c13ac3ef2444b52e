package obs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/fincra-gateway/internal/obs"
)

func runQuery(t *testing.T, sql string, end pgx.TraceQueryEndData) sdktrace.ReadOnlySpan {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tracer := obs.PGXTracer{Provider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))}

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: sql})
	tracer.TraceQueryEnd(ctx, nil, end)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	return spans[0]
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestPGXTracerNamesSpanAfterStatement(t *testing.T) {
	span := runQuery(t, `
		UPDATE orders
		SET status = $2
		WHERE id = $1 AND paid_at IS NULL`,
		pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("UPDATE 1")})

	require.Equal(t, "UPDATE orders", span.Name())
	table, ok := spanAttr(span, "db.sql.table")
	require.True(t, ok)
	require.Equal(t, "orders", table.AsString())
	rows, ok := spanAttr(span, "db.rows_affected")
	require.True(t, ok)
	require.EqualValues(t, 1, rows.AsInt64())
	stmt, _ := spanAttr(span, "db.statement")
	require.Equal(t, "UPDATE orders SET status = $2 WHERE id = $1 AND paid_at IS NULL", stmt.AsString())
	require.Equal(t, codes.Unset, span.Status().Code)
}

func TestPGXTracerTreatsNoRowsAsResult(t *testing.T) {
	span := runQuery(t, `SELECT id FROM orders WHERE id = $1`, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})

	require.Equal(t, "SELECT orders", span.Name())
	require.Equal(t, codes.Unset, span.Status().Code)
	require.Empty(t, span.Events())
}

func TestPGXTracerRecordsFailures(t *testing.T) {
	span := runQuery(t, `INSERT INTO order_notes (order_id, body) VALUES ($1, $2)`, pgx.TraceQueryEndData{Err: errors.New("relation does not exist")})

	require.Equal(t, "INSERT order_notes", span.Name())
	require.Equal(t, codes.Error, span.Status().Code)
	require.Len(t, span.Events(), 1)
}
