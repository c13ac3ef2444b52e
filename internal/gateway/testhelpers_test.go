package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fincra-gateway/internal/fincra"
	"github.com/noah-isme/fincra-gateway/internal/gateway"
	"github.com/noah-isme/fincra-gateway/internal/order"
	"github.com/noah-isme/fincra-gateway/internal/settings"
)

type memOrders struct {
	mu          sync.Mutex
	orders      map[int64]order.Order
	notes       map[int64][]string
	transitions int
	markErr     error
}

func newMemOrders(orders ...order.Order) *memOrders {
	m := &memOrders{orders: map[int64]order.Order{}, notes: map[int64][]string{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrders) Get(_ context.Context, id int64) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (m *memOrders) MarkPaid(_ context.Context, id int64, p order.Payment) (order.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return order.Order{}, false, m.markErr
	}
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, false, order.ErrNotFound
	}
	if o.IsPaid() {
		return o, false, nil
	}
	now := time.Now()
	o.Status = order.StatusProcessing
	o.PaidAt = &now
	o.PaymentMethod = p.Method
	o.TransactionID = p.TransactionID
	m.orders[id] = o
	m.notes[id] = append(m.notes[id], p.Note)
	m.transitions++
	return o, true, nil
}

func (m *memOrders) order(id int64) order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memOrders) setMarkErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markErr = err
}

type staticSettings struct {
	s   settings.Settings
	err error
}

func (s staticSettings) Get(context.Context) (settings.Settings, error) { return s.s, s.err }

func testSettings() settings.Settings {
	s := settings.Defaults()
	s.PublicKey = "pk_test_abc"
	s.SecretKey = "sk_test_xyz"
	s.BusinessID = "biz-42"
	s.SuccessMessage = "Thank you for paying with Fincra."
	return s
}

func unpaidOrder(id int64) order.Order {
	return order.Order{
		ID:               id,
		CustomerID:       "cust-1",
		BillingFirstName: "Ada",
		BillingLastName:  "Obi",
		BillingEmail:     "ada@example.com",
		BillingPhone:     "+2348000000000",
		Total:            1500.50,
		Currency:         "NGN",
		Status:           order.StatusPending,
	}
}

type capturedCall struct {
	Header http.Header
	Path   string
	Body   map[string]any
}

type fincraStub struct {
	*httptest.Server
	hits  atomic.Int32
	mu    sync.Mutex
	calls []capturedCall
}

func newFincraStub(t *testing.T, status int, response string) *fincraStub {
	t.Helper()
	stub := &fincraStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.hits.Add(1)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		stub.mu.Lock()
		stub.calls = append(stub.calls, capturedCall{Header: r.Header.Clone(), Path: r.URL.Path, Body: body})
		stub.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *fincraStub) lastCall(t *testing.T) capturedCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.calls)
	return s.calls[len(s.calls)-1]
}

func newGateway(orders gateway.OrderStore, cfg settings.Settings, baseURL string) *gateway.Gateway {
	return &gateway.Gateway{
		Orders:        orders,
		Settings:      staticSettings{s: cfg},
		Client:        fincra.NewClient(fincra.Options{SandboxBaseURL: baseURL, ProductionBaseURL: baseURL + "/live", Timeout: 2 * time.Second}),
		PublicBaseURL: "https://shop.example",
		StoreCurrency: "NGN",
		Logger:        zerolog.Nop(),
	}
}

var errStorage = errors.New("db unavailable")
