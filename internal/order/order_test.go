package order_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fincra-gateway/internal/order"
)

func TestIsPaid(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		o    order.Order
		want bool
	}{
		{"pending", order.Order{Status: order.StatusPending}, false},
		{"on hold", order.Order{Status: order.StatusOnHold}, false},
		{"processing", order.Order{Status: order.StatusProcessing}, true},
		{"completed", order.Order{Status: order.StatusCompleted}, true},
		{"paid timestamp", order.Order{Status: order.StatusPending, PaidAt: &now}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.o.IsPaid())
		})
	}
}

func TestBillingNameAndReference(t *testing.T) {
	o := order.Order{ID: 123, BillingFirstName: " Ada ", BillingLastName: "Obi"}
	require.Equal(t, "Ada Obi", o.BillingName())
	require.Equal(t, "123", o.Reference())

	require.Equal(t, "Ada", order.Order{BillingFirstName: "Ada"}.BillingName())
}
