package order

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/fincra-gateway/internal/common"
)

// ErrNotFound is returned when no order matches the identifier.
var ErrNotFound = errors.New("order: not found")

// Status mirrors the lifecycle states of a storefront order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusOnHold     Status = "on-hold"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// paidStatuses are the states in which an order counts as paid.
var paidStatuses = []Status{StatusProcessing, StatusCompleted}

// Order is the subset of a storefront order the payment gateway reads and mutates.
type Order struct {
	ID               int64
	CustomerID       string
	BillingFirstName string
	BillingLastName  string
	BillingEmail     string
	BillingPhone     string
	Total            float64
	Currency         string
	Status           Status
	PaymentMethod    string
	TransactionID    string
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Reference returns the opaque reference sent to payment providers.
func (o Order) Reference() string {
	return common.FormatOrderID(o.ID)
}

// BillingName joins the billing first and last name.
func (o Order) BillingName() string {
	return strings.TrimSpace(strings.TrimSpace(o.BillingFirstName) + " " + strings.TrimSpace(o.BillingLastName))
}

// IsPaid reports whether payment has already been recorded for the order.
func (o Order) IsPaid() bool {
	if o.PaidAt != nil {
		return true
	}
	for _, s := range paidStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// Payment describes a completed payment applied to an order.
type Payment struct {
	Method        string
	TransactionID string
	Note          string
}

// NewOrder carries the fields required to create an order.
type NewOrder struct {
	CustomerID       string
	BillingFirstName string
	BillingLastName  string
	BillingEmail     string
	BillingPhone     string
	Total            float64
	Currency         string
}
