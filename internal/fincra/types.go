package fincra

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Mode selects which Fincra environment receives requests.
type Mode string

const (
	ModeSandbox    Mode = "sandbox"
	ModeProduction Mode = "production"
)

// ParseMode maps a stored setting onto a Mode, defaulting to sandbox.
func ParseMode(value string) Mode {
	if strings.EqualFold(strings.TrimSpace(value), string(ModeProduction)) {
		return ModeProduction
	}
	return ModeSandbox
}

// Credentials are the merchant keys sent with every checkout request.
type Credentials struct {
	Mode       Mode
	PublicKey  string
	SecretKey  string
	BusinessID string
}

// Customer identifies the shopper on the hosted payment page.
type Customer struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// CheckoutRequest is the body of POST /checkout/payments.
type CheckoutRequest struct {
	Currency              string   `json:"currency"`
	Customer              Customer `json:"customer"`
	Amount                float64  `json:"amount"`
	RedirectURL           string   `json:"redirectUrl"`
	Reference             string   `json:"reference"`
	FeeBearer             string   `json:"feeBearer"`
	PaymentMethods        []string `json:"paymentMethods"`
	DefaultPaymentMethod  string   `json:"defaultPaymentMethod"`
	SettlementDestination string   `json:"settlementDestination"`
}

// CheckoutResponse is the subset of the checkout response the gateway reads.
type CheckoutResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link      string `json:"link"`
		Reference string `json:"reference"`
		PayCode   string `json:"payCode"`
	} `json:"data"`
}

// PaymentMethods returns the candidate methods offered on the hosted page.
func PaymentMethods() []string {
	return []string{"card", "bank_transfer", "payattitude"}
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
