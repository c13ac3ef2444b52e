package settings

import (
	"strings"
)

// GatewayID is the identifier the Fincra gateway registers under.
const GatewayID = "fincra"

const maskPrefix = "********"

// Secret field names accepted in a clear list.
const (
	FieldSecretKey     = "secret_key"
	FieldWebhookSecret = "webhook_secret"
)

// Settings is the administrator-managed configuration of the Fincra gateway.
type Settings struct {
	Enabled               bool   `json:"enabled"`
	Title                 string `json:"title" validate:"required,max=120"`
	Description           string `json:"description" validate:"max=1000"`
	Mode                  string `json:"mode" validate:"required,oneof=sandbox production"`
	PublicKey             string `json:"public_key" validate:"max=256"`
	SecretKey             string `json:"secret_key" validate:"max=256"`
	BusinessID            string `json:"business_id" validate:"required_if=Mode sandbox,max=128"`
	RedirectURL           string `json:"redirect_url" validate:"omitempty,url"`
	FeeBearer             string `json:"fee_bearer" validate:"required,oneof=customer business"`
	SuccessMessage        string `json:"success_message" validate:"max=1000"`
	SettlementDestination string `json:"settlement_destination" validate:"required,oneof=wallet"`
	DefaultPaymentMethod  string `json:"default_payment_method" validate:"required,oneof=card bank_transfer payattitude"`
	WebhookSecret         string `json:"webhook_secret" validate:"max=256"`
}

// Defaults returns the settings a freshly installed gateway starts with.
func Defaults() Settings {
	return Settings{
		Enabled:               true,
		Title:                 "Fincra Payment",
		Description:           "Pay securely using Fincra.",
		Mode:                  "sandbox",
		FeeBearer:             "customer",
		SettlementDestination: "wallet",
		DefaultPaymentMethod:  "card",
	}
}

// Masked returns a copy safe to show to administrators.
func (s Settings) Masked() Settings {
	out := s
	out.SecretKey = mask(s.SecretKey)
	out.WebhookSecret = mask(s.WebhookSecret)
	return out
}

func (s Settings) normalised() Settings {
	s.Title = strings.TrimSpace(s.Title)
	s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
	s.PublicKey = strings.TrimSpace(s.PublicKey)
	s.SecretKey = strings.TrimSpace(s.SecretKey)
	s.BusinessID = strings.TrimSpace(s.BusinessID)
	s.RedirectURL = strings.TrimSpace(s.RedirectURL)
	s.FeeBearer = strings.ToLower(strings.TrimSpace(s.FeeBearer))
	s.SettlementDestination = strings.ToLower(strings.TrimSpace(s.SettlementDestination))
	s.DefaultPaymentMethod = strings.ToLower(strings.TrimSpace(s.DefaultPaymentMethod))
	s.WebhookSecret = strings.TrimSpace(s.WebhookSecret)
	return s
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return maskPrefix
	}
	return maskPrefix + secret[len(secret)-4:]
}

// keepSecret resolves a submitted secret against the stored one. Empty or
// masked submissions keep the stored value.
func keepSecret(submitted, stored string) string {
	if submitted == "" || strings.HasPrefix(submitted, maskPrefix) {
		return stored
	}
	return submitted
}
