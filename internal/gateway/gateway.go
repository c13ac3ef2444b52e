// Package gateway adapts storefront orders to the Fincra hosted checkout and
// applies Fincra's collection webhooks back onto those orders.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/fincra-gateway/internal/common"
	"github.com/noah-isme/fincra-gateway/internal/fincra"
	"github.com/noah-isme/fincra-gateway/internal/obs"
	"github.com/noah-isme/fincra-gateway/internal/order"
	"github.com/noah-isme/fincra-gateway/internal/settings"
)

// ID is the payment method identifier recorded on orders.
const ID = "fincra"

// Shopper-facing notices.
const (
	NoticeUnsupportedCurrency = "Error: Only NGN, GHS, KES, UGX, ZAR, ZMW currencies are supported."
	NoticeUnavailable         = "Payment gateway is temporarily unavailable. Please try again later."
	NoticeInitiateFailed      = "Unable to initiate Fincra payment. Please try again."
	NoticeAlreadyPaid         = "This order has already been paid."
)

var supportedCurrencies = []string{"NGN", "GHS", "KES", "UGX", "ZAR", "ZMW"}

var (
	ErrUnsupportedCurrency = errors.New("gateway: unsupported currency")
	ErrDisabled            = errors.New("gateway: disabled")
	ErrAlreadyPaid         = errors.New("gateway: order already paid")
)

// SupportedCurrencies returns the currencies Fincra checkout accepts.
func SupportedCurrencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

// IsSupportedCurrency reports whether code is in the allow-list.
func IsSupportedCurrency(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range supportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// OrderStore is the order persistence the gateway reads and mutates.
type OrderStore interface {
	Get(ctx context.Context, id int64) (order.Order, error)
	MarkPaid(ctx context.Context, id int64, p order.Payment) (order.Order, bool, error)
}

// SettingsSource supplies the administrator's gateway configuration.
type SettingsSource interface {
	Get(ctx context.Context) (settings.Settings, error)
}

// CheckoutClient creates hosted checkout sessions.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, creds fincra.Credentials, in fincra.CheckoutRequest) (fincra.CheckoutResponse, error)
}

// Result is the outcome of a checkout attempt as the storefront consumes it.
type Result struct {
	Result   string          `json:"result"`
	Redirect string          `json:"redirect,omitempty"`
	Notices  []common.Notice `json:"notices,omitempty"`
}

// Gateway runs the checkout half of the Fincra integration.
type Gateway struct {
	Orders        OrderStore
	Settings      SettingsSource
	Client        CheckoutClient
	PublicBaseURL string
	StoreCurrency string
	Logger        zerolog.Logger
}

// ProcessPayment builds the checkout request for the order, sends it once
// and returns the hosted payment link. Failures come back as *common.AppError
// carrying shopper notices; no outbound call is made unless the order and
// its currency are acceptable.
func (g *Gateway) ProcessPayment(ctx context.Context, orderID int64) (Result, error) {
	if g == nil || g.Orders == nil || g.Settings == nil || g.Client == nil {
		return Result{}, common.NewAppError("GATEWAY_NOT_CONFIGURED", "payment gateway unavailable", http.StatusInternalServerError, nil).
			WithNotices(NoticeInitiateFailed)
	}
	log := g.logger(ctx).With().Int64("order_id", orderID).Logger()

	cfg, err := g.Settings.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load gateway settings")
		return Result{}, common.NewAppError("SETTINGS_UNAVAILABLE", "gateway settings unavailable", http.StatusInternalServerError, err).
			WithNotices(NoticeInitiateFailed)
	}
	mode := fincra.ParseMode(cfg.Mode)
	if !cfg.Enabled {
		obs.ObserveCheckout(string(mode), "disabled")
		return Result{}, common.NewAppError("GATEWAY_DISABLED", "payment method disabled", http.StatusConflict, ErrDisabled).
			WithNotices(cfg.Title + " is currently unavailable.")
	}

	o, err := g.Orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			obs.ObserveCheckout(string(mode), "order_not_found")
			return Result{}, common.NewAppError("ORDER_NOT_FOUND", "order not found", http.StatusNotFound, err).
				WithNotices(NoticeInitiateFailed)
		}
		log.Error().Err(err).Msg("load order")
		return Result{}, common.NewAppError("ORDER_FETCH_ERROR", "unable to load order", http.StatusInternalServerError, err).
			WithNotices(NoticeInitiateFailed)
	}
	if o.IsPaid() {
		obs.ObserveCheckout(string(mode), "already_paid")
		return Result{}, common.NewAppError("ORDER_ALREADY_PAID", "order already paid", http.StatusConflict, ErrAlreadyPaid).
			WithNotices(NoticeAlreadyPaid)
	}

	currency := g.currencyFor(o)
	if !IsSupportedCurrency(currency) {
		obs.ObserveCheckout(string(mode), "unsupported_currency")
		log.Info().Str("currency", currency).Msg("checkout rejected: unsupported currency")
		return Result{}, common.NewAppError("UNSUPPORTED_CURRENCY", "currency not supported", http.StatusUnprocessableEntity, ErrUnsupportedCurrency).
			WithNotices(NoticeUnsupportedCurrency)
	}

	req := g.buildRequest(cfg, o, currency)
	creds := fincra.Credentials{
		Mode:       mode,
		PublicKey:  cfg.PublicKey,
		SecretKey:  cfg.SecretKey,
		BusinessID: cfg.BusinessID,
	}
	resp, err := g.Client.CreateCheckout(ctx, creds, req)
	switch {
	case err == nil:
		obs.ObserveCheckout(string(mode), "success")
		log.Info().Str("mode", string(mode)).Str("currency", currency).Msg("fincra checkout created")
		return Result{Result: "success", Redirect: resp.Data.Link}, nil
	case errors.Is(err, fincra.ErrTransport):
		obs.ObserveCheckout(string(mode), "transport_error")
		log.Error().Err(err).Str("mode", string(mode)).Msg("fincra api error")
		return Result{}, common.NewAppError("FINCRA_UNAVAILABLE", "payment provider unreachable", http.StatusBadGateway, err).
			WithNotices(NoticeUnavailable, NoticeInitiateFailed)
	default:
		obs.ObserveCheckout(string(mode), "missing_link")
		log.Warn().Err(err).Str("mode", string(mode)).Msg("fincra checkout returned no link")
		return Result{}, common.NewAppError("FINCRA_NO_LINK", "payment provider returned no link", http.StatusBadGateway, err).
			WithNotices(NoticeInitiateFailed)
	}
}

// Failure renders an error from ProcessPayment as a failed Result.
func Failure(err error) Result {
	res := Result{Result: "failure"}
	if appErr, ok := common.AsAppError(err); ok && len(appErr.Notices) > 0 {
		res.Notices = appErr.Notices
		return res
	}
	res.Notices = []common.Notice{common.ErrorNotice(NoticeInitiateFailed)}
	return res
}

func (g *Gateway) currencyFor(o order.Order) string {
	if c := strings.ToUpper(strings.TrimSpace(o.Currency)); c != "" {
		return c
	}
	return strings.ToUpper(strings.TrimSpace(g.StoreCurrency))
}

func (g *Gateway) buildRequest(cfg settings.Settings, o order.Order, currency string) fincra.CheckoutRequest {
	redirect := strings.TrimSpace(cfg.RedirectURL)
	if redirect == "" {
		redirect = ReturnURL(g.PublicBaseURL, o.ID)
	}
	return fincra.CheckoutRequest{
		Currency: currency,
		Customer: fincra.Customer{
			Name:        o.BillingName(),
			Email:       o.BillingEmail,
			PhoneNumber: o.BillingPhone,
		},
		Amount:                o.Total,
		RedirectURL:           redirect,
		Reference:             o.Reference(),
		FeeBearer:             cfg.FeeBearer,
		PaymentMethods:        fincra.PaymentMethods(),
		DefaultPaymentMethod:  cfg.DefaultPaymentMethod,
		SettlementDestination: cfg.SettlementDestination,
	}
}

// ReturnURL is where the hosted page sends the shopper after paying.
func ReturnURL(publicBaseURL string, orderID int64) string {
	return strings.TrimRight(publicBaseURL, "/") + "/checkout/order-received/" + common.FormatOrderID(orderID)
}

func (g *Gateway) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &g.Logger
}
