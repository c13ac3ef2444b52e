package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fincra-gateway/internal/common"
	"github.com/noah-isme/fincra-gateway/internal/fincra"
	"github.com/noah-isme/fincra-gateway/internal/obs"
	"github.com/noah-isme/fincra-gateway/internal/order"
)

// CartClearer empties a customer's server-side cart.
type CartClearer interface {
	Clear(ctx context.Context, customerID string) error
}

// Locker serializes work on a key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// ReplayStore records webhook bodies that have already been accepted.
type ReplayStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const defaultMaxBody = 1 << 20

// webhook outcomes, used for metrics and logs
const (
	outcomePaid             = "paid"
	outcomeAlreadyPaid      = "already_paid"
	outcomeUnknownOrder     = "unknown_order"
	outcomeIgnored          = "ignored"
	outcomeDuplicate        = "duplicate"
	outcomeMalformed        = "malformed"
	outcomeInvalidSignature = "invalid_signature"
	outcomeError            = "error"
)

// Webhook receives Fincra collection notifications.
type Webhook struct {
	Orders       OrderStore
	Carts        CartClearer
	Settings     SettingsSource
	Replay       ReplayStore
	ReplayTTL    time.Duration
	Locker       Locker
	LockTTL      time.Duration
	MaxBodyBytes int64
	Logger       zerolog.Logger
}

// Handle answers every handled delivery with a bare 200 so Fincra stops
// redelivering. Malformed bodies get 400, bad signatures 401, and storage
// failures 500 so the delivery is retried.
func (h *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger(ctx)
	if h == nil || h.Orders == nil || h.Settings == nil {
		common.Status(w, http.StatusInternalServerError)
		return
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		obs.ObserveWebhook("unknown", outcomeMalformed)
		common.Status(w, http.StatusBadRequest)
		return
	}

	cfg, err := h.Settings.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load gateway settings for webhook")
		obs.ObserveWebhook("unknown", outcomeError)
		common.Status(w, http.StatusInternalServerError)
		return
	}
	if cfg.WebhookSecret != "" {
		if !fincra.VerifySignature(cfg.WebhookSecret, body, r.Header.Get(fincra.SignatureHeader)) {
			log.Warn().Str("remote_addr", common.ClientIP(r)).Msg("fincra webhook signature mismatch")
			obs.ObserveWebhook("unknown", outcomeInvalidSignature)
			common.Status(w, http.StatusUnauthorized)
			return
		}
	} else {
		log.Warn().Msg("fincra webhook accepted without signature verification: no webhook secret configured")
	}

	evt, err := fincra.ParseEvent(body)
	if err != nil {
		obs.ObserveWebhook("unknown", outcomeMalformed)
		common.Status(w, http.StatusBadRequest)
		return
	}
	if evt.Event != fincra.EventCollectionSuccessful {
		log.Debug().Str("event", evt.Event).Msg("fincra webhook ignored")
		obs.ObserveWebhook("other", outcomeIgnored)
		common.Status(w, http.StatusOK)
		return
	}

	replayKey := "fincra:webhook:" + common.Sha256Hex(body)
	if h.Replay != nil && h.ReplayTTL > 0 {
		fresh, err := h.Replay.SetNX(ctx, replayKey, "1", h.ReplayTTL).Result()
		if err != nil {
			log.Error().Err(err).Msg("webhook replay store")
			obs.ObserveWebhook(evt.Event, outcomeError)
			common.Status(w, http.StatusInternalServerError)
			return
		}
		if !fresh {
			obs.ObserveWebhook(evt.Event, outcomeDuplicate)
			common.Status(w, http.StatusOK)
			return
		}
	}

	ref := evt.Data.OrderReference()
	outcome, err := h.settle(ctx, evt, ref)
	if err != nil {
		log.Error().Err(err).Str("reference", ref).Msg("fincra webhook processing failed")
		if h.Replay != nil && h.ReplayTTL > 0 {
			// let the provider's redelivery through
			_ = h.Replay.Del(context.WithoutCancel(ctx), replayKey).Err()
		}
		obs.ObserveWebhook(evt.Event, outcomeError)
		common.Status(w, http.StatusInternalServerError)
		return
	}
	obs.Tag(ctx, "order_ref", ref)
	obs.Tag(ctx, "webhook_outcome", outcome)
	log.Info().Str("reference", ref).Str("outcome", outcome).Msg("fincra webhook processed")
	obs.ObserveWebhook(evt.Event, outcome)
	common.Status(w, http.StatusOK)
}

func (h *Webhook) settle(ctx context.Context, evt fincra.Event, ref string) (string, error) {
	id, ok := common.ParseOrderID(ref)
	if !ok {
		return outcomeUnknownOrder, nil
	}
	outcome := outcomeUnknownOrder
	run := func(ctx context.Context) error {
		o, err := h.Orders.Get(ctx, id)
		if errors.Is(err, order.ErrNotFound) {
			outcome = outcomeUnknownOrder
			return nil
		}
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if o.IsPaid() {
			outcome = outcomeAlreadyPaid
			return nil
		}
		txID := evt.Data.TransactionID()
		if txID == "" {
			txID = ref
		}
		paid, transitioned, err := h.Orders.MarkPaid(ctx, id, order.Payment{
			Method:        ID,
			TransactionID: txID,
			Note:          fmt.Sprintf("Payment received via Fincra (reference %s).", ref),
		})
		if err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}
		if !transitioned {
			outcome = outcomeAlreadyPaid
			return nil
		}
		outcome = outcomePaid
		if h.Carts != nil && paid.CustomerID != "" {
			if err := h.Carts.Clear(ctx, paid.CustomerID); err != nil {
				h.logger(ctx).Warn().Err(err).Int64("order_id", id).Msg("clear cart after payment")
			}
		}
		return nil
	}

	if h.Locker == nil {
		return outcome, run(ctx)
	}
	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	lockCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	if err := h.Locker.WithLock(lockCtx, "fincra:webhook:lock:"+ref, ttl, run); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (h *Webhook) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	if h == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &h.Logger
}
