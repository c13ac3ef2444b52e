package fincra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/fincra-gateway/internal/obs"
	"github.com/noah-isme/fincra-gateway/internal/resilience"
)

const (
	DefaultSandboxBaseURL    = "https://sandboxapi.fincra.com"
	DefaultProductionBaseURL = "https://api.fincra.com"
	DefaultTimeout           = 45 * time.Second

	checkoutPath = "/checkout/payments"
)

var (
	// ErrMissingLink is returned when Fincra answers without a hosted payment link.
	ErrMissingLink = errors.New("fincra: response has no payment link")
	// ErrTransport wraps failures that prevented a response from being received.
	ErrTransport = errors.New("fincra: transport failure")
)

// Options configures a Client.
type Options struct {
	SandboxBaseURL    string
	ProductionBaseURL string
	Timeout           time.Duration
	Breaker           *resilience.Breaker
	Transport         http.RoundTripper
}

// Client calls the Fincra hosted-checkout API.
type Client struct {
	http              resilience.HTTPClient
	sandboxBaseURL    string
	productionBaseURL string
}

// NewClient builds a client whose transport is instrumented with OpenTelemetry.
func NewClient(opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	sandbox := strings.TrimRight(strings.TrimSpace(opts.SandboxBaseURL), "/")
	if sandbox == "" {
		sandbox = DefaultSandboxBaseURL
	}
	production := strings.TrimRight(strings.TrimSpace(opts.ProductionBaseURL), "/")
	if production == "" {
		production = DefaultProductionBaseURL
	}
	return &Client{
		http: resilience.HTTPClient{
			Client:  &http.Client{Transport: otelhttp.NewTransport(transport)},
			Breaker: opts.Breaker,
			Timeout: timeout,
		},
		sandboxBaseURL:    sandbox,
		productionBaseURL: production,
	}
}

// Endpoint returns the checkout URL for the given mode.
func (c *Client) Endpoint(mode Mode) string {
	if mode == ModeProduction {
		return c.productionBaseURL + checkoutPath
	}
	return c.sandboxBaseURL + checkoutPath
}

// CreateCheckout posts the payload once and returns the decoded response.
// Any failure to obtain a response is wrapped in ErrTransport; a response
// without data.link yields ErrMissingLink.
func (c *Client) CreateCheckout(ctx context.Context, creds Credentials, in CheckoutRequest) (CheckoutResponse, error) {
	var out CheckoutResponse
	ctx, span := otel.Tracer("fincra.Client").Start(ctx, "Fincra.CreateCheckout")
	defer span.End()
	span.SetAttributes(
		attribute.String("fincra.mode", string(creds.Mode)),
		attribute.String("fincra.reference", in.Reference),
		attribute.String("fincra.currency", in.Currency),
	)

	start := time.Now()
	outcome := "error"
	defer func() {
		if obs.FincraRequestDuration != nil {
			obs.FincraRequestDuration.WithLabelValues(obs.Label(string(creds.Mode)), outcome).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	body, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("fincra: encode checkout: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(creds.Mode), bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("fincra: build request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-business-id", creds.BusinessID)
	req.Header.Set("api-key", creds.SecretKey)
	req.Header.Set("x-pub-key", creds.PublicKey)

	resp, err := c.http.Do(ctx, req)
	if resp == nil {
		outcome = "transport_error"
		span.RecordError(err)
		return out, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil {
		outcome = "invalid_response"
		return out, fmt.Errorf("%w: status %d: %v", ErrMissingLink, resp.StatusCode, decodeErr)
	}
	if strings.TrimSpace(out.Data.Link) == "" {
		outcome = "missing_link"
		if msg := strings.TrimSpace(out.Message); msg != "" {
			return out, fmt.Errorf("%w: status %d: %s", ErrMissingLink, resp.StatusCode, msg)
		}
		return out, fmt.Errorf("%w: status %d", ErrMissingLink, resp.StatusCode)
	}
	outcome = "success"
	return out, nil
}
