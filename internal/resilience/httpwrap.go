package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUpstreamStatus marks a response that counted as a failure against the breaker.
var ErrUpstreamStatus = errors.New("resilience: upstream returned server error")

// HTTPClient wraps an http.Client with a per-call timeout and a circuit breaker.
// Each request is attempted exactly once; callers own any retry policy.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	Timeout     time.Duration
	MaxBodySize int64
}

// Do executes the request and returns the response with its body fully
// buffered, so the call timeout never outlives Do. When the breaker is open
// ErrOpenCircuit is returned without touching the network. A 5xx response is
// returned together with an ErrUpstreamStatus error.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		// default to closed breaker that never trips
		breaker = NewBreaker(1, 1, time.Second)
	}
	if !breaker.Allow(ctx) {
		return nil, fmt.Errorf("%w: retry in %s", ErrOpenCircuit, breaker.RetryAfter().Round(time.Second))
	}

	resp, err := cl.doOnce(ctx, req)
	if err != nil {
		// caller cancellation says nothing about upstream health
		if ctx.Err() == nil {
			breaker.Report(ctx, false)
		}
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		breaker.Report(ctx, false)
		return resp, fmt.Errorf("%w: %s", ErrUpstreamStatus, resp.Status)
	}
	breaker.Report(ctx, true)
	return resp, nil
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	var callCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	limit := cl.MaxBodySize
	if limit <= 0 {
		limit = 1 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.ContentLength = int64(len(data))
	return resp, nil
}
