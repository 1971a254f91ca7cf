// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ratequote provides a client for the storefront rate-quote service.
//
// The service answers GET <url>?base=<CODE> with a JSON envelope:
//
//	{"success": true, "data": {"rates": {"EUR": 0.92, "XOF": 620}}}
//	{"success": false, "error": "upstream unavailable"}
//
// The client does not know which currencies the caller supports; it returns
// every numeric rate in the response and leaves filtering to the caller.
package ratequote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bufdev/storefx/internal/pkg/backoff"
	"github.com/tidwall/gjson"
)

const (
	// defaultMaxAttempts is the default number of attempts per request.
	defaultMaxAttempts = 3
	// initialRetryDelay is the delay before the first retry.
	initialRetryDelay = 250 * time.Millisecond
	// maxRetryDelay is the maximum delay between retries.
	maxRetryDelay = 2 * time.Second
	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 1 << 20
)

var (
	// ErrUnsuccessful is returned when the response's success flag is false or absent.
	ErrUnsuccessful = errors.New("rate quote unsuccessful")
	// ErrMalformedPayload is returned when the response body is not the expected JSON envelope.
	ErrMalformedPayload = errors.New("malformed rate quote payload")
)

// Client is the interface for fetching rates from the rate-quote service.
type Client interface {
	// GetRates fetches the rates relative to baseCurrency.
	//
	// Returns a map of currency code to rate. Transient failures (transport
	// errors, 429, 5xx) are retried with backoff before an error is returned.
	GetRates(ctx context.Context, baseCurrency string) (map[string]float64, error)
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*client)

// ClientWithHTTPClient sets the HTTP client to use for requests.
func ClientWithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// ClientWithMaxAttempts sets the number of attempts per request, including the first.
func ClientWithMaxAttempts(maxAttempts int) ClientOption {
	return func(c *client) {
		c.retryPolicy.MaxAttempts = maxAttempts
	}
}

// ClientWithRetryDelays sets the initial and maximum delay between attempts.
func ClientWithRetryDelays(initialDelay time.Duration, maxDelay time.Duration) ClientOption {
	return func(c *client) {
		c.retryPolicy.InitialDelay = initialDelay
		c.retryPolicy.MaxDelay = maxDelay
	}
}

// NewClient creates a new rate-quote client for the endpoint at endpointURL.
// The logger is required.
func NewClient(logger *slog.Logger, endpointURL string, options ...ClientOption) Client {
	c := &client{
		logger:      logger,
		endpointURL: endpointURL,
		httpClient:  http.DefaultClient,
		retryPolicy: backoff.Policy{
			MaxAttempts:  defaultMaxAttempts,
			InitialDelay: initialRetryDelay,
			MaxDelay:     maxRetryDelay,
		},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type client struct {
	logger      *slog.Logger
	endpointURL string
	httpClient  *http.Client
	retryPolicy backoff.Policy
}

func (c *client) GetRates(ctx context.Context, baseCurrency string) (map[string]float64, error) {
	reqURL, err := c.requestURL(baseCurrency)
	if err != nil {
		return nil, err
	}
	body, err := backoff.Retry(ctx, c.retryPolicy,
		func(ctx context.Context, attempt int) ([]byte, bool, error) {
			if attempt > 0 {
				c.logger.Info("retrying rate quote request", "base", baseCurrency, "attempt", attempt+1)
			}
			return c.get(ctx, reqURL)
		},
	)
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

// *** PRIVATE ***

// requestURL appends the base query parameter to the endpoint URL.
func (c *client) requestURL(baseCurrency string) (string, error) {
	parsed, err := url.Parse(c.endpointURL)
	if err != nil {
		return "", fmt.Errorf("parsing rate quote URL %q: %w", c.endpointURL, err)
	}
	query := parsed.Query()
	query.Set("base", baseCurrency)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// get performs one request. Returns the body, whether a failure is retryable, and any error.
func (c *client) get(ctx context.Context, reqURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures are retryable unless the caller gave up.
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if retryable {
			c.logger.Warn("transient rate quote error, will retry", "status", resp.StatusCode)
		}
		return nil, retryable, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, false, nil
}

// parseResponse extracts the rates from a response envelope.
func parseResponse(body []byte) (map[string]float64, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedPayload)
	}
	// A missing or non-boolean success flag is treated like success: false.
	success := gjson.GetBytes(body, "success")
	if success.Type != gjson.True {
		message := gjson.GetBytes(body, "error").String()
		if message == "" {
			message = "no error message"
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, message)
	}
	ratesResult := gjson.GetBytes(body, "data.rates")
	if !ratesResult.IsObject() {
		return nil, fmt.Errorf("%w: data.rates is not an object", ErrMalformedPayload)
	}
	rates := make(map[string]float64)
	var parseErr error
	ratesResult.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			parseErr = fmt.Errorf("%w: rate for %q is not a number", ErrMalformedPayload, key.String())
			return false
		}
		rates[key.String()] = value.Float()
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return rates, nil
}
