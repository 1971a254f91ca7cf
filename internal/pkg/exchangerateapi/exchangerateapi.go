// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package exchangerateapi provides a client for fetching the latest exchange
// rates from exchangerate-api.com.
//
// The v4 "latest" endpoint is free and does not require an API key.
// See https://www.exchangerate-api.com/docs/free for usage details.
package exchangerateapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the exchangerate-api.com v4 latest-rates endpoint. The base currency is appended.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest/"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// Latest is the latest set of rates for one base currency.
type Latest struct {
	// Base is the base currency code the rates are relative to.
	Base string
	// Rates maps currency codes to the amount of that currency one unit of Base buys.
	Rates map[string]float64
	// UpdatedAt is when the provider last updated the rates.
	//
	// Zero if the provider did not say.
	UpdatedAt time.Time
}

// Client is the interface for fetching exchange rates.
type Client interface {
	// GetLatest fetches the latest rates relative to baseCurrency.
	GetLatest(ctx context.Context, baseCurrency string) (*Latest, error)
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*client)

// ClientWithHTTPClient sets the HTTP client to use for requests.
func ClientWithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// ClientWithBaseURL sets the URL the base currency is appended to.
func ClientWithBaseURL(baseURL string) ClientOption {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// NewClient creates a new exchange rate client with the given options.
func NewClient(options ...ClientOption) Client {
	c := &client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// *** PRIVATE ***

type client struct {
	httpClient *http.Client
	baseURL    string
}

// latestResponse is the JSON response from the v4 latest endpoint.
type latestResponse struct {
	Base            string             `json:"base"`
	TimeLastUpdated int64              `json:"time_last_updated"`
	Rates           map[string]float64 `json:"rates"`
}

func (c *client) GetLatest(ctx context.Context, baseCurrency string) (*Latest, error) {
	reqURL := strings.TrimSuffix(c.baseURL, "/") + "/" + baseCurrency
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	var latestResp latestResponse
	if err := json.Unmarshal(body, &latestResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(latestResp.Rates) == 0 {
		return nil, errors.New("response has no rates")
	}
	latest := &Latest{
		Base:  latestResp.Base,
		Rates: latestResp.Rates,
	}
	if latest.Base == "" {
		latest.Base = baseCurrency
	}
	if latestResp.TimeLastUpdated > 0 {
		latest.UpdatedAt = time.Unix(latestResp.TimeLastUpdated, 0).UTC()
	}
	return latest, nil
}
