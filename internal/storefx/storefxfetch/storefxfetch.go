// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxfetch turns rate-quote responses into rate tables.
//
// A Fetcher never fails because of the network: any transport, status, or
// payload problem is logged and answered with the fallback table for the
// requested base. Concurrent fetches for the same base share one request and
// all callers receive its result.
package storefxfetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bufdev/storefx/internal/pkg/ratequote"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxfallback"
	"github.com/bufdev/storefx/internal/storefx/storefxrate"
	"golang.org/x/sync/singleflight"
)

// defaultTimeout bounds one shared fetch, retries included.
const defaultTimeout = 10 * time.Second

// Fetcher is the interface for obtaining rate tables.
type Fetcher interface {
	// FetchRates returns a rate table relative to base.
	//
	// Transport and payload failures return the fallback table for base
	// instead of an error. The only error returned is for an unsupported base.
	FetchRates(ctx context.Context, base storefxcurrency.Code) (*storefxrate.Table, error)
}

// FetcherOption is a functional option for configuring the Fetcher.
type FetcherOption func(*fetcher)

// FetcherWithTimeout sets the time limit for one shared fetch.
func FetcherWithTimeout(timeout time.Duration) FetcherOption {
	return func(f *fetcher) {
		f.timeout = timeout
	}
}

// FetcherWithNow sets the function used to timestamp tables.
func FetcherWithNow(now func() time.Time) FetcherOption {
	return func(f *fetcher) {
		f.now = now
	}
}

// NewFetcher creates a new Fetcher backed by the rate-quote client. The logger is required.
func NewFetcher(logger *slog.Logger, client ratequote.Client, options ...FetcherOption) Fetcher {
	f := &fetcher{
		logger:  logger,
		client:  client,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, option := range options {
		option(f)
	}
	return f
}

type fetcher struct {
	logger  *slog.Logger
	client  ratequote.Client
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group
}

func (f *fetcher) FetchRates(ctx context.Context, base storefxcurrency.Code) (*storefxrate.Table, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	// The shared call outlives any single caller's cancellation; it is bounded by the timeout instead.
	sharedCtx := context.WithoutCancel(ctx)
	value, err, shared := f.group.Do(base.String(), func() (any, error) {
		return f.fetch(sharedCtx, base)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		f.logger.Debug("joined in-flight rate fetch", "base", base)
	}
	return value.(*storefxrate.Table), nil
}

// *** PRIVATE ***

// fetch performs one fetch and falls back on any failure.
func (f *fetcher) fetch(ctx context.Context, base storefxcurrency.Code) (*storefxrate.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	table, err := f.fetchRemote(ctx, base)
	if err == nil {
		f.logger.Debug("exchange rates updated", "base", base, "count", len(table.Codes()))
		return table, nil
	}
	f.logger.Warn("using fallback exchange rates", "base", base, "error", err)
	return storefxfallback.Table(base, f.now())
}

// fetchRemote fetches and validates a table from the rate-quote service.
func (f *fetcher) fetchRemote(ctx context.Context, base storefxcurrency.Code) (*storefxrate.Table, error) {
	rawRates, err := f.client.GetRates(ctx, base.String())
	if err != nil {
		return nil, fmt.Errorf("fetching rates: %w", err)
	}
	// Keep supported codes only, and require every one of them.
	rates := make(map[storefxcurrency.Code]float64, len(storefxcurrency.All()))
	for _, code := range storefxcurrency.All() {
		rate, ok := rawRates[code.String()]
		if !ok {
			return nil, fmt.Errorf("%w: response has no rate for %s", storefxrate.ErrMalformedTable, code)
		}
		rates[code] = rate
	}
	return storefxrate.NewTable(storefxrate.SourceRemote, base, rates, f.now())
}
