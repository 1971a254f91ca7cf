// Copyright 2026 Peter Edge
//
// All rights reserved.

package storefxfetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxfallback"
	"github.com/bufdev/storefx/internal/storefx/storefxrate"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFetchRates(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		rates: map[string]float64{"USD": 1, "EUR": 0.9, "XOF": 600, "GBP": 0.8},
	}
	table, err := newTestFetcher(client).FetchRates(context.Background(), storefxcurrency.USD)
	require.NoError(t, err)
	require.Equal(t, storefxcurrency.USD, table.Base())
	require.Equal(t, storefxrate.SourceRemote, table.Source())
	require.Equal(t, testNow, table.FetchedAt())
	// Unsupported codes in the response are dropped.
	want := map[storefxcurrency.Code]float64{
		storefxcurrency.USD: 1,
		storefxcurrency.EUR: 0.9,
		storefxcurrency.XOF: 600,
	}
	if diff := cmp.Diff(want, table.Rates()); diff != "" {
		t.Errorf("rates mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"USD"}, client.bases())
}

func TestFetchRatesFallback(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name   string
		client *fakeClient
	}{
		{
			name:   "client_error",
			client: &fakeClient{err: errors.New("connection refused")},
		},
		{
			name:   "missing_currency",
			client: &fakeClient{rates: map[string]float64{"USD": 1, "EUR": 0.9}},
		},
		{
			name:   "zero_rate",
			client: &fakeClient{rates: map[string]float64{"USD": 1, "EUR": 0, "XOF": 600}},
		},
		{
			name:   "base_rate_not_one",
			client: &fakeClient{rates: map[string]float64{"USD": 2, "EUR": 0.9, "XOF": 600}},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			table, err := newTestFetcher(test.client).FetchRates(context.Background(), storefxcurrency.USD)
			require.NoError(t, err)
			require.True(t, table.IsFallback())
			require.Equal(t, storefxcurrency.USD, table.Base())
			want, err := storefxfallback.Table(storefxcurrency.USD, testNow)
			require.NoError(t, err)
			if diff := cmp.Diff(want.Rates(), table.Rates()); diff != "" {
				t.Errorf("rates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchRatesUnknownBase(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	_, err := newTestFetcher(client).FetchRates(context.Background(), "ZZZ")
	require.ErrorIs(t, err, storefxcurrency.ErrUnknownCode)
	require.Empty(t, client.bases())
}

func TestFetchRatesSingleFlight(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	client := &fakeClient{
		rates:   map[string]float64{"USD": 1, "EUR": 0.9, "XOF": 600},
		release: release,
		started: make(chan struct{}, 1),
	}
	fetcher := newTestFetcher(client)
	const callers = 8
	tables := make([]*storefxrate.Table, callers)
	var wg sync.WaitGroup
	// Start one caller and wait until its request is in flight before starting the rest.
	wg.Add(1)
	go func() {
		defer wg.Done()
		tables[0], _ = fetcher.FetchRates(context.Background(), storefxcurrency.USD)
	}()
	<-client.started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tables[i], _ = fetcher.FetchRates(context.Background(), storefxcurrency.USD)
		}()
	}
	// Give the joiners time to reach the in-flight call.
	require.Eventually(t, func() bool { return client.waiting.Load() == 1 }, 5*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	require.Equal(t, []string{"USD"}, client.bases())
	for _, table := range tables {
		require.Same(t, tables[0], table)
	}
}

func TestFetchRatesCallerCancellationDoesNotFailSharedFetch(t *testing.T) {
	t.Parallel()
	client := &fakeClient{rates: map[string]float64{"EUR": 1, "USD": 1.1, "XOF": 655.96}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	table, err := newTestFetcher(client).FetchRates(ctx, storefxcurrency.EUR)
	require.NoError(t, err)
	require.False(t, table.IsFallback())
}

func newTestFetcher(client *fakeClient) Fetcher {
	return NewFetcher(
		slog.New(slog.DiscardHandler),
		client,
		FetcherWithNow(func() time.Time { return testNow }),
		FetcherWithTimeout(5*time.Second),
	)
}

type fakeClient struct {
	rates   map[string]float64
	err     error
	release chan struct{}
	started chan struct{}
	waiting atomic.Int32

	mu        sync.Mutex
	requested []string
}

func (c *fakeClient) GetRates(ctx context.Context, baseCurrency string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.requested = append(c.requested, baseCurrency)
	c.mu.Unlock()
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		c.waiting.Add(1)
		<-c.release
	}
	return c.rates, c.err
}

func (c *fakeClient) bases() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requested...)
}
