// Copyright 2026 Peter Edge
//
// All rights reserved.

package storefxmanager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bufdev/storefx/internal/pkg/ratequote"
	"github.com/bufdev/storefx/internal/storefx/storefxconvert"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxfallback"
	"github.com/bufdev/storefx/internal/storefx/storefxfetch"
	"github.com/bufdev/storefx/internal/storefx/storefxrate"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestInitRendersWithFallbackRates(t *testing.T) {
	t.Parallel()
	// A rate-quote service that always fails drives the real fetcher to fallback rates.
	fetcher := storefxfetch.NewFetcher(
		slog.New(slog.DiscardHandler),
		failingClient{},
		storefxfetch.FetcherWithNow(func() time.Time { return testNow }),
	)
	store := newMemoryStore("")
	manager := NewManager(slog.New(slog.DiscardHandler), store, fetcher)
	euroNode := &testNode{amount: 10, currency: storefxcurrency.EUR}
	francNode := &testNode{amount: 1500, currency: storefxcurrency.XOF}
	manager.Register(euroNode, francNode)
	require.Equal(t, StateUninitialized, manager.State())

	manager.Init(context.Background())
	require.Equal(t, StateReady, manager.State())
	require.Equal(t, storefxcurrency.XOF, manager.CurrentCurrency())
	table := manager.Table()
	require.NotNil(t, table)
	require.True(t, table.IsFallback())
	require.Equal(t, storefxcurrency.XOF, table.Base())
	// 10 EUR at 0.0015 EUR per franc.
	require.Equal(t, "FCFA 6,666.67", euroNode.Display())
	require.Equal(t, "FCFA 1,500.00", francNode.Display())
}

func TestRenderAllEuroBaseTable(t *testing.T) {
	t.Parallel()
	manager := newTestManager(t, newMemoryStore(""), newFakeFetcher())
	node := &testNode{amount: 10, currency: storefxcurrency.EUR}
	manager.Register(node)
	table, err := storefxfallback.Table(storefxcurrency.EUR, testNow)
	require.NoError(t, err)
	// Install a euro-based table while francs are displayed.
	manager.mu.Lock()
	manager.currency = storefxcurrency.XOF
	manager.table = table
	manager.state = StateReady
	manager.mu.Unlock()

	manager.RenderAll()
	require.Equal(t, storefxconvert.Format(10*655.96, storefxcurrency.XOF), node.Display())
	require.Equal(t, "FCFA 6,559.60", node.Display())
}

func TestRenderAllBeforeInitIsNoop(t *testing.T) {
	t.Parallel()
	manager := newTestManager(t, newMemoryStore(""), newFakeFetcher())
	node := &testNode{amount: 10, currency: storefxcurrency.EUR, display: "€ 10.00"}
	manager.Register(node)
	manager.RenderAll()
	require.Equal(t, "€ 10.00", node.Display())
	// Zero nodes is fine too.
	newTestManager(t, newMemoryStore(""), newFakeFetcher()).RenderAll()
}

func TestInitUsesStoredPreference(t *testing.T) {
	t.Parallel()
	fetcher := newFakeFetcher()
	selector := &testSelector{}
	manager := NewManager(
		slog.New(slog.DiscardHandler),
		newMemoryStore(storefxcurrency.USD),
		fetcher,
		ManagerWithSelector(selector),
	)
	node := &testNode{amount: 100, currency: storefxcurrency.EUR}
	manager.Register(node)
	manager.Init(context.Background())
	require.Equal(t, storefxcurrency.USD, manager.CurrentCurrency())
	require.Equal(t, []storefxcurrency.Code{storefxcurrency.USD}, fetcher.calls())
	require.Equal(t, []storefxcurrency.Code{storefxcurrency.USD}, selector.activeCodes())
	// 100 EUR at 0.92 EUR per dollar.
	require.Equal(t, "$ 108.70", node.Display())
}

func TestInitStoreError(t *testing.T) {
	t.Parallel()
	store := newMemoryStore(storefxcurrency.EUR)
	store.getErr = errors.New("disk on fire")
	manager := newTestManager(t, store, newFakeFetcher())
	manager.Init(context.Background())
	// The store reports its default alongside the error.
	require.Equal(t, storefxcurrency.XOF, manager.CurrentCurrency())
	require.Equal(t, StateReady, manager.State())
}

func TestChangeCurrency(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemoryStore("")
	fetcher := newFakeFetcher()
	selector := &testSelector{}
	manager := NewManager(slog.New(slog.DiscardHandler), store, fetcher, ManagerWithSelector(selector))
	node := &testNode{amount: 10, currency: storefxcurrency.EUR}
	manager.Register(node)
	manager.Init(ctx)

	var changed []CurrencyChanged
	var installed []storefxcurrency.Code
	manager.SubscribeCurrencyChanged(func(event CurrencyChanged) {
		// Nodes are rendered before subscribers hear about the change.
		require.Equal(t, "$ 10.87", node.Display())
		changed = append(changed, event)
	})
	manager.SubscribeRatesInstalled(func(event RatesInstalled) {
		installed = append(installed, event.Table.Base())
	})

	require.NoError(t, manager.ChangeCurrency(ctx, storefxcurrency.USD))
	require.Equal(t, storefxcurrency.USD, manager.CurrentCurrency())
	require.Equal(t, storefxcurrency.USD, manager.Table().Base())
	require.Equal(t, StateReady, manager.State())
	require.Equal(t, storefxcurrency.USD, store.value())
	require.Equal(t, []CurrencyChanged{{Code: storefxcurrency.USD}}, changed)
	require.Equal(t, []storefxcurrency.Code{storefxcurrency.USD}, installed)
	want := []storefxcurrency.Code{storefxcurrency.XOF, storefxcurrency.USD}
	if diff := cmp.Diff(want, selector.activeCodes()); diff != "" {
		t.Errorf("selector mismatch (-want +got):\n%s", diff)
	}
}

func TestChangeCurrencyUnknown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemoryStore("")
	fetcher := newFakeFetcher()
	manager := newTestManager(t, store, fetcher)
	manager.Init(ctx)
	var changed int
	manager.SubscribeCurrencyChanged(func(CurrencyChanged) { changed++ })

	err := manager.ChangeCurrency(ctx, "ZZZ")
	require.ErrorIs(t, err, storefxcurrency.ErrUnknownCode)
	require.Equal(t, storefxcurrency.XOF, manager.CurrentCurrency())
	require.Equal(t, storefxcurrency.XOF, manager.Table().Base())
	require.Equal(t, StateReady, manager.State())
	require.Equal(t, 0, store.sets())
	require.Equal(t, 0, changed)
	require.Equal(t, []storefxcurrency.Code{storefxcurrency.XOF}, fetcher.calls())
}

func TestChangeCurrencyPersistError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemoryStore("")
	manager := newTestManager(t, store, newFakeFetcher())
	manager.Init(ctx)
	persistErr := errors.New("read-only")
	store.setErr = persistErr
	err := manager.ChangeCurrency(ctx, storefxcurrency.EUR)
	require.ErrorIs(t, err, persistErr)
	require.Equal(t, storefxcurrency.XOF, manager.CurrentCurrency())
	require.Equal(t, storefxcurrency.XOF, manager.Table().Base())
}

func TestStaleRefreshDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fetcher := newFakeFetcher()
	manager := newTestManager(t, newMemoryStore(storefxcurrency.EUR), fetcher)
	manager.Init(ctx)
	require.Equal(t, storefxcurrency.EUR, manager.Table().Base())

	// Hold the next euro fetch so the refresh is still in flight during the switch.
	release := fetcher.hold(storefxcurrency.EUR)
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		manager.Refresh(ctx)
	}()
	require.Equal(t, storefxcurrency.EUR, <-fetcher.started)
	require.Equal(t, StateRefreshing, manager.State())

	require.NoError(t, manager.ChangeCurrency(ctx, storefxcurrency.USD))
	require.Equal(t, storefxcurrency.USD, manager.Table().Base())

	close(release)
	<-refreshDone
	require.Equal(t, storefxcurrency.USD, manager.CurrentCurrency())
	require.Equal(t, storefxcurrency.USD, manager.Table().Base())
	require.Equal(t, StateReady, manager.State())
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fetcher := newFakeFetcher()
	manager := newTestManager(t, newMemoryStore(""), fetcher)
	node := &testNode{amount: 10, currency: storefxcurrency.EUR}
	manager.Register(node)

	// Refresh before Init is a no-op.
	manager.Refresh(ctx)
	require.Empty(t, fetcher.calls())
	require.Equal(t, StateUninitialized, manager.State())

	manager.Init(ctx)
	first := manager.Table()
	var installed int
	manager.SubscribeRatesInstalled(func(RatesInstalled) { installed++ })
	node.SetDisplay("stale")
	manager.Refresh(ctx)
	require.Equal(t, StateReady, manager.State())
	require.NotSame(t, first, manager.Table())
	require.Equal(t, 1, installed)
	// Refresh does not render.
	require.Equal(t, "stale", node.Display())
}

func TestRefreshCoalescedWhileRefreshing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fetcher := newFakeFetcher()
	manager := newTestManager(t, newMemoryStore(""), fetcher)
	manager.Init(ctx)

	release := fetcher.hold(storefxcurrency.XOF)
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		manager.Refresh(ctx)
	}()
	<-fetcher.started
	// A second refresh while one is in flight does nothing.
	manager.Refresh(ctx)
	close(release)
	<-refreshDone
	require.Len(t, fetcher.calls(), 2)
	require.Equal(t, StateReady, manager.State())
}

func TestStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fetcher := newFakeFetcher()
	manager := newTestManager(t, newMemoryStore(""), fetcher)
	manager.Init(ctx)
	task := manager.Start(ctx, time.Millisecond)
	require.Eventually(t, func() bool { return len(fetcher.calls()) >= 3 }, 5*time.Second, time.Millisecond)
	task.Stop()
	calls := len(fetcher.calls())
	time.Sleep(20 * time.Millisecond)
	require.Len(t, fetcher.calls(), calls)
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	manager := newTestManager(t, newMemoryStore(""), newFakeFetcher())
	manager.Init(ctx)
	var changed int
	unsubscribe := manager.SubscribeCurrencyChanged(func(CurrencyChanged) { changed++ })
	require.NoError(t, manager.ChangeCurrency(ctx, storefxcurrency.EUR))
	unsubscribe()
	unsubscribe()
	require.NoError(t, manager.ChangeCurrency(ctx, storefxcurrency.USD))
	require.Equal(t, 1, changed)
}

func TestStateString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "refreshing", StateRefreshing.String())
	require.Equal(t, "state(9)", State(9).String())
}

func newTestManager(t *testing.T, store *memoryStore, fetcher *fakeFetcher) *manager {
	t.Helper()
	return NewManager(slog.New(slog.DiscardHandler), store, fetcher).(*manager)
}

type testNode struct {
	amount   float64
	currency storefxcurrency.Code

	mu      sync.Mutex
	display string
}

func (n *testNode) BaseAmount() float64 {
	return n.amount
}

func (n *testNode) BaseCurrency() storefxcurrency.Code {
	return n.currency
}

func (n *testNode) SetDisplay(display string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.display = display
}

func (n *testNode) Display() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.display
}

type testSelector struct {
	mu    sync.Mutex
	codes []storefxcurrency.Code
}

func (s *testSelector) SetActive(code storefxcurrency.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
}

func (s *testSelector) activeCodes() []storefxcurrency.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storefxcurrency.Code(nil), s.codes...)
}

// memoryStore is an in-memory preference store defaulting to XOF.
type memoryStore struct {
	mu       sync.Mutex
	stored   storefxcurrency.Code
	setCount int
	getErr   error
	setErr   error
}

func newMemoryStore(stored storefxcurrency.Code) *memoryStore {
	return &memoryStore{stored: stored}
}

func (s *memoryStore) Get(context.Context) (storefxcurrency.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return storefxcurrency.XOF, s.getErr
	}
	if s.stored == "" {
		return storefxcurrency.XOF, nil
	}
	return s.stored, nil
}

func (s *memoryStore) Set(_ context.Context, code storefxcurrency.Code) error {
	if err := code.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.stored = code
	s.setCount++
	return nil
}

func (s *memoryStore) value() storefxcurrency.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored
}

func (s *memoryStore) sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCount
}

// fakeFetcher returns fallback tables, optionally holding a fetch for one base until released.
type fakeFetcher struct {
	started chan storefxcurrency.Code

	mu        sync.Mutex
	requested []storefxcurrency.Code
	holds     map[storefxcurrency.Code]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		started: make(chan storefxcurrency.Code, 1),
		holds:   make(map[storefxcurrency.Code]chan struct{}),
	}
}

// hold makes the next fetch for base block until the returned channel is closed.
func (f *fakeFetcher) hold(base storefxcurrency.Code) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	release := make(chan struct{})
	f.holds[base] = release
	return release
}

func (f *fakeFetcher) FetchRates(_ context.Context, base storefxcurrency.Code) (*storefxrate.Table, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requested = append(f.requested, base)
	release, held := f.holds[base]
	delete(f.holds, base)
	f.mu.Unlock()
	if held {
		f.started <- base
		<-release
	}
	return storefxfallback.Table(base, testNow)
}

func (f *fakeFetcher) calls() []storefxcurrency.Code {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storefxcurrency.Code(nil), f.requested...)
}

type failingClient struct{}

func (failingClient) GetRates(context.Context, string) (map[string]float64, error) {
	return nil, ratequote.ErrUnsuccessful
}
