// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxmanager owns the current display currency and its rate table,
// and keeps every registered price node's display in sync with them.
//
// A Manager moves through the states Uninitialized, Loading, Ready, and
// Refreshing. Init and ChangeCurrency enter Loading and end in Ready; Refresh
// moves Ready to Refreshing and back. Every fetch the manager starts takes a
// sequence number, and a completed fetch is installed only if its base is
// still the current currency and it is newer than the installed table, so a
// slow refresh for a previous currency never replaces a newer switch.
package storefxmanager

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bufdev/storefx/internal/pkg/pubsub"
	"github.com/bufdev/storefx/internal/pkg/tickertask"
	"github.com/bufdev/storefx/internal/storefx/storefxconvert"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxfetch"
	"github.com/bufdev/storefx/internal/storefx/storefxpref"
	"github.com/bufdev/storefx/internal/storefx/storefxrate"
)

const (
	// StateUninitialized is the state before Init.
	StateUninitialized State = iota
	// StateLoading is the state while the first table for the current currency is fetched.
	StateLoading
	// StateReady is the state when a table for the current currency is installed.
	StateReady
	// StateRefreshing is the state while a periodic refresh is in flight.
	StateRefreshing
)

// State is the lifecycle state of a Manager.
type State int

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PriceNode is a displayed price.
//
// The node's source-of-truth price is read with BaseAmount and BaseCurrency;
// the converted, formatted price is written with SetDisplay.
type PriceNode interface {
	BaseAmount() float64
	BaseCurrency() storefxcurrency.Code
	SetDisplay(display string)
}

// Selector is a currency selector that shows which currency is active.
type Selector interface {
	SetActive(code storefxcurrency.Code)
}

// CurrencyChanged is published after a successful ChangeCurrency.
type CurrencyChanged struct {
	// Code is the new current currency.
	Code storefxcurrency.Code
}

// RatesInstalled is published every time a table is installed.
type RatesInstalled struct {
	// Table is the installed table.
	Table *storefxrate.Table
}

// Manager is the interface for the currency context of one host.
type Manager interface {
	// Register adds price nodes to be rendered.
	Register(nodes ...PriceNode)
	// Init reads the stored preference, fetches rates for it, and renders every node.
	//
	// Preference read errors are logged and the default currency is used. Fetch
	// failures degrade to fallback rates, so Init ends in StateReady.
	Init(ctx context.Context)
	// ChangeCurrency switches the current currency to code.
	//
	// An unsupported code is logged and rejected with an error wrapping
	// storefxcurrency.ErrUnknownCode; nothing is changed or persisted. A
	// persistence failure is returned and nothing is changed. Otherwise the
	// code is persisted, rates are fetched and installed, every node is
	// rendered, and CurrencyChanged is published.
	ChangeCurrency(ctx context.Context, code storefxcurrency.Code) error
	// Refresh fetches and installs a new table for the current currency.
	//
	// Refresh only runs from StateReady and is a no-op in any other state.
	// It does not render; subscribe to RatesInstalled to re-render.
	Refresh(ctx context.Context)
	// RenderAll writes the converted price to every registered node.
	//
	// It is a no-op until a table is installed. A node that cannot be
	// converted keeps its previous display.
	RenderAll()
	// Start starts refreshing every interval until the returned task is stopped or ctx is done.
	Start(ctx context.Context, interval time.Duration) *tickertask.Task
	// SubscribeCurrencyChanged registers handler and returns a function that removes it.
	SubscribeCurrencyChanged(handler func(CurrencyChanged)) func()
	// SubscribeRatesInstalled registers handler and returns a function that removes it.
	SubscribeRatesInstalled(handler func(RatesInstalled)) func()
	// CurrentCurrency returns the current currency.
	CurrentCurrency() storefxcurrency.Code
	// Table returns the installed table, or nil if none is installed.
	Table() *storefxrate.Table
	// State returns the current state.
	State() State
}

// ManagerOption is a functional option for configuring the Manager.
type ManagerOption func(*manager)

// ManagerWithSelector sets the selector marked active on every currency change.
func ManagerWithSelector(selector Selector) ManagerOption {
	return func(m *manager) {
		m.selector = selector
	}
}

// NewManager creates a new Manager. The logger is required.
//
// The current currency is storefxcurrency.Default until Init is called.
func NewManager(
	logger *slog.Logger,
	store storefxpref.Store,
	fetcher storefxfetch.Fetcher,
	options ...ManagerOption,
) Manager {
	m := &manager{
		logger:          logger,
		store:           store,
		fetcher:         fetcher,
		currencyChanged: pubsub.NewTopic[CurrencyChanged](),
		ratesInstalled:  pubsub.NewTopic[RatesInstalled](),
		currency:        storefxcurrency.Default,
		state:           StateUninitialized,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

type manager struct {
	logger          *slog.Logger
	store           storefxpref.Store
	fetcher         storefxfetch.Fetcher
	selector        Selector
	currencyChanged *pubsub.Topic[CurrencyChanged]
	ratesInstalled  *pubsub.Topic[RatesInstalled]

	// changeMu keeps the persisted preference and the current currency in the same order.
	changeMu sync.Mutex
	// mu guards all fields below.
	mu       sync.Mutex
	nodes    []PriceNode
	currency storefxcurrency.Code
	table    *storefxrate.Table
	// tableSeq is the sequence number of the fetch that produced table.
	tableSeq uint64
	// lastSeq is the sequence number of the most recently started fetch.
	lastSeq uint64
	state   State
}

func (m *manager) Register(nodes ...PriceNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = append(m.nodes, nodes...)
}

func (m *manager) Init(ctx context.Context) {
	code, err := m.store.Get(ctx)
	if err != nil {
		m.logger.Warn("could not read preferred currency, using default", "currency", code, "error", err)
	}
	if !code.IsValid() {
		m.logger.Warn("preferred currency is not supported, using default", "currency", code, "default", storefxcurrency.Default)
		code = storefxcurrency.Default
	}
	m.mu.Lock()
	m.currency = code
	m.state = StateLoading
	seq := m.nextSeqLocked()
	m.mu.Unlock()
	if m.selector != nil {
		m.selector.SetActive(code)
	}
	if m.fetchAndInstall(ctx, code, seq) {
		m.RenderAll()
	}
}

func (m *manager) ChangeCurrency(ctx context.Context, code storefxcurrency.Code) error {
	if err := code.Validate(); err != nil {
		m.logger.Error("invalid currency", "currency", code, "error", err)
		return err
	}
	m.changeMu.Lock()
	if err := m.store.Set(ctx, code); err != nil {
		m.changeMu.Unlock()
		return fmt.Errorf("persisting preferred currency: %w", err)
	}
	m.mu.Lock()
	m.currency = code
	m.table = nil
	m.state = StateLoading
	seq := m.nextSeqLocked()
	m.mu.Unlock()
	m.changeMu.Unlock()
	if m.selector != nil {
		m.selector.SetActive(code)
	}
	// A newer change superseded this one and will render and announce itself.
	if !m.fetchAndInstall(ctx, code, seq) {
		return nil
	}
	m.RenderAll()
	m.currencyChanged.Publish(CurrencyChanged{Code: code})
	return nil
}

func (m *manager) Refresh(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateReady {
		state := m.state
		m.mu.Unlock()
		m.logger.Debug("skipping refresh", "state", state)
		return
	}
	m.state = StateRefreshing
	code := m.currency
	seq := m.nextSeqLocked()
	m.mu.Unlock()
	m.fetchAndInstall(ctx, code, seq)
}

func (m *manager) RenderAll() {
	// Read everything once so the whole pass uses one table.
	m.mu.Lock()
	table := m.table
	code := m.currency
	nodes := slices.Clone(m.nodes)
	m.mu.Unlock()
	if table == nil {
		return
	}
	for _, node := range nodes {
		amount, err := storefxconvert.Convert(node.BaseAmount(), node.BaseCurrency(), code, table)
		if err != nil {
			m.logger.Warn(
				"could not convert price, keeping previous display",
				"amount", node.BaseAmount(),
				"from", node.BaseCurrency(),
				"to", code,
				"error", err,
			)
			continue
		}
		node.SetDisplay(storefxconvert.Format(amount, code))
	}
}

func (m *manager) Start(ctx context.Context, interval time.Duration) *tickertask.Task {
	task := tickertask.New(tickertask.Options{
		Interval: interval,
		Run:      m.Refresh,
	})
	task.Start(ctx)
	return task
}

func (m *manager) SubscribeCurrencyChanged(handler func(CurrencyChanged)) func() {
	return m.currencyChanged.Subscribe(handler)
}

func (m *manager) SubscribeRatesInstalled(handler func(RatesInstalled)) func() {
	return m.ratesInstalled.Subscribe(handler)
}

func (m *manager) CurrentCurrency() storefxcurrency.Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currency
}

func (m *manager) Table() *storefxrate.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table
}

func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// *** PRIVATE ***

// nextSeqLocked returns the sequence number for a new fetch. m.mu must be held.
func (m *manager) nextSeqLocked() uint64 {
	m.lastSeq++
	return m.lastSeq
}

// fetchAndInstall fetches a table for code and installs it if it is still wanted.
//
// Returns true if the table was installed.
func (m *manager) fetchAndInstall(ctx context.Context, code storefxcurrency.Code, seq uint64) bool {
	table, err := m.fetcher.FetchRates(ctx, code)
	if err != nil {
		m.logger.Error("could not fetch exchange rates", "base", code, "error", err)
		m.settle(seq)
		return false
	}
	return m.install(code, seq, table)
}

// install installs table if code is still the current currency and seq is
// newer than the installed table's. Publishes RatesInstalled on success.
func (m *manager) install(code storefxcurrency.Code, seq uint64, table *storefxrate.Table) bool {
	m.mu.Lock()
	if code != m.currency || seq <= m.tableSeq {
		current := m.currency
		m.mu.Unlock()
		m.logger.Debug("dropping stale exchange rates", "base", code, "current", current, "seq", seq)
		m.settle(seq)
		return false
	}
	m.table = table
	m.tableSeq = seq
	m.state = StateReady
	m.mu.Unlock()
	m.ratesInstalled.Publish(RatesInstalled{Table: table})
	return true
}

// settle returns a refresh that installed nothing to StateReady, unless a newer fetch started since.
func (m *manager) settle(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateRefreshing && seq == m.lastSeq && m.table != nil {
		m.state = StateReady
	}
}
