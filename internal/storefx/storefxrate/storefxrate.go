// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxrate provides the immutable rate table.
//
// A Table maps currency codes to their rate relative to one base currency:
// one unit of the base buys Rate(code) units of code. Tables are validated
// at construction and never mutated afterwards, so a Table pointer can be
// shared freely between goroutines. Refreshing rates means building a new
// Table and replacing the pointer.
package storefxrate

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
)

// baseRateTolerance is how far the base rate may drift from 1 before the table is rejected.
const baseRateTolerance = 1e-9

const (
	// SourceRemote marks a table built from a rate-quote service response.
	SourceRemote Source = iota + 1
	// SourceFallback marks a table built from the static fallback matrix.
	SourceFallback
)

// ErrMalformedTable is returned when a table fails validation.
var ErrMalformedTable = errors.New("malformed rate table")

// Source is where a table's rates came from.
type Source int

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Table is an immutable set of rates relative to a base currency.
type Table struct {
	// base is the currency all rates are relative to.
	base storefxcurrency.Code
	// rates maps each currency to its rate relative to base. Always contains base with rate 1.
	rates map[storefxcurrency.Code]float64
	// fetchedAt is when the rates were obtained.
	fetchedAt time.Time
	// source is where the rates came from.
	source Source
}

// NewTable validates rates and returns a new Table.
//
// The rates map is copied. Returns an error wrapping ErrMalformedTable if the
// base is unsupported, the base rate is missing or not 1, any code is
// unsupported, or any rate is not a strictly positive finite number.
func NewTable(
	source Source,
	base storefxcurrency.Code,
	rates map[storefxcurrency.Code]float64,
	fetchedAt time.Time,
) (*Table, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("%w: base: %w", ErrMalformedTable, err)
	}
	baseRate, ok := rates[base]
	if !ok {
		return nil, fmt.Errorf("%w: missing rate for base %s", ErrMalformedTable, base)
	}
	if math.Abs(baseRate-1) > baseRateTolerance {
		return nil, fmt.Errorf("%w: rate for base %s is %v, must be 1", ErrMalformedTable, base, baseRate)
	}
	copied := make(map[storefxcurrency.Code]float64, len(rates))
	for code, rate := range rates {
		if err := code.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
		}
		if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
			return nil, fmt.Errorf("%w: rate for %s is %v, must be positive and finite", ErrMalformedTable, code, rate)
		}
		copied[code] = rate
	}
	// Normalize the base rate so identity lookups are exact.
	copied[base] = 1
	return &Table{
		base:      base,
		rates:     copied,
		fetchedAt: fetchedAt,
		source:    source,
	}, nil
}

// Base returns the base currency.
func (t *Table) Base() storefxcurrency.Code {
	return t.base
}

// Rate returns the rate for code relative to the base.
//
// Returns false if the table has no rate for code.
func (t *Table) Rate(code storefxcurrency.Code) (float64, bool) {
	rate, ok := t.rates[code]
	return rate, ok
}

// Rates returns a copy of all rates.
func (t *Table) Rates() map[storefxcurrency.Code]float64 {
	return maps.Clone(t.rates)
}

// Codes returns the codes with a rate, in supported-set display order.
func (t *Table) Codes() []storefxcurrency.Code {
	return slices.DeleteFunc(storefxcurrency.All(), func(code storefxcurrency.Code) bool {
		_, ok := t.rates[code]
		return !ok
	})
}

// FetchedAt returns when the rates were obtained.
func (t *Table) FetchedAt() time.Time {
	return t.fetchedAt
}

// Source returns where the rates came from.
func (t *Table) Source() Source {
	return t.source
}

// IsFallback returns true if the table was built from the static fallback matrix.
func (t *Table) IsFallback() bool {
	return t.source == SourceFallback
}
