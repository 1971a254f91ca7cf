// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxfallback provides the static rate tables used when the
// rate-quote service cannot be reached.
//
// The matrix is hard-coded and approximate. It is deliberately not derived
// from a single base (the rows are independent quotes), so cross rates from
// different bases do not round-trip exactly.
package storefxfallback

import (
	"time"

	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxrate"
)

// Table returns the fallback rate table for base, stamped with fetchedAt.
//
// The same base always yields the same rates. Returns an error only if base is
// not a supported currency.
func Table(base storefxcurrency.Code, fetchedAt time.Time) (*storefxrate.Table, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	return storefxrate.NewTable(storefxrate.SourceFallback, base, matrix[base], fetchedAt)
}

// *** PRIVATE ***

// matrix maps each base to the rate of every supported currency relative to it.
var matrix = map[storefxcurrency.Code]map[storefxcurrency.Code]float64{
	storefxcurrency.XOF: {
		storefxcurrency.XOF: 1,
		storefxcurrency.USD: 0.0016,
		storefxcurrency.EUR: 0.0015,
	},
	storefxcurrency.USD: {
		storefxcurrency.XOF: 620,
		storefxcurrency.USD: 1,
		storefxcurrency.EUR: 0.92,
	},
	storefxcurrency.EUR: {
		// The CFA franc is pegged to the euro at 655.957.
		storefxcurrency.XOF: 655.96,
		storefxcurrency.USD: 1.09,
		storefxcurrency.EUR: 1,
	},
}
