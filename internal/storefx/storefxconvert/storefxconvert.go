// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxconvert converts and formats amounts against a rate table.
package storefxconvert

import (
	"errors"
	"fmt"

	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxrate"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrRateNotFound is returned when the table has no rate for a currency involved in a conversion.
	ErrRateNotFound = errors.New("rate not found")
	// ErrNoTable is returned when a non-identity conversion is attempted without a table.
	ErrNoTable = errors.New("no rate table")
)

// Convert converts amount from one currency to another using table.
//
// Identity conversions return amount unchanged. Otherwise the conversion goes
// through the table's base: directly when either side is the base, and as
// amount * rate(to) / rate(from) when neither is.
//
// Returns an error wrapping storefxcurrency.ErrUnknownCode for unsupported
// codes, ErrNoTable if table is nil, and ErrRateNotFound if the table lacks a
// needed rate. A missing rate is never treated as 1.
func Convert(amount float64, from storefxcurrency.Code, to storefxcurrency.Code, table *storefxrate.Table) (float64, error) {
	if err := from.Validate(); err != nil {
		return 0, err
	}
	if err := to.Validate(); err != nil {
		return 0, err
	}
	if from == to {
		return amount, nil
	}
	if table == nil {
		return 0, fmt.Errorf("converting %s to %s: %w", from, to, ErrNoTable)
	}
	base := table.Base()
	switch {
	case from == base:
		toRate, err := rate(table, to)
		if err != nil {
			return 0, err
		}
		return amount * toRate, nil
	case to == base:
		fromRate, err := rate(table, from)
		if err != nil {
			return 0, err
		}
		return amount / fromRate, nil
	default:
		// Neither side is the base: go through it.
		fromRate, err := rate(table, from)
		if err != nil {
			return 0, err
		}
		toRate, err := rate(table, to)
		if err != nil {
			return 0, err
		}
		return amount * toRate / fromRate, nil
	}
}

// Format renders amount with the currency symbol, two decimals, and thousands separators.
//
// For example, Format(1234.5, storefxcurrency.USD) is "$ 1,234.50". Unsupported
// codes print the raw code in place of the symbol.
func Format(amount float64, code storefxcurrency.Code) string {
	symbol := code.String()
	if info, ok := code.Info(); ok {
		symbol = info.Symbol
	}
	// Round half away from zero on the decimal value so 0.125 becomes 0.13, not 0.12.
	rounded := decimal.NewFromFloat(amount).Round(2).InexactFloat64()
	return symbol + " " + printer.Sprintf("%.2f", rounded)
}

// *** PRIVATE ***

// printer formats numbers with English grouping ("1,234.50").
var printer = message.NewPrinter(language.English)

// rate returns the rate for code, or an error wrapping ErrRateNotFound.
func rate(table *storefxrate.Table, code storefxcurrency.Code) (float64, error) {
	value, ok := table.Rate(code)
	if !ok {
		return 0, fmt.Errorf("%w: %s in table based on %s", ErrRateNotFound, code, table.Base())
	}
	return value, nil
}
