// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxcurrency defines the closed set of currencies storefx supports.
//
// Every currency code referenced anywhere in storefx (rate tables, API
// responses, price nodes, the stored preference) must be one of these codes.
// Unknown codes are rejected with ErrUnknownCode, never coerced.
package storefxcurrency

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

const (
	// XOF is the West African CFA franc.
	XOF Code = "XOF"
	// USD is the United States dollar.
	USD Code = "USD"
	// EUR is the euro.
	EUR Code = "EUR"

	// Default is the currency used when no preference has been stored.
	Default = XOF
)

// ErrUnknownCode is returned when a currency code is not in the supported set.
var ErrUnknownCode = errors.New("unknown currency code")

// Code is a three-letter ISO 4217 currency code from the supported set.
type Code string

// Info is the display metadata for a currency.
type Info struct {
	// Code is the currency code.
	Code Code
	// Symbol is the symbol printed in front of formatted amounts (e.g., "FCFA").
	Symbol string
	// Flag is the flag glyph shown next to the code in selectors.
	Flag string
	// Name is the human-readable currency name.
	Name string
}

// Parse parses a currency code, upper-casing and trimming the input.
//
// Returns an error wrapping ErrUnknownCode if the value is not a well-formed
// ISO 4217 code or is not in the supported set.
func Parse(value string) (Code, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	// Reject malformed values before the membership check so errors are precise.
	if _, err := currency.ParseISO(normalized); err != nil {
		return "", fmt.Errorf("%w: %q is not an ISO 4217 code", ErrUnknownCode, value)
	}
	code := Code(normalized)
	if !code.IsValid() {
		return "", fmt.Errorf("%w: %q is not supported, must be one of: %s", ErrUnknownCode, value, strings.Join(Strings(), ", "))
	}
	return code, nil
}

// All returns every supported code in display order.
func All() []Code {
	return []Code{XOF, USD, EUR}
}

// Strings returns every supported code as a string in display order.
func Strings() []string {
	codes := All()
	result := make([]string, len(codes))
	for i, code := range codes {
		result[i] = code.String()
	}
	return result
}

// Validate returns an error wrapping ErrUnknownCode if the code is not supported.
func (c Code) Validate() error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCode, string(c))
	}
	return nil
}

// IsValid returns true if the code is in the supported set.
func (c Code) IsValid() bool {
	_, ok := infos[c]
	return ok
}

// Info returns the display metadata for the code.
//
// Returns false if the code is not supported.
func (c Code) Info() (Info, bool) {
	info, ok := infos[c]
	return info, ok
}

// String implements fmt.Stringer.
func (c Code) String() string {
	return string(c)
}

// *** PRIVATE ***

var infos = map[Code]Info{
	XOF: {
		Code:   XOF,
		Symbol: "FCFA",
		Flag:   "🇹🇬",
		Name:   "Franc CFA",
	},
	USD: {
		Code:   USD,
		Symbol: "$",
		Flag:   "🇺🇸",
		Name:   "US Dollar",
	},
	EUR: {
		Code:   EUR,
		Symbol: "€",
		Flag:   "🇪🇺",
		Name:   "Euro",
	},
}
