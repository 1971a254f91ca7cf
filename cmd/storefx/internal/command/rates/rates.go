// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package rates implements the "rates" command.
package rates

import (
	"context"
	"errors"
	"strconv"
	"time"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/cmd/storefx/internal/storefxcmd"
	"github.com/bufdev/storefx/internal/pkg/cliio"
	"github.com/spf13/pflag"
)

const (
	// baseFlagName is the flag name for the base currency.
	baseFlagName = "base"
	// formatFlagName is the flag name for the output format.
	formatFlagName = "format"
)

// NewCommand returns a new rates command that prints the current rate table.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Fetch and print exchange rates",
		Long:  "Fetch exchange rates from the configured rate service. If the service is unavailable, the built-in fallback rates are printed and marked as such.",
		Args:  appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Base is the base currency. Defaults to the preferred currency.
	Base string
	// Format is the output format (table, csv, json).
	Format string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Base, baseFlagName, "", "The base currency (defaults to the preferred currency)")
	flagSet.StringVar(&f.Format, formatFlagName, "table", "Output format (table, csv, json)")
}

// rateJSON is the JSON form of one rate.
type rateJSON struct {
	Base      string    `json:"base"`
	Code      string    `json:"code"`
	Rate      float64   `json:"rate"`
	FetchedAt time.Time `json:"fetched_at"`
	Fallback  bool      `json:"fallback"`
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	env, err := storefxcmd.NewEnv(container)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, env.Close())
	}()
	base, err := env.ResolveCurrency(ctx, container, baseFlagName, flags.Base)
	if err != nil {
		return err
	}
	table, err := env.Fetcher.FetchRates(ctx, base)
	if err != nil {
		return err
	}
	output := cliio.Output[rateJSON]{
		Headers: []string{"CODE", "SYMBOL", "RATE"},
	}
	for _, code := range table.Codes() {
		rate, _ := table.Rate(code)
		info, _ := code.Info()
		output.Rows = append(output.Rows, []string{code.String(), info.Symbol, strconv.FormatFloat(rate, 'f', -1, 64)})
		output.Objects = append(output.Objects, rateJSON{
			Base:      table.Base().String(),
			Code:      code.String(),
			Rate:      rate,
			FetchedAt: table.FetchedAt(),
			Fallback:  table.IsFallback(),
		})
	}
	if table.IsFallback() {
		output.Notes = append(output.Notes, "", "rate service unavailable, showing fallback rates")
	}
	return cliio.Write(container.Stdout(), format, output)
}
