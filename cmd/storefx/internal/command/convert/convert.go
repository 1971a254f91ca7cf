// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package convert implements the "convert" command.
package convert

import (
	"context"
	"errors"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/cmd/storefx/internal/storefxcmd"
	"github.com/bufdev/storefx/internal/storefx/storefxconvert"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// toFlagName is the flag name for the target currency.
const toFlagName = "to"

// NewCommand returns a new convert command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <AMOUNT> <FROM>",
		Short: "Convert an amount between currencies",
		Long:  "Convert AMOUNT from the FROM currency to the --to currency (defaults to the preferred currency) and print it formatted.",
		Args:  appcmd.ExactArgs(2),
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// To is the target currency. Defaults to the preferred currency.
	To string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.To, toFlagName, "", "The target currency (defaults to the preferred currency)")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	amount, err := decimal.NewFromString(container.Arg(0))
	if err != nil {
		return appcmd.NewInvalidArgumentErrorf("invalid amount %q: %s", container.Arg(0), err.Error())
	}
	from, err := storefxcurrency.Parse(container.Arg(1))
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
	to, err := env.ResolveCurrency(ctx, container, toFlagName, flags.To)
	if err != nil {
		return err
	}
	// Rates are fetched relative to the target, like the manager does for the display currency.
	table, err := env.Fetcher.FetchRates(ctx, to)
	if err != nil {
		return err
	}
	if table.IsFallback() {
		container.Logger().Warn("rate service unavailable, converting with fallback rates", "base", to)
	}
	converted, err := storefxconvert.Convert(amount.InexactFloat64(), from, to, table)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(container.Stdout(), storefxconvert.Format(converted, to))
	return err
}
