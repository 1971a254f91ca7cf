// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package currencylist implements the "currency list" command.
package currencylist

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/internal/pkg/cliio"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/spf13/pflag"
)

// formatFlagName is the flag name for the output format.
const formatFlagName = "format"

// NewCommand returns a new currency list command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List the supported currencies",
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
	// Format is the output format (table, csv, json).
	Format string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Format, formatFlagName, "table", "Output format (table, csv, json)")
}

// currencyJSON is the JSON form of one supported currency.
type currencyJSON struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Flag   string `json:"flag"`
	Name   string `json:"name"`
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	output := cliio.Output[currencyJSON]{
		Headers: []string{"CODE", "SYMBOL", "FLAG", "NAME"},
	}
	for _, code := range storefxcurrency.All() {
		info, _ := code.Info()
		output.Rows = append(output.Rows, []string{info.Code.String(), info.Symbol, info.Flag, info.Name})
		output.Objects = append(output.Objects, currencyJSON{
			Code:   info.Code.String(),
			Symbol: info.Symbol,
			Flag:   info.Flag,
			Name:   info.Name,
		})
	}
	return cliio.Write(container.Stdout(), format, output)
}
