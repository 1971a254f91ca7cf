// Copyright 2026 Peter Edge
//
// All rights reserved.

package main

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/config"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/convert"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/currency"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/rates"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/render"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/serve"
)

func main() {
	appcmd.Main(context.Background(), newRootCommand("storefx"))
}

// newRootCommand creates the root storefx command with all sub-commands.
func newRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(name)
	return &appcmd.Command{
		Use:                 name,
		Short:               "Convert and display storefront prices in XOF, USD, and EUR",
		BindPersistentFlags: builder.BindRoot,
		SubCommands: []*appcmd.Command{
			config.NewCommand("config", builder),
			currency.NewCommand("currency", builder),
			rates.NewCommand("rates", builder),
			convert.NewCommand("convert", builder),
			render.NewCommand("render", builder),
			serve.NewCommand("serve", builder),
		},
	}
}
