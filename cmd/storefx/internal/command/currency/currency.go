// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package currency implements the "currency" command group.
package currency

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/currency/currencyget"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/currency/currencylist"
	"github.com/bufdev/storefx/cmd/storefx/internal/command/currency/currencyset"
)

// NewCommand returns a new currency command group with list, get, and set sub-commands.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Show and change the preferred display currency",
		SubCommands: []*appcmd.Command{
			currencylist.NewCommand("list", builder),
			currencyget.NewCommand("get", builder),
			currencyset.NewCommand("set", builder),
		},
	}
}
