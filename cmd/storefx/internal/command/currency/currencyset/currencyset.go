// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package currencyset implements the "currency set" command.
package currencyset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/cmd/storefx/internal/storefxcmd"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxmanager"
)

// NewCommand returns a new currency set command that changes the preferred currency.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name + " <CODE>",
		Short: "Change the preferred display currency",
		Long:  "Change the preferred display currency. CODE must be one of: " + strings.Join(storefxcurrency.Strings(), ", ") + ".",
		Args:  appcmd.ExactArgs(1),
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container)
			},
		),
	}
}

func run(ctx context.Context, container appext.Container) (retErr error) {
	code := storefxcurrency.Code(strings.ToUpper(strings.TrimSpace(container.Arg(0))))
	env, err := storefxcmd.NewEnv(container)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, env.Close())
	}()
	var changed []storefxcurrency.Code
	unsubscribe := env.Manager.SubscribeCurrencyChanged(func(event storefxmanager.CurrencyChanged) {
		changed = append(changed, event.Code)
	})
	defer unsubscribe()
	// The manager validates, persists, and fetches rates for the new currency.
	if err := env.Manager.ChangeCurrency(ctx, code); err != nil {
		if errors.Is(err, storefxcurrency.ErrUnknownCode) {
			return appcmd.NewInvalidArgumentError(err.Error())
		}
		return err
	}
	for _, code := range changed {
		info, _ := code.Info()
		if _, err := fmt.Fprintf(container.Stdout(), "%s %s %s\n", info.Flag, info.Code, info.Name); err != nil {
			return err
		}
	}
	return nil
}
