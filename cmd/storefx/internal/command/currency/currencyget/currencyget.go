// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package currencyget implements the "currency get" command.
package currencyget

import (
	"context"
	"errors"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/cmd/storefx/internal/storefxcmd"
)

// NewCommand returns a new currency get command that prints the preferred currency.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Print the preferred display currency",
		Args:  appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container)
			},
		),
	}
}

func run(ctx context.Context, container appext.Container) (retErr error) {
	env, err := storefxcmd.NewEnv(container)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, env.Close())
	}()
	code, err := env.Store.Get(ctx)
	if err != nil {
		// The store still returns the default, which is what a fresh manager would use.
		container.Logger().Warn("could not read preferred currency, showing default", "error", err)
	}
	_, err = fmt.Fprintf(container.Stdout(), "%s\n", code)
	return err
}
