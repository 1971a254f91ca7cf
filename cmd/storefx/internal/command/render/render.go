// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package render implements the "render" command.
package render

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/cmd/storefx/internal/storefxcmd"
	"github.com/bufdev/storefx/internal/pkg/cliio"
	"github.com/bufdev/storefx/internal/storefx/storefxmanager"
	"github.com/spf13/pflag"
)

const (
	// watchFlagName is the flag name for re-rendering on every refresh.
	watchFlagName = "watch"
	// formatFlagName is the flag name for the output format.
	formatFlagName = "format"
)

// NewCommand returns a new render command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <FILE>",
		Short: "Render a file of prices in the preferred currency",
		Long: `Render a file of prices in the preferred currency.

FILE is a YAML list of prices, each with an id, an amount, and a currency:

  - id: coffee
    amount: 3.5
    currency: EUR

With --watch, rates are refreshed on the configured interval and the prices
are printed again after every refresh until interrupted.`,
		Args: appcmd.ExactArgs(1),
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Watch keeps refreshing and re-rendering until interrupted.
	Watch bool
	// Format is the output format (table, csv, json).
	Format string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.BoolVar(&f.Watch, watchFlagName, false, "Refresh rates periodically and re-render until interrupted")
	flagSet.StringVar(&f.Format, formatFlagName, "table", "Output format (table, csv, json)")
}

// renderedJSON is the JSON form of one rendered price.
type renderedJSON struct {
	ID           string  `json:"id"`
	BaseAmount   float64 `json:"base_amount"`
	BaseCurrency string  `json:"base_currency"`
	Currency     string  `json:"currency"`
	Display      string  `json:"display"`
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	nodes, err := readPriceNodes(container.Arg(0))
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
	manager := env.Manager
	for _, node := range nodes {
		manager.Register(node)
	}
	manager.Init(ctx)
	if err := writeNodes(container, format, manager, nodes); err != nil {
		return err
	}
	if !flags.Watch {
		return nil
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Refreshes install tables without rendering; render and print each one here.
	var writeMu sync.Mutex
	var writeErr error
	unsubscribe := manager.SubscribeRatesInstalled(func(storefxmanager.RatesInstalled) {
		manager.RenderAll()
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := writeNodes(container, format, manager, nodes); err != nil && writeErr == nil {
			writeErr = err
			stop()
		}
	})
	defer unsubscribe()
	task := manager.Start(ctx, env.Config.RefreshInterval)
	container.Logger().Info("watching exchange rates", "interval", env.Config.RefreshInterval)
	<-ctx.Done()
	task.Stop()
	writeMu.Lock()
	defer writeMu.Unlock()
	return writeErr
}

func writeNodes(container appext.Container, format cliio.Format, manager storefxmanager.Manager, nodes []*priceNode) error {
	currency := manager.CurrentCurrency()
	output := cliio.Output[renderedJSON]{
		Headers: []string{"ID", "AMOUNT", "FROM", "PRICE"},
	}
	for _, node := range nodes {
		display := node.Display()
		output.Rows = append(output.Rows, []string{
			node.id,
			strconv.FormatFloat(node.amount, 'f', -1, 64),
			node.currency.String(),
			display,
		})
		output.Objects = append(output.Objects, renderedJSON{
			ID:           node.id,
			BaseAmount:   node.amount,
			BaseCurrency: node.currency.String(),
			Currency:     currency.String(),
			Display:      display,
		})
	}
	if table := manager.Table(); table != nil && table.IsFallback() {
		output.Notes = append(output.Notes, "", "rate service unavailable, prices use fallback rates")
	}
	return cliio.Write(container.Stdout(), format, output)
}
