// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package serve implements the "serve" command.
package serve

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/internal/pkg/exchangerateapi"
	"github.com/bufdev/storefx/internal/storefx/storefxconfig"
	"github.com/bufdev/storefx/internal/storefx/storefxserver"
)

// NewCommand returns a new serve command that runs the rate-quote server.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Serve exchange rates to storefx clients",
		Long:  "Serve GET /rates?base=<CODE> on the configured address until interrupted. Upstream rates are cached per base, and fallback rates are served when the upstream is unavailable.",
		Args:  appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container)
			},
		),
	}
}

func run(ctx context.Context, container appext.Container) error {
	config, err := storefxconfig.ReadConfig(container.ConfigDirPath())
	if err != nil {
		return err
	}
	logger := container.Logger()
	client := exchangerateapi.NewClient(
		exchangerateapi.ClientWithBaseURL(config.Server.UpstreamURL),
		exchangerateapi.ClientWithHTTPClient(&http.Client{Timeout: config.RequestTimeout}),
	)
	handler := storefxserver.NewHandler(
		logger,
		client,
		storefxserver.HandlerWithCacheTTL(config.Server.CacheTTL),
		storefxserver.HandlerWithUpstreamTimeout(config.RequestTimeout),
		storefxserver.HandlerWithAllowedOrigins(config.Server.AllowedOrigins...),
	)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return storefxserver.Run(ctx, logger, config.Server.Address, handler)
}
