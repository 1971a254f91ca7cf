// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxcmd provides shared wiring for storefx commands (reading
// config, opening the preference store, constructing the fetcher and manager).
package storefxcmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/storefx/internal/pkg/ratequote"
	"github.com/bufdev/storefx/internal/storefx/storefxconfig"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxfetch"
	"github.com/bufdev/storefx/internal/storefx/storefxmanager"
	"github.com/bufdev/storefx/internal/storefx/storefxpath"
	"github.com/bufdev/storefx/internal/storefx/storefxpref"
	"github.com/go-redis/redis/v8"
)

// Env holds the components a storefx command works with.
type Env struct {
	// Config is the validated configuration.
	Config *storefxconfig.Config
	// Store is the preference store selected by the configuration.
	Store storefxpref.Store
	// Fetcher fetches rate tables from the configured rate-quote service.
	Fetcher storefxfetch.Fetcher
	// Manager is the currency manager over Store and Fetcher.
	Manager storefxmanager.Manager

	closers []func() error
}

// NewEnv constructs an Env from the appext container by reading the config
// file and constructing the preference store, fetcher, and manager.
//
// The caller must call Close when done.
func NewEnv(container appext.Container, options ...storefxmanager.ManagerOption) (*Env, error) {
	// Read and validate the configuration file.
	config, err := storefxconfig.ReadConfig(container.ConfigDirPath())
	if err != nil {
		return nil, err
	}
	env := &Env{
		Config: config,
	}
	store, err := env.newStore(container)
	if err != nil {
		return nil, err
	}
	env.Store = store
	env.Fetcher = NewFetcher(container, config)
	env.Manager = storefxmanager.NewManager(container.Logger(), env.Store, env.Fetcher, options...)
	return env, nil
}

// NewFetcher constructs a Fetcher for the rate-quote service in the configuration.
func NewFetcher(container appext.Container, config *storefxconfig.Config) storefxfetch.Fetcher {
	logger := container.Logger()
	client := ratequote.NewClient(
		logger,
		config.RatesURL,
		ratequote.ClientWithMaxAttempts(config.MaxAttempts),
		ratequote.ClientWithHTTPClient(&http.Client{Timeout: config.RequestTimeout}),
	)
	return storefxfetch.NewFetcher(logger, client, storefxfetch.FetcherWithTimeout(config.RequestTimeout))
}

// ResolveCurrency parses the value of the currency flag flagName, or returns
// the preferred currency if value is empty.
//
// An invalid value is an invalid argument error. A preference read error is
// logged and the store's default is returned.
func (e *Env) ResolveCurrency(ctx context.Context, container appext.Container, flagName string, value string) (storefxcurrency.Code, error) {
	if value != "" {
		code, err := storefxcurrency.Parse(value)
		if err != nil {
			return "", appcmd.NewInvalidArgumentErrorf("--%s: %s", flagName, err.Error())
		}
		return code, nil
	}
	code, err := e.Store.Get(ctx)
	if err != nil {
		container.Logger().Warn("could not read preferred currency, using default", "currency", code, "error", err)
	}
	return code, nil
}

// Close releases any connections held by the Env.
func (e *Env) Close() error {
	var errs []error
	for _, closer := range e.closers {
		errs = append(errs, closer())
	}
	return errors.Join(errs...)
}

// *** PRIVATE ***

func (e *Env) newStore(container appext.Container) (storefxpref.Store, error) {
	switch e.Config.PreferenceBackend {
	case storefxconfig.PreferenceBackendFile:
		return storefxpref.NewFileStore(
			storefxpath.PreferenceFilePath(container.DataDirPath()),
			e.Config.DefaultCurrency,
		), nil
	case storefxconfig.PreferenceBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: e.Config.Redis.Address,
			// The password never lives in the config file.
			Password: container.Env(storefxconfig.RedisPasswordEnvVar),
			DB:       e.Config.Redis.DB,
		})
		e.closers = append(e.closers, client.Close)
		return storefxpref.NewRedisStore(client, e.Config.Redis.Key, e.Config.DefaultCurrency), nil
	default:
		return nil, fmt.Errorf("unknown preference backend %q", e.Config.PreferenceBackend)
	}
}
