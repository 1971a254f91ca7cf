// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxpref persists the user's preferred display currency.
//
// The preference is a single currency code stored under the key
// "preferredCurrency". Stores are backed by a YAML file in the data directory
// or by a Redis string.
package storefxpref

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bufdev/storefx/internal/pkg/yamlstrict"
	"github.com/bufdev/storefx/internal/standard/xos"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/go-redis/redis/v8"
	"gopkg.in/yaml.v3"
)

// Key is the fixed key the preference is stored under.
const Key = "preferredCurrency"

// Store is the interface for reading and writing the preferred currency.
type Store interface {
	// Get returns the persisted currency, or the store's default if none is persisted.
	//
	// If a persisted value is not a supported currency, Get returns the default
	// together with an error wrapping storefxcurrency.ErrUnknownCode.
	Get(ctx context.Context) (storefxcurrency.Code, error)
	// Set persists code. Setting the same code twice is a no-op in effect.
	//
	// Codes outside the supported set are rejected without writing.
	Set(ctx context.Context, code storefxcurrency.Code) error
}

// NewFileStore returns a Store backed by a YAML file at filePath.
//
// A missing file means defaultCode. Writes replace the file atomically.
func NewFileStore(filePath string, defaultCode storefxcurrency.Code) Store {
	return &fileStore{
		filePath:    filePath,
		defaultCode: defaultCode,
	}
}

// NewRedisStore returns a Store backed by a Redis string under key.
//
// If key is empty, Key is used. A missing key means defaultCode.
func NewRedisStore(client redis.Cmdable, key string, defaultCode storefxcurrency.Code) Store {
	if key == "" {
		key = Key
	}
	return &redisStore{
		client:      client,
		key:         key,
		defaultCode: defaultCode,
	}
}

// *** PRIVATE ***

// externalPreference is the YAML document stored by the file store.
type externalPreference struct {
	PreferredCurrency string `yaml:"preferredCurrency"`
}

type fileStore struct {
	filePath    string
	defaultCode storefxcurrency.Code
	// mu serializes reads and writes from this process.
	mu sync.Mutex
}

func (s *fileStore) Get(context.Context) (storefxcurrency.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var preference externalPreference
	if err := yamlstrict.ReadFile(s.filePath, &preference); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.defaultCode, nil
		}
		return s.defaultCode, fmt.Errorf("reading preference file: %w", err)
	}
	if preference.PreferredCurrency == "" {
		return s.defaultCode, nil
	}
	return parseStored(preference.PreferredCurrency, s.defaultCode)
}

func (s *fileStore) Set(_ context.Context, code storefxcurrency.Code) error {
	if err := code.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(externalPreference{PreferredCurrency: code.String()})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := xos.WriteFileAtomic(s.filePath, data, 0o644); err != nil {
		return fmt.Errorf("writing preference file: %w", err)
	}
	return nil
}

type redisStore struct {
	client      redis.Cmdable
	key         string
	defaultCode storefxcurrency.Code
}

func (s *redisStore) Get(ctx context.Context) (storefxcurrency.Code, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.defaultCode, nil
		}
		return s.defaultCode, fmt.Errorf("reading preference from redis: %w", err)
	}
	return parseStored(value, s.defaultCode)
}

func (s *redisStore) Set(ctx context.Context, code storefxcurrency.Code) error {
	if err := code.Validate(); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, code.String(), 0).Err(); err != nil {
		return fmt.Errorf("writing preference to redis: %w", err)
	}
	return nil
}

// parseStored parses a persisted value, returning defaultCode with the error if it is invalid.
func parseStored(value string, defaultCode storefxcurrency.Code) (storefxcurrency.Code, error) {
	code, err := storefxcurrency.Parse(value)
	if err != nil {
		return defaultCode, fmt.Errorf("stored preference: %w", err)
	}
	return code, nil
}
