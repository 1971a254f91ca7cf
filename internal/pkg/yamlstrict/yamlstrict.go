// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package yamlstrict decodes YAML documents that must not contain unknown fields.
package yamlstrict

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Unmarshal unmarshals the data as YAML with strict field checking.
//
// If the data length is 0, this is a no-op.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	return nil
}

// ReadFile reads the file at filePath and unmarshals it with Unmarshal.
//
// The error from os.ReadFile is returned unwrapped so callers can check os.ErrNotExist.
func ReadFile(filePath string, v any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return nil
}

// NewDecoder creates a new YAML decoder from the reader with strict field checking.
func NewDecoder(reader io.Reader) *yaml.Decoder {
	yamlDecoder := yaml.NewDecoder(reader)
	// Reject unknown fields.
	yamlDecoder.KnownFields(true)
	return yamlDecoder
}
