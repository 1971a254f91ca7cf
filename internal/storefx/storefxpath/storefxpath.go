// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxpath derives file paths from the storefx config and data
// directories. All layout is defined here so callers don't duplicate path
// construction logic.
//
// The config directory (~/.config/storefx or $STOREFX_CONFIG_DIR) contains:
//
//	config.yaml          Config file
//
// The data directory (~/.local/share/storefx or $STOREFX_DATA_DIR) contains:
//
//	preference.yaml      Preferred display currency (file backend)
package storefxpath

import "path/filepath"

const (
	// ConfigFileName is the well-known config file name within the config directory.
	ConfigFileName = "config.yaml"
	// PreferenceFileName is the well-known preference file name within the data directory.
	PreferenceFileName = "preference.yaml"
)

// ConfigFilePath returns the path to the config file within the config directory.
func ConfigFilePath(configDirPath string) string {
	return filepath.Join(configDirPath, ConfigFileName)
}

// PreferenceFilePath returns the path to the preference file within the data directory.
func PreferenceFilePath(dataDirPath string) string {
	return filepath.Join(dataDirPath, PreferenceFileName)
}
