// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package xos provides extensions to the standard os package.
package xos

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading ~ in a path to the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// WriteFileAtomic writes data to filePath so that readers see either the old
// contents or the new contents, never a partial file.
//
// The parent directory is created if it does not exist. The data is written to
// a temporary file in the same directory, synced, and renamed over filePath.
func WriteFileAtomic(filePath string, data []byte, perm os.FileMode) (retErr error) {
	dirPath := filepath.Dir(filePath)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dirPath, err)
	}
	file, err := os.CreateTemp(dirPath, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	tempFilePath := file.Name()
	defer func() {
		// Only clean up the temporary file if the rename did not happen.
		if retErr != nil {
			retErr = errors.Join(retErr, removeIfExists(tempFilePath))
		}
	}()
	if _, err := file.Write(data); err != nil {
		return errors.Join(err, file.Close())
	}
	if err := file.Sync(); err != nil {
		return errors.Join(err, file.Close())
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tempFilePath, perm); err != nil {
		return err
	}
	return os.Rename(tempFilePath, filePath)
}

func removeIfExists(filePath string) error {
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
