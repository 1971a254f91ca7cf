// Copyright 2026 Peter Edge
//
// All rights reserved.

package storefxpath

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	t.Parallel()
	require.Equal(t, filepath.Join("cfg", "config.yaml"), ConfigFilePath("cfg"))
	require.Equal(t, filepath.Join("data", "preference.yaml"), PreferenceFilePath("data"))
}
