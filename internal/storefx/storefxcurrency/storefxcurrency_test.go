// Copyright 2026 Peter Edge
//
// All rights reserved.

package storefxcurrency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		value string
		want  Code
	}{
		{"XOF", XOF},
		{"usd", USD},
		{" eur ", EUR},
	} {
		got, err := Parse(test.value)
		require.NoError(t, err, test.value)
		require.Equal(t, test.want, got)
	}
}

func TestParseUnknown(t *testing.T) {
	t.Parallel()
	for _, value := range []string{"", "ZZZ", "GBP", "US", "DOLLAR"} {
		_, err := Parse(value)
		require.ErrorIs(t, err, ErrUnknownCode, value)
	}
}

func TestInfo(t *testing.T) {
	t.Parallel()
	for _, code := range All() {
		info, ok := code.Info()
		require.True(t, ok)
		require.Equal(t, code, info.Code)
		require.NotEmpty(t, info.Symbol)
		require.NotEmpty(t, info.Flag)
		require.NotEmpty(t, info.Name)
	}
	info, ok := XOF.Info()
	require.True(t, ok)
	require.Equal(t, "FCFA", info.Symbol)
	_, ok = Code("ZZZ").Info()
	require.False(t, ok)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, USD.Validate())
	require.ErrorIs(t, Code("ZZZ").Validate(), ErrUnknownCode)
	require.True(t, Default.IsValid())
	require.Equal(t, []string{"XOF", "USD", "EUR"}, Strings())
}
