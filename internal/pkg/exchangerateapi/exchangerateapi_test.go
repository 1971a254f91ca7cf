// Copyright 2026 Peter Edge
//
// All rights reserved.

package exchangerateapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestGetLatest(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v4/latest/EUR", r.URL.Path)
		_, _ = io.WriteString(w, `{"base": "EUR", "date": "2026-03-01", "time_last_updated": 1772323200, "rates": {"EUR": 1, "USD": 1.09, "XOF": 655.957}}`)
	}))
	t.Cleanup(server.Close)
	client := NewClient(ClientWithBaseURL(server.URL + "/v4/latest/"))
	latest, err := client.GetLatest(context.Background(), "EUR")
	require.NoError(t, err)
	want := &Latest{
		Base:      "EUR",
		Rates:     map[string]float64{"EUR": 1, "USD": 1.09, "XOF": 655.957},
		UpdatedAt: time.Unix(1772323200, 0).UTC(),
	}
	if diff := cmp.Diff(want, latest); diff != "" {
		t.Errorf("latest mismatch (-want +got):\n%s", diff)
	}
}

func TestGetLatestBaseURLWithoutSlash(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/latest/XOF", r.URL.Path)
		_, _ = io.WriteString(w, `{"rates": {"XOF": 1}}`)
	}))
	t.Cleanup(server.Close)
	latest, err := NewClient(ClientWithBaseURL(server.URL+"/latest")).GetLatest(context.Background(), "XOF")
	require.NoError(t, err)
	require.Equal(t, "XOF", latest.Base)
	require.True(t, latest.UpdatedAt.IsZero())
}

func TestGetLatestErrors(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusNotFound, `{"result": "error"}`, "unexpected status 404"},
		{"not_json", http.StatusOK, `<html></html>`, "parsing response"},
		{"no_rates", http.StatusOK, `{"base": "USD", "rates": {}}`, "response has no rates"},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(test.status)
				_, _ = io.WriteString(w, test.body)
			}))
			t.Cleanup(server.Close)
			_, err := NewClient(ClientWithBaseURL(server.URL)).GetLatest(context.Background(), "USD")
			require.ErrorContains(t, err, test.wantErr)
		})
	}
}
