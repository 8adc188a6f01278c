package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeoIP_PublicIP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("203.0.113.77\n"))
	}))
	t.Cleanup(srv.Close)

	ip, err := PublicIP(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "203.0.113.77", ip)
}

func TestGeoIP_PublicIP_errors(t *testing.T) {
	t.Parallel()

	_, err := PublicIP(context.Background(), &MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, ""), nil
	}}, "https://ipify.test")
	require.ErrorContains(t, err, "503")

	_, err = PublicIP(context.Background(), &MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, "<html>rate limited</html>"), nil
	}}, "https://ipify.test")
	require.ErrorContains(t, err, "not an address")
}
