package anonymity

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type MockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return nil, errors.New("mock not configured")
}

func TestAnonymity_ParseExitList(t *testing.T) {
	t.Parallel()

	set, err := ParseExitList(strings.NewReader("# header\n185.220.101.1\n\n185.220.101.2  \n#185.220.101.3\n"))
	require.NoError(t, err)
	require.Equal(t, ExitSet{"185.220.101.1": {}, "185.220.101.2": {}}, set)
	require.True(t, set.Contains("185.220.101.1"))
	require.False(t, set.Contains("185.220.101.3"))
}

func TestAnonymity_HTTPExitListFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "185.220.101.1\n185.220.101.2\n")
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPExitListFetcher(srv.URL)
	require.Equal(t, DefaultExitListTimeout, f.Timeout)

	set, err := f.FetchExitList(context.Background())
	require.NoError(t, err)
	require.Len(t, set, 2)

	require.Equal(t, DefaultExitListURL, NewHTTPExitListFetcher("").URL)
}

func TestAnonymity_HTTPExitListFetcher_errors(t *testing.T) {
	t.Parallel()

	f := &HTTPExitListFetcher{URL: "https://exits.test", HTTPClient: &MockHTTPClient{
		DoFunc: func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader(""))}, nil
		},
	}}
	_, err := f.FetchExitList(context.Background())
	require.ErrorContains(t, err, "502")

	f.HTTPClient = &MockHTTPClient{}
	_, err = f.FetchExitList(context.Background())
	require.ErrorContains(t, err, "mock not configured")
}
