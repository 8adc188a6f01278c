package anonymity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultExitListURL     = "https://check.torproject.org/torbulkexitlist"
	DefaultExitListTimeout = 10 * time.Second
)

// ExitSet is a set of Tor exit relay addresses.
type ExitSet map[string]struct{}

func (s ExitSet) Contains(ip string) bool {
	_, ok := s[ip]
	return ok
}

type ExitListFetcher interface {
	FetchExitList(ctx context.Context) (ExitSet, error)
}

// ExitListFetcherFunc adapts a function to the ExitListFetcher interface.
type ExitListFetcherFunc func(ctx context.Context) (ExitSet, error)

func (f ExitListFetcherFunc) FetchExitList(ctx context.Context) (ExitSet, error) {
	return f(ctx)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPExitListFetcher downloads the bulk exit list published by the Tor
// project.
type HTTPExitListFetcher struct {
	URL        string
	Timeout    time.Duration
	HTTPClient HTTPClient
}

func NewHTTPExitListFetcher(url string) *HTTPExitListFetcher {
	if url == "" {
		url = DefaultExitListURL
	}
	return &HTTPExitListFetcher{
		URL:        url,
		Timeout:    DefaultExitListTimeout,
		HTTPClient: &http.Client{},
	}
}

func (f *HTTPExitListFetcher) FetchExitList(ctx context.Context) (ExitSet, error) {
	if f.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exit list request failed with status: %d", resp.StatusCode)
	}
	return ParseExitList(resp.Body)
}

// ParseExitList reads newline-delimited addresses, skipping blank lines and
// lines starting with '#'.
func ParseExitList(r io.Reader) (ExitSet, error) {
	set := make(ExitSet)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if ip := strings.TrimSpace(line); ip != "" {
			set[ip] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read exit list: %w", err)
	}
	return set, nil
}
