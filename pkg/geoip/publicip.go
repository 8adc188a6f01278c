package geoip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/malbeclabs/pathscope/internal/netutil"
)

const (
	DefaultPublicIPURL     = "https://api.ipify.org"
	DefaultPublicIPTimeout = 5 * time.Second
)

// PublicIP returns this host's public address as reported by an ipify-style
// endpoint that answers with the bare address.
func PublicIP(ctx context.Context, client HTTPClient, url string) (string, error) {
	if client == nil {
		client = &http.Client{}
	}
	if url == "" {
		url = DefaultPublicIPURL
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultPublicIPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("public ip request failed with status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	ip := strings.TrimSpace(string(body))
	if !netutil.IsIP(ip) {
		return "", fmt.Errorf("public ip response is not an address: %q", ip)
	}
	return ip, nil
}
