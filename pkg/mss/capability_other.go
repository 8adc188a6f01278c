//go:build !linux

package mss

// RequireRawCapability always fails outside Linux; discovery then estimates.
func RequireRawCapability() error {
	return ErrRawUnsupported
}
