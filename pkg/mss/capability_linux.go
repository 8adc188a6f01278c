package mss

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// RequireRawCapability checks for root or CAP_NET_RAW in the effective set.
func RequireRawCapability() error {
	if os.Geteuid() == 0 {
		return nil
	}

	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return fmt.Errorf("failed to read capabilities: %w", err)
	}
	if data[0].Effective&(1<<unix.CAP_NET_RAW) == 0 {
		return ErrRawCapabilityMissing
	}
	return nil
}
