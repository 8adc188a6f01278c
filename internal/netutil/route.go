package netutil

import "net"

// Router picks the local source address the kernel would use to reach dst.
type Router interface {
	SourceFor(dst net.IP) (net.IP, error)
}
