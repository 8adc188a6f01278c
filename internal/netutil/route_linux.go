package netutil

import (
	"errors"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

func NewRouter() Router {
	return &linuxRouter{}
}

type linuxRouter struct{}

func (r *linuxRouter) SourceFor(dst net.IP) (net.IP, error) {
	routes, err := netlink.RouteGet(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to get route to %s: %w", dst, err)
	}
	for _, route := range routes {
		if src := route.Src.To4(); src != nil {
			return src, nil
		}
	}
	return nil, errors.New("no ipv4 source address on route")
}
