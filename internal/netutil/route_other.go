//go:build !linux

package netutil

import (
	"errors"
	"net"
)

func NewRouter() Router {
	return &unimplementedRouter{}
}

type unimplementedRouter struct{}

func (r *unimplementedRouter) SourceFor(dst net.IP) (net.IP, error) {
	return nil, errors.New("unimplemented")
}
