//go:build !windows

package mcast

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddr enables SO_REUSEADDR before bind so a responder can restart
// without waiting for the old socket to drain, and so multiple responders
// can share the group port on one host.
func reuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
