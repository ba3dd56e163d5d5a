//go:build !windows

package port

import "syscall"

// reuseAddrControl enables SO_REUSEADDR on probe and confirmation sockets.
// Ports discovered here are handed straight to a server the caller starts,
// which may land while the probe socket is still in TIME_WAIT; address
// reuse keeps that bind from failing spuriously.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
