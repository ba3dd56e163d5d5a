//go:build windows

package port

import "syscall"

// reuseAddrControl is a no-op on Windows. SO_REUSEADDR there allows two
// sockets to bind the same address simultaneously, which would turn the
// bind probe into a false "free" answer, so the option is left unset.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
