//go:build !linux

package udp

import "syscall"

// Stub for non-Linux platforms; the listener still works, it just cannot
// share the port with another bound process.
func listenControl(network, address string, c syscall.RawConn) error {
	return nil
}
