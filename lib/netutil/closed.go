// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// IsStaleConnection reports whether err is what a keep-alive socket
// returns after the peer closed it while idle: EOF before any response
// byte, a closed connection, a broken pipe, or a connection reset.
func IsStaleConnection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == unix.EPIPE || errno == unix.ECONNRESET
	}
	return false
}

// IsTimeout reports whether err is a socket deadline expiring.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
