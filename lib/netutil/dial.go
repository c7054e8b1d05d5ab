// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"context"
	"net"
	"time"
)

// Dialer opens connections to a detector.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

var _ Dialer = TCPDialer{}

// TCPDialer opens TCP connections with Nagle's algorithm disabled.
type TCPDialer struct {
	// Timeout bounds connection establishment. Zero leaves only the
	// context deadline.
	Timeout time.Duration
}

// DialContext connects to address.
func (d TCPDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	return conn, nil
}
