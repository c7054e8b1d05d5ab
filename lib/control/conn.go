// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"net"
	"sync"
	"time"
)

// timedConn arms a fresh socket deadline before every read and write
// and aborts blocked I/O when the current call's context is cancelled.
type timedConn struct {
	net.Conn

	mu        sync.Mutex
	timeout   time.Duration
	cancelled bool
}

// expired is a deadline in the past, used to unblock pending I/O.
var expired = time.Unix(1, 0)

// begin prepares the connection for one exchange. A timeout <= 0
// disables deadlines. The returned function detaches ctx.
func (c *timedConn) begin(ctx context.Context, timeout time.Duration) (end func()) {
	c.mu.Lock()
	c.timeout = timeout
	c.cancelled = false
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cancelled = true
		c.Conn.SetDeadline(expired)
	})
	return func() { stop() }
}

// arm sets the deadline for the next I/O operation. It reports false
// once the call has been cancelled.
func (c *timedConn) arm(set func(time.Time) error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return false
	}
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	set(deadline)
	return true
}

func (c *timedConn) Read(p []byte) (int, error) {
	if !c.arm(c.Conn.SetReadDeadline) {
		return 0, context.Canceled
	}
	return c.Conn.Read(p)
}

func (c *timedConn) Write(p []byte) (int, error) {
	if !c.arm(c.Conn.SetWriteDeadline) {
		return 0, context.Canceled
	}
	return c.Conn.Write(p)
}
