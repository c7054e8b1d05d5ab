// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"bufio"
	"sync"
	"sync/atomic"
)

// slot is one pooled connection. The mutex is only ever taken with
// TryLock, so a busy slot is skipped rather than waited for.
type slot struct {
	index int
	mu    sync.Mutex

	conn   *timedConn
	reader *bufio.Reader

	// closed is set until the first connect and after any failure or
	// Connection: close reply. The next call reconnects.
	closed bool

	// exchanges counts replies received on the current connection.
	exchanges int

	// retries counts resends within the current call. It is reset when
	// the slot is released.
	retries int
}

func (s *slot) attach(conn *timedConn) {
	s.conn = conn
	s.reader = bufio.NewReaderSize(conn, 64<<10)
	s.closed = false
	s.exchanges = 0
}

// disconnect closes the connection and marks the slot for reconnect.
func (s *slot) disconnect() {
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = nil
	s.reader = nil
	s.closed = true
}

// pool is a fixed set of slots.
type pool struct {
	slots    []*slot
	shutdown atomic.Bool
}

func newPool(size int) *pool {
	p := &pool{slots: make([]*slot, size)}
	for i := range p.slots {
		p.slots[i] = &slot{index: i, closed: true}
	}
	return p
}

// acquire returns the first idle slot, locked. It never blocks.
func (p *pool) acquire() (*slot, error) {
	if p.shutdown.Load() {
		return nil, ErrClosed
	}
	for _, s := range p.slots {
		if s.mu.TryLock() {
			return s, nil
		}
	}
	return nil, ErrNoSocketAvailable
}

// release resets the slot's per-call state and unlocks it.
func (p *pool) release(s *slot) {
	s.retries = 0
	if p.shutdown.Load() {
		s.disconnect()
	}
	s.mu.Unlock()
}

// close disconnects every idle slot. Busy slots disconnect when they
// are released.
func (p *pool) close() {
	p.shutdown.Store(true)
	for _, s := range p.slots {
		if s.mu.TryLock() {
			s.disconnect()
			s.mu.Unlock()
		}
	}
}
