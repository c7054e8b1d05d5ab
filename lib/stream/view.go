// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "bytes"

// View is a read-only window into the buffer passed to [Decode]. It is
// valid only while that buffer is alive and unmodified; use Clone to
// keep the bytes beyond that.
type View struct {
	data []byte
}

// Len returns the number of bytes in the view.
func (v View) Len() int { return len(v.data) }

// IsEmpty reports whether the view holds no bytes.
func (v View) IsEmpty() bool { return len(v.data) == 0 }

// Bytes returns the viewed bytes. The slice aliases the decoded
// buffer and must not be modified or retained past its lifetime.
func (v View) Bytes() []byte { return v.data }

// Clone returns an owned copy of the viewed bytes.
func (v View) Clone() []byte { return bytes.Clone(v.data) }

// Equal reports whether two views hold the same bytes.
func (v View) Equal(other View) bool { return bytes.Equal(v.data, other.data) }
