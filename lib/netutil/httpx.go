// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
)

// MaxBodySize bounds control channel bodies: 4 GiB. Detector files and
// monitor images are the largest bodies the API returns.
const MaxBodySize int64 = 4 << 30

// maxErrorBody bounds the excerpt ErrorBody includes in messages.
const maxErrorBody = 512

// ErrBodyTooLarge is returned by ReadBody when the body exceeds its
// limit.
var ErrBodyTooLarge = errors.New("netutil: body exceeds size limit")

// ReadBody reads body up to limit bytes. A body longer than limit
// returns ErrBodyTooLarge rather than being silently truncated. A
// limit <= 0 means MaxBodySize.
func ReadBody(body io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, limit)
	}
	return data, nil
}

// ErrorBody returns the start of an error response body for use in
// diagnostic messages. Read errors are ignored.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return string(data)
}
