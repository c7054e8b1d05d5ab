// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps failures to connect to, send to, or receive
	// from the control server.
	ErrTransport = errors.New("control: transport failure")

	// ErrBodyParse means a reply body was not the expected JSON.
	ErrBodyParse = errors.New("control: malformed reply body")

	// ErrNoSocketAvailable means every pooled connection was busy.
	ErrNoSocketAvailable = errors.New("control: no socket available")

	// ErrTimeout means a polling operation ran out of time.
	ErrTimeout = errors.New("control: timed out")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("control: client closed")
)

// StatusError is a reply with an unexpected HTTP status code.
type StatusError struct {
	Method string
	Path   string
	Code   int

	// Body is the start of the reply body, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	message := fmt.Sprintf("control: %s %s: HTTP %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		message += ": " + e.Body
	}
	return message
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

// IsNotFound reports whether err is an HTTP 404 reply, which the file
// store sends for files not written yet.
func IsNotFound(err error) bool { return IsStatus(err, http.StatusNotFound) }

func bodyParseError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBodyParse, fmt.Sprintf(format, args...))
}
