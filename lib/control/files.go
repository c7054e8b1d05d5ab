// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Content types requested from the file store and the monitor.
const (
	ContentTypeHDF5 = "application/hdf5"
	ContentTypeTIFF = "application/tiff"
)

// FileSize returns the size of a file in the detector's file store. A
// file not written yet is a *StatusError with code 404; see
// IsNotFound.
func (c *Client) FileSize(ctx context.Context, name string) (int64, error) {
	ex := &exchange{
		method:    http.MethodHead,
		subsystem: Data,
		name:      name,
		timeout:   c.options.RequestTimeout,
	}
	if err := c.do(ctx, ex); err != nil {
		return 0, err
	}
	if err := c.expect(ex, http.StatusOK); err != nil {
		return 0, err
	}
	if ex.contentLength < 0 {
		return 0, bodyParseError("HEAD %s: reply has no Content-Length", c.path(ex))
	}
	return ex.contentLength, nil
}

// WaitFile polls until the file exists. A 404 reply means the file is
// not written yet and is retried every PollInterval; any other failure
// ends the wait. When timeout elapses first the error wraps ErrTimeout
// and the last 404. A zero timeout selects the default request timeout
// and a negative timeout polls until ctx is done.
func (c *Client) WaitFile(ctx context.Context, name string, timeout time.Duration) error {
	budget := c.readTimeout(timeout)
	deadline := c.clock.Now().Add(budget)
	for {
		_, err := c.FileSize(ctx, name)
		if err == nil {
			return nil
		}
		if !IsNotFound(err) {
			return err
		}
		if budget > 0 && !c.clock.Now().Before(deadline) {
			return fmt.Errorf("%w: waiting %v for %s: %w", ErrTimeout, budget, name, err)
		}
		select {
		case <-c.clock.After(c.options.PollInterval):
		case <-ctx.Done():
			return fmt.Errorf("control: waiting for %s: %w", name, ctx.Err())
		}
	}
}

// File downloads a file from the detector's file store. The body is
// gathered into one buffer of the declared length; a transfer cut
// short is an error.
func (c *Client) File(ctx context.Context, name string) ([]byte, error) {
	ex := &exchange{
		method:    http.MethodGet,
		subsystem: Data,
		name:      name,
		accept:    ContentTypeHDF5,
		timeout:   c.options.RequestTimeout,
		gzip:      c.options.AcceptGzip,
	}
	if err := c.do(ctx, ex); err != nil {
		return nil, err
	}
	if err := c.expect(ex, http.StatusOK); err != nil {
		return nil, err
	}
	return ex.response, nil
}

// MonitorImage fetches the next monitor image as TIFF. The monitor
// answers 200 or, for a partial image, 206.
func (c *Client) MonitorImage(ctx context.Context, timeout time.Duration) ([]byte, error) {
	ex := &exchange{
		method:    http.MethodGet,
		subsystem: MonitorImages,
		name:      "next",
		accept:    ContentTypeTIFF,
		timeout:   c.readTimeout(timeout),
	}
	if err := c.do(ctx, ex); err != nil {
		return nil, err
	}
	if err := c.expect(ex, http.StatusOK, http.StatusPartialContent); err != nil {
		return nil, err
	}
	return ex.response, nil
}

// DeleteFile removes a file from the detector's file store.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	ex := &exchange{
		method:    http.MethodDelete,
		subsystem: Data,
		name:      name,
		timeout:   c.options.RequestTimeout,
	}
	if err := c.do(ctx, ex); err != nil {
		return err
	}
	return c.expect(ex, http.StatusNoContent)
}
