// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/simplon-foundation/simplon/lib/netutil"
	"github.com/simplon-foundation/simplon/lib/version"
)

// maxRetries is the number of times one call resends its request after
// finding its pooled connection closed by the server.
const maxRetries = 1

// exchange is one request and, once done, its reply. It is used for a
// single call and not shared.
type exchange struct {
	method    string
	subsystem Subsystem
	name      string
	accept    string
	body      []byte
	timeout   time.Duration
	gzip      bool

	status        int
	contentLength int64
	header        http.Header
	response      []byte

	// mustReconnect records a Connection: close reply.
	mustReconnect bool
}

// path returns the request path.
func (c *Client) path(ex *exchange) string {
	return c.paths.Path(ex.subsystem, ex.name)
}

// expect returns a *StatusError unless the reply status is one of
// codes.
func (c *Client) expect(ex *exchange, codes ...int) error {
	if slices.Contains(codes, ex.status) {
		return nil
	}
	return &StatusError{
		Method: ex.method,
		Path:   c.path(ex),
		Code:   ex.status,
		Body:   netutil.ErrorBody(bytes.NewReader(ex.response)),
	}
}

// newRequest builds the wire request for ex. It is rebuilt for every
// attempt because the body reader is consumed by a write.
func (c *Client) newRequest(ctx context.Context, ex *exchange) (*http.Request, error) {
	target := url.URL{Scheme: "http", Host: c.address, Path: c.path(ex)}
	var body io.Reader
	if ex.body != nil {
		body = bytes.NewReader(ex.body)
	}
	request, err := http.NewRequestWithContext(ctx, ex.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("control: building %s %s: %w", ex.method, target.Path, err)
	}
	request.Header.Set("User-Agent", version.UserAgent())
	accept := ex.accept
	if accept == "" {
		accept = "application/json"
	}
	request.Header.Set("Accept", accept)
	if ex.gzip {
		request.Header.Set("Accept-Encoding", "gzip")
	} else {
		request.Header.Set("Accept-Encoding", "identity")
	}
	if ex.body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	return request, nil
}

// do runs ex on a pooled connection. A request that fails because the
// server closed an idle keep-alive connection is retried once on a new
// connection.
func (c *Client) do(ctx context.Context, ex *exchange) error {
	s, err := c.pool.acquire()
	if err != nil {
		return err
	}
	defer c.pool.release(s)

	for {
		retryable, err := c.attempt(ctx, s, ex)
		if err == nil {
			return nil
		}
		if !retryable || s.retries >= maxRetries {
			return err
		}
		s.retries++
		c.logger.Warn("control connection closed by server, resending request",
			"slot", s.index,
			"method", ex.method,
			"path", c.path(ex),
			"error", err,
		)
	}
}

// attempt sends ex once. retryable is true when the failure is a stale
// keep-alive connection, which a resend on a fresh connection cures.
func (c *Client) attempt(ctx context.Context, s *slot, ex *exchange) (retryable bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.closed {
		if err := c.connect(ctx, s); err != nil {
			return false, err
		}
	}
	reused := s.exchanges > 0

	request, err := c.newRequest(ctx, ex)
	if err != nil {
		return false, err
	}
	end := s.conn.begin(ctx, ex.timeout)
	defer end()

	if err := request.Write(s.conn); err != nil {
		s.disconnect()
		return true, c.transportError(ctx, ex, "sending request", err)
	}

	// Wait for the first reply byte separately so that a connection the
	// server closed while idle is told apart from a reply cut short.
	if _, err := s.reader.Peek(1); err != nil {
		s.disconnect()
		return reused && netutil.IsStaleConnection(err), c.transportError(ctx, ex, "waiting for reply", err)
	}

	response, err := http.ReadResponse(s.reader, request)
	if err != nil {
		s.disconnect()
		return false, c.transportError(ctx, ex, "reading reply header", err)
	}
	body, err := readBody(response, ex.method)
	response.Body.Close()
	if err != nil {
		s.disconnect()
		return false, c.transportError(ctx, ex, "reading reply body", err)
	}
	s.exchanges++

	ex.status = response.StatusCode
	ex.contentLength = response.ContentLength
	ex.header = response.Header
	ex.mustReconnect = response.Close
	if ex.mustReconnect {
		c.logger.Debug("control server closed connection", "slot", s.index)
		s.disconnect()
	}

	if strings.EqualFold(response.Header.Get("Content-Encoding"), "gzip") && len(body) > 0 {
		if body, err = inflate(body); err != nil {
			return false, bodyParseError("%s %s: %v", ex.method, c.path(ex), err)
		}
	}
	ex.response = body
	return false, nil
}

// connect dials the control server into s.
func (c *Client) connect(ctx context.Context, s *slot) error {
	dialContext, cancel := context.WithTimeout(ctx, c.options.ConnectTimeout)
	defer cancel()
	conn, err := c.dialer.DialContext(dialContext, "tcp", c.address)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: connecting to %s: %w", ErrTransport, c.address, err)
	}
	s.attach(&timedConn{Conn: conn})
	c.logger.Debug("connected to control server", "slot", s.index, "address", c.address)
	return nil
}

func (c *Client) transportError(ctx context.Context, ex *exchange, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("control: %s %s: %w", ex.method, c.path(ex), ctxErr)
	}
	if netutil.IsTimeout(err) {
		stage += " timed out"
	}
	return fmt.Errorf("%w: %s %s: %s: %w", ErrTransport, ex.method, c.path(ex), stage, err)
}

// readBody reads the whole reply body into one buffer. A body with a
// declared length must deliver exactly that many bytes.
func readBody(response *http.Response, method string) ([]byte, error) {
	if method == http.MethodHead {
		return nil, nil
	}
	length := response.ContentLength
	if length < 0 {
		return netutil.ReadBody(response.Body, netutil.MaxBodySize)
	}
	if length > netutil.MaxBodySize {
		return nil, fmt.Errorf("%w: declared length %d", netutil.ErrBodyTooLarge, length)
	}
	body := make([]byte, length)
	received, err := io.ReadFull(response.Body, body)
	if err != nil {
		return nil, fmt.Errorf("received %d of %d bytes: %w", received, length, err)
	}
	return body, nil
}

func inflate(body []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return netutil.ReadBody(reader, netutil.MaxBodySize)
}
