// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/simplon-foundation/simplon/lib/clock"
	"github.com/simplon-foundation/simplon/lib/netutil"
)

// Defaults applied by New to zero Options fields.
const (
	DefaultPort           = 80
	DefaultPoolSize       = 4
	DefaultConnectTimeout = time.Second
	DefaultRequestTimeout = 20 * time.Second
	DefaultPollInterval   = 10 * time.Millisecond
)

// Options configures a Client.
type Options struct {
	// Host is the detector control server's host name or address.
	Host string

	// Port defaults to DefaultPort.
	Port int

	// APIVersion selects the versioned paths, for example "1.8.0".
	APIVersion string

	// PoolSize is the number of pooled connections and therefore the
	// number of calls that can be in flight at once.
	PoolSize int

	ConnectTimeout time.Duration

	// RequestTimeout is the per-read timeout used when an operation is
	// given a zero timeout.
	RequestTimeout time.Duration

	// PollInterval is the pause between WaitFile probes.
	PollInterval time.Duration

	// AcceptGzip requests gzip content encoding for file downloads.
	AcceptGzip bool

	// Clock times trigger exposures and file polling. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger defaults to a logger that discards output.
	Logger *slog.Logger

	// Dialer defaults to a netutil.TCPDialer using ConnectTimeout.
	Dialer netutil.Dialer
}

// Client issues control channel requests over a pool of connections.
// It is safe for concurrent use; at most PoolSize calls proceed at
// once and further concurrent calls fail with ErrNoSocketAvailable.
type Client struct {
	options Options
	address string
	paths   *PathTable
	pool    *pool
	clock   clock.Clock
	logger  *slog.Logger
	dialer  netutil.Dialer
}

// New returns a client for the detector at options.Host. No connection
// is made until the first call.
func New(options Options) (*Client, error) {
	if options.Host == "" {
		return nil, fmt.Errorf("control: host is required")
	}
	paths, err := NewPathTable(options.APIVersion)
	if err != nil {
		return nil, err
	}
	if options.Port == 0 {
		options.Port = DefaultPort
	}
	if options.Port < 0 || options.Port > 65535 {
		return nil, fmt.Errorf("control: port %d out of range", options.Port)
	}
	if options.PoolSize <= 0 {
		options.PoolSize = DefaultPoolSize
	}
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = DefaultConnectTimeout
	}
	if options.RequestTimeout <= 0 {
		options.RequestTimeout = DefaultRequestTimeout
	}
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if options.Dialer == nil {
		options.Dialer = netutil.TCPDialer{Timeout: options.ConnectTimeout}
	}

	return &Client{
		options: options,
		address: net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		paths:   paths,
		pool:    newPool(options.PoolSize),
		clock:   options.Clock,
		logger:  options.Logger.With("detector", options.Host),
		dialer:  options.Dialer,
	}, nil
}

// Paths returns the client's path table.
func (c *Client) Paths() *PathTable { return c.paths }

// Address returns the control server's host:port.
func (c *Client) Address() string { return c.address }

// readTimeout maps an operation timeout to a per-read timeout: zero
// selects the default and negative disables deadlines.
func (c *Client) readTimeout(timeout time.Duration) time.Duration {
	switch {
	case timeout == 0:
		return c.options.RequestTimeout
	case timeout < 0:
		return -1
	default:
		return timeout
	}
}

// Get reads a parameter's value.
func (c *Client) Get(ctx context.Context, subsystem Subsystem, name string, timeout time.Duration) (Value, error) {
	ex, err := c.get(ctx, subsystem, name, timeout)
	if err != nil {
		return Value{}, err
	}
	return parseValue(ex.response)
}

// Describe reads a parameter's full description: value, type, access
// mode, unit, bounds, and allowed values.
func (c *Client) Describe(ctx context.Context, subsystem Subsystem, name string, timeout time.Duration) (Parameter, error) {
	ex, err := c.get(ctx, subsystem, name, timeout)
	if err != nil {
		return Parameter{}, err
	}
	return parseParameter(ex.response)
}

func (c *Client) get(ctx context.Context, subsystem Subsystem, name string, timeout time.Duration) (*exchange, error) {
	ex := &exchange{
		method:    http.MethodGet,
		subsystem: subsystem,
		name:      name,
		timeout:   c.readTimeout(timeout),
	}
	if err := c.do(ctx, ex); err != nil {
		return nil, err
	}
	if err := c.expect(ex, http.StatusOK); err != nil {
		return nil, err
	}
	return ex, nil
}

// Put writes a parameter, or runs a command when value is nil. The
// body is {"value": value}, or empty for a nil value.
func (c *Client) Put(ctx context.Context, subsystem Subsystem, name string, value any, timeout time.Duration) (Reply, error) {
	ex := &exchange{
		method:    http.MethodPut,
		subsystem: subsystem,
		name:      name,
		timeout:   c.readTimeout(timeout),
	}
	if value != nil {
		body, err := json.Marshal(struct {
			Value any `json:"value"`
		}{value})
		if err != nil {
			return Reply{}, fmt.Errorf("control: encoding %s: %w", name, err)
		}
		ex.body = body
	}
	if err := c.do(ctx, ex); err != nil {
		return Reply{}, err
	}
	if err := c.expect(ex, http.StatusOK); err != nil {
		return Reply{}, err
	}
	return Reply{body: ex.response}, nil
}

// Close disconnects the pool. Calls in flight finish on their current
// connection; later calls fail with ErrClosed.
func (c *Client) Close() error {
	c.pool.close()
	return nil
}
