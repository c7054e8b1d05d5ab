// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"fmt"
	"time"

	"github.com/simplon-foundation/simplon/lib/clock"
)

// Commands accepted by the detector command subsystem.
const (
	CommandInitialize   = "initialize"
	CommandArm          = "arm"
	CommandTrigger      = "trigger"
	CommandDisarm       = "disarm"
	CommandCancel       = "cancel"
	CommandAbort        = "abort"
	CommandWait         = "wait"
	CommandStatusUpdate = "status_update"
)

// Commands of the system and file writer subsystems.
const (
	CommandRestart = "restart"
	CommandClear   = "clear"
)

// Command runs name on the detector command subsystem.
func (c *Client) Command(ctx context.Context, name string, timeout time.Duration) (Reply, error) {
	return c.Put(ctx, DetectorCommand, name, nil, timeout)
}

func (c *Client) command(ctx context.Context, subsystem Subsystem, name string, timeout time.Duration) error {
	_, err := c.Put(ctx, subsystem, name, nil, timeout)
	return err
}

// Initialize initializes the detector. Initialization can take minutes;
// pass a negative timeout to wait for it without a deadline.
func (c *Client) Initialize(ctx context.Context, timeout time.Duration) error {
	return c.command(ctx, DetectorCommand, CommandInitialize, timeout)
}

// Arm arms the detector for a series and returns the series'
// sequence id.
func (c *Client) Arm(ctx context.Context) (int64, error) {
	reply, err := c.Put(ctx, DetectorCommand, CommandArm, nil, 0)
	if err != nil {
		return 0, err
	}
	id, ok := reply.SequenceID()
	if !ok {
		return 0, bodyParseError("arm reply %s has no sequence id", reply)
	}
	return id, nil
}

// Trigger starts an exposure. With a nonzero exposure the exposure time
// is sent as the trigger value, and Trigger returns no earlier than
// exposure after it was called even if the server replies sooner.
func (c *Client) Trigger(ctx context.Context, timeout, exposure time.Duration) error {
	start := c.clock.Now()
	var value any
	if exposure > 0 {
		value = exposure.Seconds()
	}
	if _, err := c.Put(ctx, DetectorCommand, CommandTrigger, value, timeout); err != nil {
		return err
	}
	if exposure <= 0 {
		return nil
	}

	shortfall := exposure - clock.Since(c.clock, start)
	if shortfall <= 0 {
		return nil
	}
	c.logger.Debug("trigger returned before exposure ended", "shortfall", shortfall)
	select {
	case <-c.clock.After(shortfall):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("control: waiting out exposure: %w", ctx.Err())
	}
}

// Disarm ends the current series.
func (c *Client) Disarm(ctx context.Context) error {
	return c.command(ctx, DetectorCommand, CommandDisarm, 0)
}

// Cancel stops the series after the current image.
func (c *Client) Cancel(ctx context.Context) error {
	return c.command(ctx, DetectorCommand, CommandCancel, 0)
}

// Abort stops the series immediately.
func (c *Client) Abort(ctx context.Context) error {
	return c.command(ctx, DetectorCommand, CommandAbort, 0)
}

// Wait blocks until the current series has finished.
func (c *Client) Wait(ctx context.Context, timeout time.Duration) error {
	return c.command(ctx, DetectorCommand, CommandWait, timeout)
}

// StatusUpdate asks the detector to refresh its status parameters.
func (c *Client) StatusUpdate(ctx context.Context) error {
	return c.command(ctx, DetectorCommand, CommandStatusUpdate, 0)
}

// Restart restarts the detector control system.
func (c *Client) Restart(ctx context.Context, timeout time.Duration) error {
	return c.command(ctx, SystemCommand, CommandRestart, timeout)
}

// ClearFiles deletes every file in the detector's file store.
func (c *Client) ClearFiles(ctx context.Context) error {
	return c.command(ctx, FileWriterCommand, CommandClear, 0)
}

// Version returns the API version reported by the server.
func (c *Client) Version(ctx context.Context) (string, error) {
	value, err := c.Get(ctx, APIVersion, "", 0)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
