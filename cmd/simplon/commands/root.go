// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/simplon-foundation/simplon/cmd/simplon/cli"
)

// Root returns the top-level "simplon" command. Detector requests
// are bound to ctx.
func Root(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:    "simplon",
		Summary: "Control a detector and decode its data stream",
		Description: `simplon talks to the HTTP control server of a pixel-array detector and
decodes the CBOR messages of its data stream.

The detector is addressed by a YAML config file (--config or
$SIMPLON_CONFIG) or by --host. See "simplon get --help" for the shared
connection flags.`,
		Subcommands: []*cli.Command{
			getCommand(ctx),
			describeCommand(ctx),
			putCommand(ctx),
			commandCommand(ctx),
			fileCommand(ctx),
			monitorCommand(ctx),
			decodeCommand(),
			versionCommand(ctx),
		},
		Examples: []cli.Example{
			{
				Description: "Read the count time",
				Command:     "simplon get detector_config count_time --host 10.42.0.10",
			},
			{
				Description: "Arm, trigger and disarm",
				Command:     "simplon command arm && simplon command trigger && simplon command disarm",
			},
			{
				Description: "Summarize a captured stream message",
				Command:     "simplon decode image-000001.cbor",
			},
		},
	}
}
