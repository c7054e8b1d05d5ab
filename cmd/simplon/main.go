// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Simplon controls a pixel-array detector over its HTTP control API and
// decodes the CBOR messages of its data stream.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/simplon-foundation/simplon/cmd/simplon/commands"
	"github.com/simplon-foundation/simplon/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root(ctx).Execute(os.Args[1:])
}
