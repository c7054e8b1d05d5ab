// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/simplon-foundation/simplon/cmd/simplon/cli"
	"github.com/simplon-foundation/simplon/lib/control"
)

func fileCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:    "file",
		Summary: "Inspect, wait for, download and delete data files",
		Subcommands: []*cli.Command{
			fileSizeCommand(ctx),
			fileWaitCommand(ctx),
			fileFetchCommand(ctx),
			fileDeleteCommand(ctx),
		},
	}
}

func fileSizeCommand(ctx context.Context) *cli.Command {
	var detector cli.DetectorFlags
	return &cli.Command{
		Name:    "size",
		Summary: "Print a data file's size in bytes (exit 1 if absent)",
		Usage:   "simplon file size <name> [flags]",
		Flags:   func() *pflag.FlagSet { return detectorFlagSet("size", &detector) },
		Run: func(args []string) error {
			name, err := fileArg("size", args)
			if err != nil {
				return err
			}
			client, _, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			size, err := client.FileSize(ctx, name)
			if control.IsNotFound(err) {
				fmt.Fprintf(os.Stderr, "%s: not found\n", name)
				return &cli.ExitError{Code: 1}
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, size)
			return err
		},
	}
}

func fileWaitCommand(ctx context.Context) *cli.Command {
	var (
		detector cli.DetectorFlags
		wait     time.Duration
	)
	return &cli.Command{
		Name:    "wait",
		Summary: "Wait until a data file exists",
		Usage:   "simplon file wait <name> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := detectorFlagSet("wait", &detector)
			flagSet.DurationVar(&wait, "wait", time.Minute, "how long to poll; negative polls until interrupted")
			return flagSet
		},
		Run: func(args []string) error {
			name, err := fileArg("wait", args)
			if err != nil {
				return err
			}
			client, logger, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			started := time.Now()
			if err := client.WaitFile(ctx, name, wait); err != nil {
				return err
			}
			logger.Info("file available", "name", name, "waited", time.Since(started))
			return nil
		},
	}
}

func fileFetchCommand(ctx context.Context) *cli.Command {
	var (
		detector cli.DetectorFlags
		output   string
	)
	return &cli.Command{
		Name:    "fetch",
		Summary: "Download a data file",
		Usage:   "simplon file fetch <name> [--output path] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := detectorFlagSet("fetch", &detector)
			flagSet.StringVarP(&output, "output", "o", "", "write to path instead of the file's name (- for stdout)")
			return flagSet
		},
		Run: func(args []string) error {
			name, err := fileArg("fetch", args)
			if err != nil {
				return err
			}
			client, logger, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			data, err := client.File(ctx, name)
			if err != nil {
				return err
			}
			if output == "" {
				output = name
			}
			if err := writeOutput(output, data); err != nil {
				return err
			}
			logger.Info("file downloaded", "name", name, "bytes", len(data), "output", output)
			return nil
		},
	}
}

func fileDeleteCommand(ctx context.Context) *cli.Command {
	var detector cli.DetectorFlags
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete a data file from the detector",
		Usage:   "simplon file delete <name> [flags]",
		Flags:   func() *pflag.FlagSet { return detectorFlagSet("delete", &detector) },
		Run: func(args []string) error {
			name, err := fileArg("delete", args)
			if err != nil {
				return err
			}
			client, _, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()
			return client.DeleteFile(ctx, name)
		},
	}
}

func monitorCommand(ctx context.Context) *cli.Command {
	var (
		detector cli.DetectorFlags
		output   string
		wait     time.Duration
	)
	return &cli.Command{
		Name:    "monitor",
		Summary: "Fetch the next monitor image as TIFF",
		Usage:   "simplon monitor [--output path] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := detectorFlagSet("monitor", &detector)
			flagSet.StringVarP(&output, "output", "o", "-", "write to path (- for stdout)")
			flagSet.DurationVar(&wait, "wait", 0, "receive timeout while the monitor waits for an image (default: the request timeout)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("monitor takes no positional arguments, got %q", args[0])
			}
			client, _, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			image, err := client.MonitorImage(ctx, wait)
			if err != nil {
				return err
			}
			return writeOutput(output, image)
		},
	}
}

func fileArg(command string, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("file %s takes one file name\n\nRun 'simplon file %s --help' for usage.", command, command)
	}
	return args[0], nil
}

// writeOutput writes data to path, or to stdout for "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		return writeAll(os.Stdout, data)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeAll(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}
