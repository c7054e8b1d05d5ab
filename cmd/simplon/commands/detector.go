// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/simplon-foundation/simplon/cmd/simplon/cli"
	"github.com/simplon-foundation/simplon/lib/control"
)

const subsystemHelp = "detector_config, detector_status, detector_command, monitor_config, stream_config, filewriter_config, system_command, ..."

func detectorFlagSet(name string, detector *cli.DetectorFlags) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	detector.AddFlags(flagSet)
	return flagSet
}

func getCommand(ctx context.Context) *cli.Command {
	var detector cli.DetectorFlags
	return &cli.Command{
		Name:    "get",
		Summary: "Read a parameter value",
		Usage:   "simplon get <subsystem> <name> [flags]",
		Description: `Read one parameter and print its value. Strings print bare; numbers,
booleans and arrays print as JSON.

Subsystems: ` + subsystemHelp,
		Flags: func() *pflag.FlagSet { return detectorFlagSet("get", &detector) },
		Run: func(args []string) error {
			subsystem, name, err := parameterArgs("get", args, 2)
			if err != nil {
				return err
			}
			client, _, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			value, err := client.Get(ctx, subsystem, name, 0)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, value.String())
			return err
		},
	}
}

func describeCommand(ctx context.Context) *cli.Command {
	var detector cli.DetectorFlags
	return &cli.Command{
		Name:    "describe",
		Summary: "Show a parameter's value, type, unit and bounds",
		Usage:   "simplon describe <subsystem> <name> [flags]",
		Flags:   func() *pflag.FlagSet { return detectorFlagSet("describe", &detector) },
		Run: func(args []string) error {
			subsystem, name, err := parameterArgs("describe", args, 2)
			if err != nil {
				return err
			}
			client, _, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			parameter, err := client.Describe(ctx, subsystem, name, 0)
			if err != nil {
				return err
			}
			return writeParameter(os.Stdout, name, parameter)
		},
	}
}

func writeParameter(w io.Writer, name string, parameter control.Parameter) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "name\t%s\n", name)
	fmt.Fprintf(tw, "value\t%s\n", parameter.Value)
	if parameter.ValueType != "" {
		fmt.Fprintf(tw, "type\t%s\n", parameter.ValueType)
	}
	if parameter.Unit != "" {
		fmt.Fprintf(tw, "unit\t%s\n", parameter.Unit)
	}
	if parameter.AccessMode != "" {
		fmt.Fprintf(tw, "access\t%s\n", parameter.AccessMode)
	}
	if !parameter.Min.IsZero() {
		fmt.Fprintf(tw, "min\t%s\n", parameter.Min)
	}
	if !parameter.Max.IsZero() {
		fmt.Fprintf(tw, "max\t%s\n", parameter.Max)
	}
	if len(parameter.AllowedValues) > 0 {
		fmt.Fprintf(tw, "allowed\t%s\n", strings.Join(parameter.AllowedValues, ", "))
	}
	return tw.Flush()
}

func putCommand(ctx context.Context) *cli.Command {
	var (
		detector cli.DetectorFlags
		asString bool
	)
	return &cli.Command{
		Name:    "put",
		Summary: "Write a parameter value",
		Usage:   "simplon put <subsystem> <name> <value> [flags]",
		Description: `Write one parameter. The value is sent as JSON when it parses as JSON
(numbers, true/false, arrays) and as a string otherwise; --string
forces a string. Prints the parameters the server reports as changed.`,
		Flags: func() *pflag.FlagSet {
			flagSet := detectorFlagSet("put", &detector)
			flagSet.BoolVar(&asString, "string", false, "send the value as a JSON string")
			return flagSet
		},
		Run: func(args []string) error {
			subsystem, name, err := parameterArgs("put", args, 3)
			if err != nil {
				return err
			}
			value := parseValueArgument(args[2], asString)

			client, logger, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			reply, err := client.Put(ctx, subsystem, name, value, 0)
			if err != nil {
				return err
			}
			changed, _ := reply.ChangedParameters()
			logger.Info("parameter written", "subsystem", subsystem, "name", name, "changed", len(changed))
			for _, parameter := range changed {
				fmt.Fprintln(os.Stdout, parameter)
			}
			return nil
		},
	}
}

// parseValueArgument returns the value to send for a command-line
// argument: its JSON meaning when it is valid JSON, else the string.
func parseValueArgument(argument string, asString bool) any {
	if asString {
		return argument
	}
	var decoded any
	if err := json.Unmarshal([]byte(argument), &decoded); err != nil {
		return argument
	}
	return json.RawMessage(argument)
}

// parameterArgs checks for exactly count positional arguments and
// parses the leading subsystem and parameter name.
func parameterArgs(command string, args []string, count int) (control.Subsystem, string, error) {
	if len(args) != count {
		return 0, "", fmt.Errorf("%s takes %d arguments, got %d\n\nRun 'simplon %s --help' for usage.",
			command, count, len(args), command)
	}
	subsystem, err := control.ParseSubsystem(args[0])
	if err != nil {
		return 0, "", err
	}
	if args[1] == "" {
		return 0, "", fmt.Errorf("%s: parameter name is empty", command)
	}
	return subsystem, args[1], nil
}

func commandCommand(ctx context.Context) *cli.Command {
	var (
		detector cli.DetectorFlags
		timeout  time.Duration
		exposure time.Duration
	)
	return &cli.Command{
		Name:    "command",
		Summary: "Send a detector command",
		Usage:   "simplon command <name> [flags]",
		Description: `Send a command to the detector command subsystem.

arm prints the sequence id of the new series. trigger waits at least
--exposure before returning. restart is sent to the system subsystem
and clear to the file writer. Blocking commands such as initialize and
wait take --timeout as their receive timeout.`,
		Flags: func() *pflag.FlagSet {
			flagSet := detectorFlagSet("command", &detector)
			flagSet.DurationVar(&timeout, "command-timeout", 0, "receive timeout for blocking commands (default: the request timeout)")
			flagSet.DurationVar(&exposure, "exposure", 0, "minimum duration of trigger")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("command takes one argument, got %d", len(args))
			}
			client, logger, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()

			name := args[0]
			logger.Debug("sending command", "command", name)
			switch name {
			case control.CommandArm:
				id, err := client.Arm(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(os.Stdout, id)
				return err
			case control.CommandTrigger:
				return client.Trigger(ctx, timeout, exposure)
			case control.CommandRestart:
				return client.Restart(ctx, timeout)
			case control.CommandClear:
				return client.ClearFiles(ctx)
			default:
				reply, err := client.Command(ctx, name, timeout)
				if err != nil {
					return err
				}
				if !reply.IsEmpty() {
					_, err = fmt.Fprintln(os.Stdout, reply.String())
				}
				return err
			}
		},
	}
}

func versionCommand(ctx context.Context) *cli.Command {
	var (
		detector cli.DetectorFlags
		remote   bool
	)
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			flagSet := detectorFlagSet("version", &detector)
			flagSet.BoolVar(&remote, "detector", false, "also query the detector's API version")
			return flagSet
		},
		Run: func(args []string) error {
			if err := writeVersion(os.Stdout); err != nil {
				return err
			}
			if !remote {
				return nil
			}
			client, _, err := detector.Connect()
			if err != nil {
				return err
			}
			defer client.Close()
			version, err := client.Version(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(os.Stdout, "  Detector API: %s\n", version)
			return err
		},
	}
}
