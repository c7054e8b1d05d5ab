// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the simplon tool.
//
// The central type is [Command]: a named command with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// [Command.Execute] parses flags, routes to subcommands and prints help.
// Unknown commands and flags get a did-you-mean suggestion based on
// edit distance (at most 3).
//
// [DetectorFlags] registers the shared --config, --host, --port and
// --api-version flags and turns them into a [control.Client].
// [NewLogger] builds the slog logger from the logging configuration.
package cli
