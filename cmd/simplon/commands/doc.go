// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the simplon command tree.
//
// Detector commands (get, describe, put, command, file, monitor) talk to
// the control server through lib/control and share the connection flags
// of [cli.DetectorFlags]. decode works offline on stream messages
// captured to a file or piped on stdin. Command output goes to stdout;
// logs go to stderr.
package commands
