// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without an extra error line.
// The command has already written its own output. "simplon file size"
// uses it to exit 1 for a missing file.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code, satisfying process.ExitCoder.
func (e *ExitError) ExitCode() int {
	return e.Code
}
