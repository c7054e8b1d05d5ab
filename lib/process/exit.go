// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that carry their own exit status.
// Such errors are not printed; the command has already reported.
type ExitCoder interface {
	ExitCode() int
}

// Fatal reports err on stderr and exits. See [Report] for the format
// and exit code.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes "error: err" to w unless err is an [ExitCoder], and
// returns the exit code to use: the error's own code, or 1.
func Report(w io.Writer, err error) int {
	if coder, ok := err.(ExitCoder); ok {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
