// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"

	"github.com/simplon-foundation/simplon/lib/version"
)

func writeVersion(w io.Writer) error {
	_, err := fmt.Fprintf(w, "simplon %s\n", version.Full())
	return err
}
