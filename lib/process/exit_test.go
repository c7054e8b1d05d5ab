// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"testing"
)

type exitStatus int

func (e exitStatus) Error() string { return "exit" }
func (e exitStatus) ExitCode() int { return int(e) }

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{"plain error", errors.New("detector unreachable"), 1, "error: detector unreachable\n"},
		{"exit coder", exitStatus(3), 3, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if code := Report(&stderr, test.err); code != test.wantCode {
				t.Errorf("code = %d, want %d", code, test.wantCode)
			}
			if stderr.String() != test.wantText {
				t.Errorf("stderr = %q, want %q", stderr.String(), test.wantText)
			}
		})
	}
}
