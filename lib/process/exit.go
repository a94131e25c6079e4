// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is an error that carries its own exit status. The command
// that returned it has already reported the failure.
type ExitCoder interface {
	error
	ExitCode() int
}

// Exit terminates the process for an error returned by a command.
// An [ExitCoder] anywhere in the chain exits silently with its code;
// anything else is printed as "error: err" with status 1.
func Exit(err error) {
	os.Exit(report(os.Stderr, err))
}

func report(w io.Writer, err error) int {
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
