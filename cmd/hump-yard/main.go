// Package main provides the hump-yard CLI.
//
// hump-yard is a folder-monitoring daemon: it watches configured directories
// for new files and routes each file to a plugin selected by folder and
// extension. The CLI starts, stops and inspects the daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// exitError carries a specific process exit code. A nil err exits quietly.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// reportError prints err to w and returns the exit code for it.
func reportError(w io.Writer, err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(w, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return 1
}
