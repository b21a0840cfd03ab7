package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/shpitdev/fiofix/pkg/pipeline/redact"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "fiofix: %s\n", redact.Secrets(err.Error()))
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

// exitError carries a process exit code. Configuration problems exit with 2,
// failed runs with 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: 2, err: err}
}

func runError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: 1, err: err}
}
