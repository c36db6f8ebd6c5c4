package main

import (
	"context"
	"errors"
	"os"

	pyship "github.com/pyship/pyship/internal/apps/pyship/cmds"
	"github.com/pyship/pyship/internal/logs"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer logs.Close()

	err := pyship.Execute(context.Background())
	if err == nil {
		return 0
	}

	// The service's own exit code passes through untouched.
	var exitErr *pyship.ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	logs.Errorf("%v", err)
	logs.InfofSilent("Type 'pyship help' to get help.")
	return 1
}
