package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

const (
	exitOK                = 0
	exitInternalFailure   = 1
	exitVerifyFailed      = 2
	exitInvalidInput      = 6
	exitMissingDependency = 7
)

var (
	// Version is set via -ldflags.
	Version = "dev"
	// Commit is set via -ldflags.
	Commit = "unknown"
)

func main() {
	os.Exit(execute(context.Background(), newRootCmd()))
}

func execute(ctx context.Context, rootCmd *cobra.Command) int {
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	return exitCodeOf(err)
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// exitCodeOf maps a command error to a process exit code. Errors that do not
// carry an ExitError come from argument parsing.
func exitCodeOf(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitInvalidInput
}
