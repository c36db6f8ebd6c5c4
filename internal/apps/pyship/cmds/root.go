// Package pyship wires the CLI surface: build, run, plan, list, clean,
// version.
package pyship

import (
	"context"
	"fmt"

	"github.com/pyship/pyship/internal/logs"
	"github.com/spf13/cobra"
)

var verbosity int

// ExitCodeError carries the service process exit code from `run` to main so
// pyship can exit with the same code.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("service exited with code %d", e.Code)
}

func Execute(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:   "pyship [PATH]",
		Short: "Build and run Python network services in containers",
		Long: `pyship packages a Python network service into a container image and runs it.

By default, 'pyship' is equivalent to 'pyship run [PATH]'.
If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		// Default behavior is the same as 'run'
		RunE: runCmdRunE,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logs.SetVerbosity(verbosity)
			return nil
		},
		// we will handle that
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity level")

	// Root should accept the same flags as `run`
	attachBuildFlags(rootCmd)
	attachRunFlags(rootCmd)

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd.ExecuteContext(ctx)
}

// pathFromArgs resolves the positional PATH argument, defaulting to the
// working directory.
func pathFromArgs(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}
