package pyship

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pyship/pyship/internal/dockerclient"
	"github.com/pyship/pyship/internal/logs"
	"github.com/spf13/cobra"
)

type runOptions struct {
	Publish  bool
	HostPort int
}

// attachRunFlags attaches the "run" cmd flags to the given command and
// injects a runOptions instance into the command's context via PreRun.
func attachRunFlags(cmd *cobra.Command) {
	opts := &runOptions{}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.Publish, "publish", "p", false, "Publish the service port on 127.0.0.1")
	flags.IntVar(&opts.HostPort, "host-port", 0, "Host port to publish on (defaults to the service port)")

	prev := cmd.PreRun
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if prev != nil {
			prev(cmd, args)
		}
		cmd.SetContext(withRunOptions(cmd.Context(), opts))
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [PATH]",
		Short: "Build (if needed) and run the service in the foreground",
		Long: `Build the service image if no usable one exists, then run it as a single
foreground process. pyship streams the service output, stops the container on
Ctrl+C, and exits with the service's own exit code.

If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCmdRunE,
	}

	attachBuildFlags(cmd)
	attachRunFlags(cmd)

	return cmd
}

// runCmdRunE is a separate function so root can reuse it (default command)
func runCmdRunE(cmd *cobra.Command, args []string) error {
	logs.Debugf("running service...")

	opts := getRunOptions(cmd.Context())
	if opts == nil {
		// This should not normally happen because attachRunFlags sets it,
		// but keep a safe fallback for root or tests.
		opts = &runOptions{}
	}

	signalsCtx, stopSignalsCtx := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalsCtx()

	res, err := executeBuild(signalsCtx, pathFromArgs(args), getBuildOptions(cmd.Context()))
	if err != nil {
		return err
	}

	// The runner installs its own signal handling to stop the container
	// gracefully and report the real exit code.
	stopSignalsCtx()

	dc, err := dockerclient.NewDockerClient()
	if err != nil {
		return err
	}

	logs.Infof("starting %s (port %d) ...", res.Tag, res.Plan.Port)
	code, err := dc.RunService(cmd.Context(), dockerclient.RunOptions{
		ImageTag: res.Tag,
		Project:  res.Project.Name,
		Port:     res.Plan.Port,
		Publish:  opts.Publish,
		HostPort: opts.HostPort,
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitCodeError{Code: int(code)}
	}
	return nil
}

type ctxKeyRunOptions struct{}

func withRunOptions(ctx context.Context, opts *runOptions) context.Context {
	return context.WithValue(ctx, ctxKeyRunOptions{}, opts)
}

func getRunOptions(ctx context.Context) *runOptions {
	v := ctx.Value(ctxKeyRunOptions{})
	if v == nil {
		return nil
	}
	return v.(*runOptions)
}
