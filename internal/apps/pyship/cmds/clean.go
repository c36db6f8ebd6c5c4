package pyship

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	hostappconfig "github.com/pyship/pyship/internal/apps/pyship/config"
	"github.com/pyship/pyship/internal/dockerclient"
	"github.com/pyship/pyship/internal/logs"
	"github.com/pyship/pyship/internal/project"
	"github.com/pyship/pyship/internal/state"
	"github.com/pyship/pyship/internal/utils"
	"github.com/spf13/cobra"
)

type cleanOptions struct {
	Yes bool
}

func newCleanCmd() *cobra.Command {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean [PATH]",
		Short: "Remove pyship containers, images, and cached build state",
		Long: `Remove everything pyship created: labeled containers and images, the image
cache, and the build history. If PATH is given, only that project's artifacts
are removed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalsCtx, stopSignalsCtx := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			projectFilter := ""
			scope := "all pyship artifacts"
			if len(args) == 1 {
				path, err := utils.ResolveFolderStrict(args[0])
				if err != nil {
					return err
				}
				projectFilter = project.Resolve(path).Name
				scope = "artifacts of project " + projectFilter
			}

			if !opts.Yes {
				ok, err := logs.PromptConfirm("Remove " + scope + "?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted")
					return nil
				}
			}

			dc, err := dockerclient.NewDockerClient()
			if err != nil {
				return err
			}

			report, err := dc.Clean(signalsCtx, projectFilter)
			if err != nil {
				return err
			}

			if store, storeErr := state.DefaultBuildStore(signalsCtx); storeErr != nil {
				logs.Warnf("build history unavailable: %v", storeErr)
			} else if projectFilter == "" {
				builds, listErr := store.List(signalsCtx, "")
				if listErr != nil {
					logs.Warnf("failed to list build history: %v", listErr)
				}
				for _, b := range builds {
					if delErr := store.Delete(signalsCtx, b.Tag); delErr != nil {
						logs.Warnf("failed to forget build %s: %v", b.Tag, delErr)
					}
				}
			} else if _, delErr := store.DeleteByProject(signalsCtx, projectFilter); delErr != nil {
				logs.Warnf("failed to forget project builds: %v", delErr)
			}

			if projectFilter == "" {
				if rmErr := os.Remove(hostappconfig.ImageCacheFile()); rmErr != nil && !os.IsNotExist(rmErr) {
					logs.Warnf("failed to remove image cache: %v", rmErr)
				}
			}

			fmt.Printf("Removed %d containers and %d images\n", report.Containers, report.Images)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
