package pyship

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pyship/pyship/internal/dockerclient"
	"github.com/pyship/pyship/internal/logs"
	"github.com/pyship/pyship/internal/project"
	"github.com/pyship/pyship/internal/state"
	"github.com/pyship/pyship/internal/ui"
	"github.com/pyship/pyship/internal/utils"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list [PATH]",
		Aliases: []string{"ls"},
		Short:   "List built service images",
		Long:    "List images pyship has built. If PATH is given, filter by that project.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs.Debugf("running list...")

			signalsCtx, stopSignalsCtx := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			projectFilter := ""
			if len(args) == 1 {
				path, err := utils.ResolveFolderStrict(args[0])
				if err != nil {
					return err
				}
				projectFilter = project.Resolve(path).Name
			}

			store, err := state.DefaultBuildStore(signalsCtx)
			if err != nil {
				return err
			}

			builds, err := store.List(signalsCtx, projectFilter)
			if err != nil {
				return err
			}

			if len(builds) == 0 {
				fmt.Println("No builds found")
				return nil
			}

			// Cross-check history against the live engine; images may have
			// been pruned behind pyship's back.
			liveTags := map[string]bool{}
			if dc, dcErr := dockerclient.NewDockerClient(); dcErr != nil {
				logs.Warnf("docker unavailable, image state unknown: %v", dcErr)
			} else {
				images, listErr := dc.ListImages(signalsCtx, projectFilter)
				if listErr != nil {
					logs.Warnf("failed to list images: %v", listErr)
				}
				for _, img := range images {
					for _, ref := range img.RepoTags {
						liveTags[strings.TrimSuffix(ref, ":latest")] = true
					}
				}
			}

			columns := []ui.Column{
				{Header: "Project"},
				{Header: "Tag", MaxWidth: 40},
				{Header: "Port", Align: ui.AlignRight},
				{Header: "Entrypoint"},
				{Header: "Image"},
				{Header: "Created"},
			}

			table := ui.NewTable(columns...)

			for _, b := range builds {
				imageState := "missing"
				if liveTags[b.Tag] {
					imageState = "present"
				}
				table.AddRow(b.Project, b.Tag, fmt.Sprintf("%d", b.Port), b.Entrypoint, imageState, b.CreatedAt.Local().Format(time.DateTime))
			}

			fmt.Println("")
			table.Render(os.Stdout)
			fmt.Println("")
			fmt.Println("Use 'pyship run [PATH]' to start a service or 'pyship clean' to remove images")

			return nil
		},
	}

	return cmd
}
