package pyship

import (
	"fmt"
	"os"

	"github.com/pyship/pyship/internal/buildcontext"
	"github.com/pyship/pyship/internal/dockerfile"
	"github.com/pyship/pyship/internal/guardrails"
	"github.com/pyship/pyship/internal/layers"
	"github.com/pyship/pyship/internal/ui"
	"github.com/pyship/pyship/internal/utils"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [PATH]",
		Short: "Show the Dockerfile and layer identities without building",
		Long: `Validate the project and print the Dockerfile pyship would build from,
plus the content-addressed layer chain. Nothing touches the Docker daemon.

If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := getBuildOptions(cmd.Context())
			if opts == nil {
				opts = &buildOptions{}
			}

			pathArg := pathFromArgs(args)
			if guardrails.IsForbiddenContextPath(pathArg) {
				return fmt.Errorf("refusing to use %s as a build context", pathArg)
			}

			path, err := utils.ResolveFolderStrict(pathArg)
			if err != nil {
				return err
			}

			bctx, err := buildcontext.Load(path, buildcontext.Options{
				ManifestName:   opts.Manifest,
				EntrypointName: opts.Entrypoint,
			})
			if err != nil {
				return err
			}

			plan, err := dockerfile.NewPlan(bctx,
				dockerfile.WithPythonVersion(opts.Python),
				dockerfile.WithPort(opts.Port),
			)
			if err != nil {
				return err
			}

			fmt.Print(plan.GenerateDockerfile().String())

			srcDigest, err := bctx.Digest()
			if err != nil {
				return err
			}
			set, err := layers.ForBuild(plan.BaseImage(), dependencyInputs(plan), srcDigest)
			if err != nil {
				return err
			}

			table := ui.NewTable(
				ui.Column{Header: "Layer"},
				ui.Column{Header: "Digest", MaxWidth: 20},
				ui.Column{Header: "Chain", MaxWidth: 20},
			)
			for _, l := range set.Layers() {
				table.AddRow(string(l.Kind), string(l.Digest), string(l.ChainDigest))
			}

			fmt.Println("")
			table.Render(os.Stdout)

			return nil
		},
	}

	attachBuildFlags(cmd)

	return cmd
}
