package pyship

import (
	"context"
	"fmt"

	hostappconfig "github.com/pyship/pyship/internal/apps/pyship/config"
	"github.com/pyship/pyship/internal/buildcontext"
	"github.com/pyship/pyship/internal/cache"
	"github.com/pyship/pyship/internal/dockerclient"
	"github.com/pyship/pyship/internal/dockerfile"
	"github.com/pyship/pyship/internal/guardrails"
	"github.com/pyship/pyship/internal/layers"
	"github.com/pyship/pyship/internal/logs"
	"github.com/pyship/pyship/internal/project"
	"github.com/pyship/pyship/internal/state"
	"github.com/pyship/pyship/internal/ui"
	"github.com/pyship/pyship/internal/utils"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	Manifest     string
	Entrypoint   string
	Port         int
	Python       string
	ForceRebuild bool
}

// attachBuildFlags attaches the image-shaping flags to the given command and
// injects a buildOptions instance into the command's context via PreRun.
func attachBuildFlags(cmd *cobra.Command) {
	opts := &buildOptions{}

	flags := cmd.Flags()
	flags.StringVar(&opts.Manifest, "manifest", buildcontext.DefaultManifestName, "Dependency manifest file name")
	flags.StringVar(&opts.Entrypoint, "entrypoint", buildcontext.DefaultEntrypointName, "Service entry-point file name")
	flags.IntVar(&opts.Port, "port", dockerfile.DefaultPort, "Port the service listens on")
	flags.StringVar(&opts.Python, "python", dockerfile.DefaultPythonVersion, "Python runtime version for the base image")
	flags.BoolVar(&opts.ForceRebuild, "build", false, "Force rebuild of the service image")

	// Store opts in command context before running
	prev := cmd.PreRun
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if prev != nil {
			prev(cmd, args)
		}
		cmd.SetContext(withBuildOptions(cmd.Context(), opts))
	}
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [PATH]",
		Short: "Build the service image for the project",
		Long: `Validate the project, resolve its dependency manifest, and build the
service image. The image is reused on later builds while the sources,
manifest, and build settings stay unchanged.

If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := executeBuild(cmd.Context(), pathFromArgs(args), getBuildOptions(cmd.Context()))
			if err != nil {
				return err
			}

			fmt.Println(res.Tag)
			return nil
		},
	}

	attachBuildFlags(cmd)

	return cmd
}

// buildResult is everything later stages need from a finished build.
type buildResult struct {
	Project *project.Project
	Plan    *dockerfile.BuildPlan
	Tag     string
	ImageID string
}

// executeBuild runs the full pipeline: validate the context, resolve the
// manifest, generate the Dockerfile, compute the layer identity, and build
// the image unless a usable one is cached.
func executeBuild(ctx context.Context, pathArg string, opts *buildOptions) (*buildResult, error) {
	if opts == nil {
		// This should not normally happen because attachBuildFlags sets it,
		// but keep a safe fallback for root or tests.
		opts = &buildOptions{}
	}

	if guardrails.IsForbiddenContextPath(pathArg) {
		return nil, fmt.Errorf("refusing to use %s as a build context", pathArg)
	}

	path, err := utils.ResolveFolderStrict(pathArg)
	if err != nil {
		return nil, err
	}

	logs.Debugf("loading build context at %s ...", path)
	bctx, err := buildcontext.Load(path, buildcontext.Options{
		ManifestName:   opts.Manifest,
		EntrypointName: opts.Entrypoint,
	})
	if err != nil {
		return nil, err
	}

	proj := project.Resolve(path)

	// Everything, including docker build noise, lands in a per-run log file.
	if runID, idErr := utils.RandomHex(6); idErr == nil {
		if logFile, logErr := hostappconfig.BuildLogOpen(proj.Name, runID); logErr != nil {
			logs.Warnf("build log unavailable: %v", logErr)
		} else {
			logs.SetFullLogWriter(ui.NewTimestampWriter(ui.NewSyncWriter(logFile, 0)))
			logs.InfofSilent("build log: %s", logFile.Name())
		}
	}

	plan, err := dockerfile.NewPlan(bctx,
		dockerfile.WithPythonVersion(opts.Python),
		dockerfile.WithPort(opts.Port),
	)
	if err != nil {
		return nil, err
	}
	df := plan.GenerateDockerfile()

	srcDigest, err := bctx.Digest()
	if err != nil {
		return nil, err
	}

	set, err := layers.ForBuild(plan.BaseImage(), dependencyInputs(plan), srcDigest)
	if err != nil {
		return nil, err
	}

	layerKey := cache.CacheKeyLayerSet(set)
	buildKey := cache.CacheKeyBuild(set, df)
	tag := cache.ComposeImageTag(proj.Name, layerKey, cache.CacheKeyDockerfileLines(df))

	dc, err := dockerclient.NewDockerClient()
	if err != nil {
		return nil, err
	}

	mgr, err := cache.NewManager(hostappconfig.ImageCacheFile())
	if err != nil {
		return nil, err
	}

	imageExists := dc.ImageExists
	if opts.ForceRebuild {
		imageExists = func(context.Context, string) bool { return false }
	}

	imageID, err := mgr.ResolveImage(ctx, buildKey,
		func(ctx context.Context, id cache.ImageID) bool {
			return imageExists(ctx, string(id))
		},
		func(ctx context.Context) (cache.ImageID, error) {
			tail := logs.NewTailBox("docker build")
			defer tail.Close()

			tail.Printf("building %s", tag)
			tail.Printf("base image %s, %d requirements", plan.BaseImage(), len(plan.Requirements))

			built, buildErr := dc.BuildImage(ctx, bctx, df, tag, proj.Name)
			if buildErr != nil {
				return "", buildErr
			}
			tail.Printf("built %s", built)
			return cache.ImageID(built), nil
		},
	)
	if err != nil {
		return nil, err
	}

	// Build history is bookkeeping: a failure here never fails the build.
	if store, storeErr := state.DefaultBuildStore(ctx); storeErr != nil {
		logs.Warnf("build history unavailable: %v", storeErr)
	} else if recErr := store.Record(ctx, state.Build{
		Tag:        tag,
		Project:    proj.Name,
		ImageID:    string(imageID),
		Port:       plan.Port,
		Entrypoint: plan.EntrypointName,
	}); recErr != nil {
		logs.Warnf("failed to record build: %v", recErr)
	}

	return &buildResult{
		Project: proj,
		Plan:    plan,
		Tag:     tag,
		ImageID: string(imageID),
	}, nil
}

// dependencyInputs flattens everything the dependency layer depends on: the
// resolved manifest entries and the manifest name itself.
func dependencyInputs(plan *dockerfile.BuildPlan) []string {
	inputs := []string{plan.ManifestName}
	for _, req := range plan.Requirements {
		inputs = append(inputs, req.Name+"|"+req.Specifier+"|"+req.Pinned)
	}
	return inputs
}

type ctxKeyBuildOptions struct{}

func withBuildOptions(ctx context.Context, opts *buildOptions) context.Context {
	return context.WithValue(ctx, ctxKeyBuildOptions{}, opts)
}

func getBuildOptions(ctx context.Context) *buildOptions {
	v := ctx.Value(ctxKeyBuildOptions{})
	if v == nil {
		return nil
	}
	return v.(*buildOptions)
}
