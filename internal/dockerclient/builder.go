package dockerclient

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/build"
	sdkimage "github.com/docker/go-sdk/image"

	"github.com/pyship/pyship/internal/buildcontext"
	"github.com/pyship/pyship/internal/dockerfile"
)

type ImageBuilder interface {
	BuildImage(ctx context.Context, bctx *buildcontext.Context, df dockerfile.Dockerfile, tag, project string) (string, error)
}

// BuildImage ships the whole build context to the daemon as a tar stream with
// the generated Dockerfile injected alongside the sources, so the daemon sees
// exactly the files the context digest was computed over. The project label
// is stamped at the engine level, not in the Dockerfile, so the Dockerfile
// stays a pure function of the tree.
func (dc *dockerClient) BuildImage(ctx context.Context, bctx *buildcontext.Context, df dockerfile.Dockerfile, tag, project string) (string, error) {
	var buf bytes.Buffer
	if err := bctx.WriteTar(&buf, buildcontext.ExtraFile{
		Name:    dockerfile.InjectedDockerfileName,
		Content: []byte(df.String()),
	}); err != nil {
		return "", fmt.Errorf("write build context tar: %w", err)
	}

	buildTag, err := sdkimage.Build(
		ctx,
		&buf,
		tag,
		sdkimage.WithBuildClient(dc.client),
		sdkimage.WithBuildOptions(build.ImageBuildOptions{
			Dockerfile: dockerfile.InjectedDockerfileName,
			Remove:     true, // remove intermediate containers
			Labels: map[string]string{
				LabelManaged: "true",
				LabelProject: project,
			},
		}),
	)
	if err != nil {
		return "", fmt.Errorf("image build: %w", err)
	}

	return buildTag, nil
}
