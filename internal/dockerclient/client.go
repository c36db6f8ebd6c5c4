// Package dockerclient talks to the Docker daemon: it builds service images
// from a build context, runs them in the foreground, and cleans up what
// pyship created.
package dockerclient

import (
	"context"
	"log/slog"
	"os"

	"github.com/docker/go-sdk/client"
)

const (
	// LabelManaged marks every container and image pyship creates.
	LabelManaged = "pyship"
	// LabelProject carries the owning project name.
	LabelProject = "pyship_project"
)

type dockerClient struct {
	client client.SDKClient
}

type DockerClient interface {
	ImageBuilder
	ServiceRunner
	Cleaner
	ImageExists(context.Context, string) bool
}

func NewDockerClient() (DockerClient, error) {
	c, err := client.New(
		context.Background(),
		client.WithLogger(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))),
	)
	if err != nil {
		return nil, err
	}

	return &dockerClient{
		client: c,
	}, nil
}

func (dc *dockerClient) ImageExists(ctx context.Context, imageRef string) bool {
	_, err := dc.client.ImageInspect(ctx, imageRef)

	return err == nil
}
