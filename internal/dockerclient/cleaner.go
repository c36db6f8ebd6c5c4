package dockerclient

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
)

// CleanReport sums up what a cleanup pass removed.
type CleanReport struct {
	Containers int
	Images     int
}

type Cleaner interface {
	ListImages(ctx context.Context, project string) ([]image.Summary, error)
	Clean(ctx context.Context, project string) (CleanReport, error)
}

func managedFilters(project string) filters.Args {
	args := filters.NewArgs()
	args.Add("label", LabelManaged+"=true")
	if project != "" {
		args.Add("label", LabelProject+"="+project)
	}
	return args
}

// ListImages returns the pyship-built images, optionally narrowed to one
// project.
func (dc *dockerClient) ListImages(ctx context.Context, project string) ([]image.Summary, error) {
	out, err := dc.client.ImageList(ctx, image.ListOptions{
		All:     true,
		Filters: managedFilters(project),
	})
	if err != nil {
		return nil, fmt.Errorf("image list: %w", err)
	}
	return out, nil
}

// Clean force-removes every pyship-labeled container, then every
// pyship-labeled image. Containers go first so image removal doesn't fail on
// live references.
func (dc *dockerClient) Clean(ctx context.Context, project string) (CleanReport, error) {
	var report CleanReport

	containers, err := dc.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: managedFilters(project),
	})
	if err != nil {
		return report, fmt.Errorf("container list: %w", err)
	}
	for _, c := range containers {
		if err := dc.client.ContainerRemove(ctx, c.ID, container.RemoveOptions{
			Force:         true,
			RemoveVolumes: true,
		}); err != nil {
			return report, fmt.Errorf("container remove %s: %w", c.ID, err)
		}
		report.Containers++
	}

	images, err := dc.ListImages(ctx, project)
	if err != nil {
		return report, err
	}
	for _, img := range images {
		if _, err := dc.client.ImageRemove(ctx, img.ID, image.RemoveOptions{
			Force:         true,
			PruneChildren: true,
		}); err != nil {
			return report, fmt.Errorf("image remove %s: %w", img.ID, err)
		}
		report.Images++
	}

	return report, nil
}
