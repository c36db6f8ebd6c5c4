package dockerclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

const (
	dockerMaxNameLen = 255
	shortLen         = 6       // length of the hash-like suffix
	tailMarker       = "tail-" // visible indicator that we trimmed the left side

	stopTimeoutSeconds = 10
)

// RunOptions describes one foreground service run.
type RunOptions struct {
	ImageTag string
	Project  string

	// Port is the container port the service listens on.
	Port int

	// Publish maps HostPort (same as Port when zero) to the service port
	// on 127.0.0.1.
	Publish  bool
	HostPort int

	Stdout io.Writer
	Stderr io.Writer
}

type ServiceRunner interface {
	RunService(ctx context.Context, opts RunOptions) (int64, error)
}

// RunService emulates:
//
//	docker run --rm [-p 127.0.0.1:HOST:PORT] IMAGE
//
// - uses the image's CMD (the service entrypoint)
// - streams stdout/stderr until the process exits
// - removes the container on exit
// - returns the service process exit code verbatim
func (dc *dockerClient) RunService(ctx context.Context, opts RunOptions) (int64, error) {
	if opts.ImageTag == "" {
		return 0, fmt.Errorf("run: image tag required")
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	servicePort, err := nat.NewPort("tcp", strconv.Itoa(opts.Port))
	if err != nil {
		return 0, fmt.Errorf("run: bad service port %d: %w", opts.Port, err)
	}

	cfg := &container.Config{
		Image: opts.ImageTag,
		Labels: map[string]string{
			LabelManaged: "true",
			LabelProject: opts.Project,
		},
		ExposedPorts: nat.PortSet{servicePort: struct{}{}},

		// no TTY: keep stdout and stderr separate streams
		Tty:          false,
		AttachStdout: true,
		AttachStderr: true,
	}

	hostCfg := &container.HostConfig{}
	if opts.Publish {
		hostPort := opts.HostPort
		if hostPort == 0 {
			hostPort = opts.Port
		}
		hostCfg.PortBindings = nat.PortMap{
			servicePort: []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: strconv.Itoa(hostPort),
				},
			},
		}
	}

	created, err := dc.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, resolveContainerName(opts.Project))
	if err != nil {
		return 0, fmt.Errorf("container create: %w", err)
	}
	id := created.ID

	defer func() {
		_ = dc.client.ContainerRemove(context.Background(), id, container.RemoveOptions{
			Force:         true,
			RemoveVolumes: true,
		})
	}()

	// Attach BEFORE start (like docker run)
	attach, err := dc.client.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdout: true,
		Stderr: true,
		Logs:   true,
	})
	if err != nil {
		return 0, fmt.Errorf("container attach: %w", err)
	}
	defer attach.Close()

	if err := dc.client.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return 0, fmt.Errorf("container start: %w", err)
	}

	// Ctrl+C or SIGTERM asks the service to stop; the wait below then
	// delivers its real exit code.
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stopCh)
	go func() {
		<-stopCh
		timeout := stopTimeoutSeconds
		_ = dc.client.ContainerStop(context.Background(), id, container.StopOptions{Timeout: &timeout})
	}()

	// container → local streams (Tty=false: multiplexed)
	go func() {
		_, _ = stdcopy.StdCopy(stdout, stderr, attach.Reader)
	}()

	statusCh, errCh := dc.client.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return 0, fmt.Errorf("container wait: %w", err)
		}
	case st := <-statusCh:
		return st.StatusCode, nil
	}

	return 0, nil
}

// ContainerName: "<project>-<short>", trimming from the LEFT if needed and
// prefixing with "tail-" to show it was trimmed.
func resolveContainerName(project string) string {
	short := shortHash(project+
		"|"+time.Now().UTC().Format(time.RFC3339Nano)+
		"|"+procTag(),
		shortLen)

	// Ideal: project + "-" + short
	need := len(project) + 1 + len(short)
	if need <= dockerMaxNameLen {
		return project + "-" + short
	}

	// Not enough room. Keep the tail of project and add a visible marker.
	maxProject := dockerMaxNameLen - 1 - len(short) // room for '-' + short
	keep := maxProject - len(tailMarker)
	if keep < 1 {
		keep = 1
	}
	if keep > len(project) {
		keep = len(project)
	}
	trimmedTail := project[len(project)-keep:]

	return tailMarker + trimmedTail + "-" + short
}

func shortHash(s string, n int) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:n]
}

// tiny process tag without extra deps
func procTag() string {
	pid := os.Getpid()
	return hex.EncodeToString([]byte{
		byte(pid >> 24), byte(pid >> 16), byte(pid >> 8), byte(pid),
	})
}
