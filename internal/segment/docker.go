package segment

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	sidecarerrors "github.com/thai-tokenizer/sidecar/internal/errors"
)

const (
	containerPort        = "8000/tcp"
	healthCheckInterval  = 500 * time.Millisecond
	defaultStartupWindow = 60 * time.Second
)

// ContainerManager owns the lifecycle of a single segmentation backend
// container: image pull, create, start, health-wait, stop, remove. It
// talks to the Docker Engine API directly; unlike go-pythainlp's
// manager, there is no compose project or embedded service script here
// because the sidecar ships one pre-built image per engine rather than
// assembling a Python service on the fly.
type ContainerManager struct {
	cli           *client.Client
	image         string
	containerName string
	containerID   string
	hostPort      int
}

// NewContainerManager creates a manager bound to a Docker Engine client
// using the environment's standard configuration (DOCKER_HOST, etc.).
func NewContainerManager(image, containerName string) (*ContainerManager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, sidecarerrors.New(sidecarerrors.ErrCodeSegmenterUnavailable, "create docker client", err)
	}
	return &ContainerManager{cli: cli, image: image, containerName: containerName}, nil
}

// EnsureRunning pulls the image if absent, creates the container if it
// does not exist, starts it, and waits for it to respond on its health
// endpoint. Returns the base URL the HTTPBackend should target.
func (m *ContainerManager) EnsureRunning(ctx context.Context) (string, error) {
	if err := m.pullIfMissing(ctx); err != nil {
		return "", err
	}

	id, port, err := m.findExisting(ctx)
	if err != nil {
		return "", err
	}

	if id == "" {
		id, port, err = m.create(ctx)
		if err != nil {
			return "", err
		}
	}
	m.containerID = id
	m.hostPort = port

	if err := m.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return "", sidecarerrors.New(sidecarerrors.ErrCodeSegmenterUnavailable, "start segmenter container", err)
	}

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := m.waitHealthy(ctx, baseURL); err != nil {
		return "", err
	}
	return baseURL, nil
}

func (m *ContainerManager) pullIfMissing(ctx context.Context) error {
	_, _, err := m.cli.ImageInspectWithRaw(ctx, m.image)
	if err == nil {
		return nil
	}

	reader, err := m.cli.ImagePull(ctx, m.image, image.PullOptions{})
	if err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeSegmenterUnavailable, "pull segmenter image", err)
	}
	defer func() { _ = reader.Close() }()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

func (m *ContainerManager) findExisting(ctx context.Context) (id string, port int, err error) {
	insp, err := m.cli.ContainerInspect(ctx, m.containerName)
	if err != nil {
		// Not found is expected on first run; any other error propagates.
		if client.IsErrNotFound(err) {
			return "", 0, nil
		}
		return "", 0, sidecarerrors.New(sidecarerrors.ErrCodeSegmenterUnavailable, "inspect segmenter container", err)
	}
	for _, bindings := range insp.NetworkSettings.Ports {
		for _, b := range bindings {
			var p int
			if _, scanErr := fmt.Sscanf(b.HostPort, "%d", &p); scanErr == nil {
				return insp.ID, p, nil
			}
		}
	}
	return insp.ID, 0, nil
}

func (m *ContainerManager) create(ctx context.Context) (id string, port int, err error) {
	hostPort, err := allocateFreePort()
	if err != nil {
		return "", 0, sidecarerrors.New(sidecarerrors.ErrCodeSegmenterUnavailable, "allocate port for segmenter", err)
	}

	natPort := nat.Port(containerPort)
	cfg := &container.Config{
		Image:        m.image,
		ExposedPorts: nat.PortSet{natPort: struct{}{}},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			natPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: fmt.Sprintf("%d", hostPort)}},
		},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}

	resp, err := m.cli.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, m.containerName)
	if err != nil {
		return "", 0, sidecarerrors.New(sidecarerrors.ErrCodeSegmenterUnavailable, "create segmenter container", err)
	}
	return resp.ID, hostPort, nil
}

func (m *ContainerManager) waitHealthy(ctx context.Context, baseURL string) error {
	backend := NewHTTPBackend("", baseURL, 2*time.Second)
	deadline := time.Now().Add(defaultStartupWindow)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthCheckInterval):
			if err := backend.Health(ctx); err == nil {
				return nil
			}
		}
	}
	return sidecarerrors.New(sidecarerrors.ErrCodeSegmenterTimeout, "segmenter container did not become healthy in time", nil)
}

// Stop stops and removes the managed container.
func (m *ContainerManager) Stop(ctx context.Context) error {
	if m.containerID == "" {
		return nil
	}
	timeout := 10
	if err := m.cli.ContainerStop(ctx, m.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return err
	}
	return m.cli.ContainerRemove(ctx, m.containerID, container.RemoveOptions{Force: true})
}

// Close releases the Docker Engine API client.
func (m *ContainerManager) Close() error {
	return m.cli.Close()
}

func allocateFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}
