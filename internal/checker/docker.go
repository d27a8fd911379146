package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

const dockerSockPath = "/var/run/docker.sock"

// ContainerState holds the minimal Docker container state we care about.
type ContainerState struct {
	Running bool
}

// DockerClient abstracts Docker Engine API access for testability.
// Missing containers are reported with an error matching ErrNotFound.
type DockerClient interface {
	InspectContainer(ctx context.Context, name string) (*ContainerState, error)
}

func newDockerChecker(c config.Check, logger *slog.Logger) health.Probe {
	return NewDocker(c.Target, newUnixDockerClient(c.Timeout.Duration), logger)
}

// NewDocker returns a probe that succeeds when container is running.
func NewDocker(container string, client DockerClient, logger *slog.Logger) health.Probe {
	return newProbe(container, logger, func(ctx context.Context) health.Outcome {
		state, err := client.InspectContainer(ctx, container)
		if err != nil {
			return classify(err)
		}
		if !state.Running {
			return health.Failed(fmt.Errorf("container %q is not running", container))
		}
		return health.Available()
	})
}

// unixDockerClient queries the Docker Engine API over the Unix socket.
type unixDockerClient struct {
	client *http.Client
}

func newUnixDockerClient(timeout time.Duration) *unixDockerClient {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, "unix", dockerSockPath)
		},
	}
	return &unixDockerClient{
		client: &http.Client{Transport: transport, Timeout: timeout},
	}
}

func (d *unixDockerClient) InspectContainer(ctx context.Context, name string) (*ContainerState, error) {
	url := fmt.Sprintf("http://localhost/containers/%s/json", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying docker socket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, notFoundError{err: fmt.Errorf("container %q not found", name)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("docker API returned status %d", resp.StatusCode)
	}

	var body struct {
		State ContainerState `json:"State"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding docker response: %w", err)
	}
	return &body.State, nil
}
