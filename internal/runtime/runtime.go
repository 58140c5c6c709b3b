package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound indicates an unknown container name.
var ErrNotFound = errors.New("container not found")

// Summary is one container status snapshot.
// Params: container name and runtime status string.
// Returns: read-only summary for status listings.
type Summary struct {
	Name   string
	Status string
}

// ContainerRuntime exposes the container collaborator surface.
// Params: container name targets and bounded contexts.
// Returns: remote status reads and start/stop/restart commands.
type ContainerRuntime interface {
	Status(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]Summary, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
}

// DockerClient talks to the Docker Engine API over a unix socket.
// Params: socket path and stop/restart grace timeout.
// Returns: ContainerRuntime implementation; single attempt per call.
type DockerClient struct {
	client      *http.Client
	stopTimeout int
}

// NewDockerClient creates an engine API client.
// Params: unix socket path and stop timeout in seconds.
// Returns: initialized client.
func NewDockerClient(socket string, stopTimeoutSec int) *DockerClient {
	return &DockerClient{
		stopTimeout: stopTimeoutSec,
		client: &http.Client{
			Timeout: time.Duration(stopTimeoutSec+15) * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var dialer net.Dialer
					return dialer.DialContext(ctx, "unix", socket)
				},
			},
		},
	}
}

// Status reads one container runtime status.
// Params: context and container name.
// Returns: engine status string ("running", "exited", ...) or ErrNotFound.
func (c *DockerClient) Status(ctx context.Context, name string) (string, error) {
	body, err := c.call(ctx, http.MethodGet, "/containers/"+name+"/json")
	if err != nil {
		return "", err
	}
	var inspect struct {
		State struct {
			Status string `json:"Status"`
		} `json:"State"`
	}
	if err := json.Unmarshal(body, &inspect); err != nil {
		return "", fmt.Errorf("decode inspect response: %w", err)
	}
	return inspect.State.Status, nil
}

// List reads all containers with their statuses.
// Params: context.
// Returns: container summaries including stopped ones.
func (c *DockerClient) List(ctx context.Context) ([]Summary, error) {
	body, err := c.call(ctx, http.MethodGet, "/containers/json?all=true")
	if err != nil {
		return nil, err
	}
	var listed []struct {
		Names []string `json:"Names"`
		State string   `json:"State"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	out := make([]Summary, 0, len(listed))
	for _, entry := range listed {
		name := ""
		if len(entry.Names) > 0 {
			name = strings.TrimPrefix(entry.Names[0], "/")
		}
		out = append(out, Summary{Name: name, Status: entry.State})
	}
	return out, nil
}

// Start starts one container.
// Params: context and container name.
// Returns: ErrNotFound or engine error.
func (c *DockerClient) Start(ctx context.Context, name string) error {
	_, err := c.call(ctx, http.MethodPost, "/containers/"+name+"/start")
	return err
}

// Stop stops one container within the grace timeout.
// Params: context and container name.
// Returns: ErrNotFound or engine error.
func (c *DockerClient) Stop(ctx context.Context, name string) error {
	_, err := c.call(ctx, http.MethodPost, "/containers/"+name+"/stop?t="+strconv.Itoa(c.stopTimeout))
	return err
}

// Restart restarts one container within the grace timeout.
// Params: context and container name.
// Returns: ErrNotFound or engine error.
func (c *DockerClient) Restart(ctx context.Context, name string) error {
	_, err := c.call(ctx, http.MethodPost, "/containers/"+name+"/restart?t="+strconv.Itoa(c.stopTimeout))
	return err
}

// call performs one engine API request.
// Params: context, method, and API path.
// Returns: response body, ErrNotFound for 404, or upstream error text.
func (c *DockerClient) call(ctx context.Context, method, path string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, method, "http://docker"+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build engine request: %w", err)
	}
	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("engine api send: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read engine response: %w", err)
	}
	if response.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("engine api status %d: %s", response.StatusCode, engineMessage(body))
	}
	return body, nil
}

// engineMessage extracts the engine error message field.
// Params: raw error body.
// Returns: message field or trimmed raw body.
func engineMessage(body []byte) string {
	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Message != "" {
		return decoded.Message
	}
	return strings.TrimSpace(string(body))
}
